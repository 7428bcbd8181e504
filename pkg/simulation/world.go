package simulation

import (
	"fmt"
	"time"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Snapshot is the state handed to the renderer after a frame. Agents is a copy
// owned by the receiver.
type Snapshot struct {
	Agents   []flock.Agent
	Frame    uint64
	Substeps int    // integrator ticks applied this frame
	Dropped  uint64 // ticks discarded by the catch-up cap so far
	Width    float64
	Height   float64
	PassTime time.Duration // time spent in the behavior pass and integrator
}

// FlockActor owns the agent store. Every frame message runs one behavior pass
// followed by the integrator ticks owed by the clock, then offers a snapshot to
// the renderer without blocking.
type FlockActor struct {
	store *flock.Store
	clock *flock.Clock
	cfg   *Config

	width, height float64
	frame         uint64

	// Communication with UI
	snapshotCh chan<- *Snapshot

	// --- Benchmark Stats ---
	frameCount   int
	tickCount    int
	skippedCount int
	lastDropped  uint64
	lastLogTime  time.Time
}

// NewFlockActor spawns the population described by cfg. It fails on an invalid
// configuration so the actor system never starts with a broken store.
func NewFlockActor(snapshotCh chan<- *Snapshot, cfg *Config, logger log.Logger) (*FlockActor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []flock.Option{flock.WithLogger(logger)}
	if cfg.Seed != 0 {
		opts = append(opts, flock.WithSeed(cfg.Seed))
	}
	store, err := flock.Initialize(cfg.Population, cfg.WorldWidth, cfg.WorldHeight, cfg.Flock, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn flock: %w", err)
	}
	clock, err := flock.NewClock(cfg.Flock.TickRate, cfg.Flock.MaxSubsteps)
	if err != nil {
		return nil, fmt.Errorf("failed to create clock: %w", err)
	}
	return &FlockActor{
		store:       store,
		clock:       clock,
		cfg:         cfg,
		width:       cfg.WorldWidth,
		height:      cfg.WorldHeight,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}, nil
}

func (f *FlockActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("Flock of %d agents is ready, ticking at %.0f Hz", f.store.Len(), f.cfg.Flock.TickRate)
	return nil
}

func (f *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("Flock started in a %.0fx%.0f world", f.width, f.height)

	// Frame tick from the host, carrying the real time since the previous frame
	case *durationpb.Duration:
		if err := msg.CheckValid(); err != nil {
			ctx.Logger().Warnf("ignoring invalid frame duration: %v", err)
			return
		}
		snap := f.Step(msg.AsDuration())
		f.logBenchmarks(ctx.Logger())
		f.pushSnapshot(snap)

	// Window resize from the host
	case *structpb.Struct:
		w, h, err := parseResize(msg)
		if err != nil {
			ctx.Logger().Warnf("ignoring resize: %v", err)
			return
		}
		f.Resize(w, h)

	default:
		ctx.Unhandled()
	}
}

func (f *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("Flock is shutdown after %d frames, %d ticks", f.frame, f.store.Ticks())
	return nil
}

// Step advances the simulation by one frame that took elapsed real time and
// returns the resulting snapshot. Hosts without an actor system call it directly.
func (f *FlockActor) Step(elapsed time.Duration) *Snapshot {
	start := time.Now()
	f.store.RunBehaviorPass(f.width, f.height)
	n := f.clock.Substeps(elapsed)
	f.store.Advance(n)
	f.frame++

	f.frameCount++
	f.tickCount += n
	return &Snapshot{
		Agents:   f.store.CopyInto(make([]flock.Agent, 0, f.store.Len())),
		Frame:    f.frame,
		Substeps: n,
		Dropped:  f.clock.Dropped(),
		Width:    f.width,
		Height:   f.height,
		PassTime: time.Since(start),
	}
}

// Resize changes the world used by the next behavior pass. A world that cannot
// hold a single boid is ignored.
func (f *FlockActor) Resize(width, height float64) {
	if width <= f.cfg.Flock.BoidSize || height <= f.cfg.Flock.BoidSize {
		return
	}
	f.width, f.height = width, height
}

// Store exposes the underlying agent store, for tests and headless hosts.
func (f *FlockActor) Store() *flock.Store { return f.store }

func (f *FlockActor) pushSnapshot(snap *Snapshot) {
	select {
	case f.snapshotCh <- snap:
	default:
		// UI busy, skip frame
		f.skippedCount++
	}
}

func (f *FlockActor) logBenchmarks(logger log.Logger) {
	if time.Since(f.lastLogTime) < time.Second {
		return
	}
	dropped := f.clock.Dropped()
	logger.Infof("📊 FRAME RATE: %d/sec (Ticks: %d, Skipped snapshots: %d) | Agents: %d",
		f.frameCount, f.tickCount, f.skippedCount, f.store.Len())
	if dropped > f.lastDropped {
		logger.Warnf("simulation is falling behind: %d ticks dropped in the last second", dropped-f.lastDropped)
	}
	f.frameCount = 0
	f.tickCount = 0
	f.skippedCount = 0
	f.lastDropped = dropped
	f.lastLogTime = time.Now()
}

// FrameTick builds the frame message for a frame that took elapsed.
func FrameTick(elapsed time.Duration) *durationpb.Duration {
	return durationpb.New(elapsed)
}

// ResizeMessage builds the message announcing a new world size.
func ResizeMessage(width, height float64) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"width":  structpb.NewNumberValue(width),
		"height": structpb.NewNumberValue(height),
	}}
}

func parseResize(msg *structpb.Struct) (width, height float64, err error) {
	w, okW := msg.GetFields()["width"]
	h, okH := msg.GetFields()["height"]
	if !okW || !okH {
		return 0, 0, fmt.Errorf("resize message needs width and height, got %v", msg.AsMap())
	}
	width, height = w.GetNumberValue(), h.GetNumberValue()
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("resize to %vx%v: dimensions must be > 0", width, height)
	}
	return width, height, nil
}
