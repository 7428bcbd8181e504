// Package viewer renders a flock driven by a FlockActor in an ebiten window.
package viewer

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/log"
)

var (
	whiteImage = ebiten.NewImage(3, 3)
	background = color.RGBA{R: 10, G: 10, B: 30, A: 255}

	groupColors = map[flock.Group][4]float32{
		flock.GroupNone:   {0.40, 0.78, 1.00, 1},
		flock.GroupScoutA: {1.00, 0.35, 0.25, 1},
		flock.GroupScoutB: {0.35, 1.00, 0.45, 1},
	}
)

// one triangle per boid, and DrawTriangles indexes vertices with uint16
const maxBoidsPerBatch = math.MaxUint16 / 3

type Game struct {
	ctx        context.Context
	System     actor.ActorSystem
	flockPID   *actor.PID
	snapshotCh chan *simulation.Snapshot
	lastState  *simulation.Snapshot

	cfg           *simulation.Config
	width, height int
	lastFrame     time.Time

	vertices []ebiten.Vertex
	indices  []uint16

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64 // Rolling average in ms
}

// NewGame spawns the flock actor in system and returns the ebiten game that
// drives it, one frame message per ebiten update.
func NewGame(ctx context.Context, cfg *simulation.Config, system actor.ActorSystem, logger log.Logger) (*Game, error) {
	// small buffer: the renderer only ever wants the latest frame
	snapshotCh := make(chan *simulation.Snapshot, 2)

	flockActor, err := simulation.NewFlockActor(snapshotCh, cfg, logger)
	if err != nil {
		return nil, err
	}
	flockPID, err := system.Spawn(ctx, "flock", flockActor)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn flock: %w", err)
	}

	return &Game{
		ctx:        ctx,
		System:     system,
		flockPID:   flockPID,
		snapshotCh: snapshotCh,
		lastState:  &simulation.Snapshot{}, // Avoid nil pointer
		cfg:        cfg,
		width:      int(cfg.WorldWidth),
		height:     int(cfg.WorldHeight),
	}, nil
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	// Retrieve Latest State (Non-blocking)
	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
		// Use previous state if new one isn't ready
	}

	var elapsed time.Duration
	if !g.lastFrame.IsZero() {
		elapsed = start.Sub(g.lastFrame)
	}
	g.lastFrame = start

	return actor.Tell(g.ctx, g.flockPID, simulation.FrameTick(elapsed))
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(background)

	agents := g.lastState.Agents
	for len(agents) > 0 {
		n := min(len(agents), maxBoidsPerBatch)
		g.drawBoids(screen, agents[:n])
		agents = agents[n:]
	}

	msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\n\nAgents: %d\nFrame:  %d\nTicks:  %d/frame\nDropped: %d\n\nPass:   %.2fms\nUpdate: %.2fms\nDraw:   %.2fms",
		ebiten.ActualFPS(),
		ebiten.ActualTPS(),
		len(g.lastState.Agents),
		g.lastState.Frame,
		g.lastState.Substeps,
		g.lastState.Dropped,
		float64(g.lastState.PassTime.Microseconds())/1000.0,
		g.updateAvg,
		g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, 10, 10)
}

// drawBoids renders agents as triangles pointing along their heading, in a
// single DrawTriangles call.
func (g *Game) drawBoids(screen *ebiten.Image, agents []flock.Agent) {
	g.vertices = g.vertices[:0]
	g.indices = g.indices[:0]

	tip := g.cfg.Flock.BoidSize / 2
	wing := g.cfg.Flock.BoidSize * 0.4

	for i, a := range agents {
		angle := a.Heading()
		c := groupColors[a.Group]
		for _, p := range [3]struct{ dist, angle float64 }{
			{tip, angle},
			{wing, angle + 2.5},
			{wing, angle - 2.5},
		} {
			g.vertices = append(g.vertices, ebiten.Vertex{
				DstX:   float32(a.Pos.X + math.Cos(p.angle)*p.dist),
				DstY:   float32(a.Pos.Y + math.Sin(p.angle)*p.dist),
				SrcX:   1,
				SrcY:   1,
				ColorR: c[0], ColorG: c[1], ColorB: c[2], ColorA: c[3],
			})
		}
		base := uint16(3 * i)
		g.indices = append(g.indices, base, base+1, base+2)
	}

	screen.DrawTriangles(g.vertices, g.indices, whiteImage, &ebiten.DrawTrianglesOptions{})
}

// Layout follows the window size and forwards every change to the flock, so
// the world always matches what is on screen.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		_ = actor.Tell(g.ctx, g.flockPID, simulation.ResizeMessage(float64(outsideWidth), float64(outsideHeight)))
	}
	return g.width, g.height
}

func init() {
	whiteImage.Fill(color.White)
}
