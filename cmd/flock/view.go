package main

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/viewer"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/actor"
)

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Run the simulation in a window",
		Long: `Open a window and run the flock inside an actor system. The world follows
the window size.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			system, err := actor.NewActorSystem("FlockWorld",
				actor.WithLogger(logger),
				actor.WithActorInitMaxRetries(3))
			if err != nil {
				return fmt.Errorf("failed to create actor system: %w", err)
			}
			if err := system.Start(ctx); err != nil {
				return fmt.Errorf("failed to start actor system: %w", err)
			}
			defer func() { _ = system.Stop(ctx) }()

			game, err := viewer.NewGame(ctx, cfg, system, logger)
			if err != nil {
				return err
			}

			ebiten.SetWindowSize(int(cfg.WorldWidth), int(cfg.WorldHeight))
			ebiten.SetWindowTitle(fmt.Sprintf("Flock: %d boids", cfg.Population))
			ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
			return ebiten.RunGame(game)
		},
	}
}
