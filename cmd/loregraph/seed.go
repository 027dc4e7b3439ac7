package loregraph

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/loregraph"
	"github.com/soundprediction/loregraph/pkg/config"
)

var seedCmd = &cobra.Command{
	Use:   "seed [world.yaml]",
	Short: "Populate the graph with a starting world",
	Long: `Write a hand-authored world (locations, exits, items and characters) to
the graph store. Without a file the built-in forest world is used. JSON files
are accepted too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

var seedClear bool

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "Clear the graph before seeding")
	addStackFlags(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	var world *loregraph.World
	if len(args) == 1 {
		w, err := loadWorld(args[0])
		if err != nil {
			return err
		}
		world = w
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)
	if err := validateStackConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if seedClear {
		if err := a.client.ClearGraph(ctx); err != nil {
			return err
		}
	}
	if err := a.client.SeedWorld(ctx, world); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "world seeded")
	return nil
}

func loadWorld(path string) (*loregraph.World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var world loregraph.World
	if err := yaml.Unmarshal(data, &world); err != nil {
		return nil, fmt.Errorf("failed to parse world %s: %w", path, err)
	}
	if len(world.Locations) == 0 {
		return nil, fmt.Errorf("world %s has no locations", path)
	}
	return &world, nil
}
