package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/deckviz/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Export the deck as a self-contained static site",
	Long: `Renders every slide ahead of time and writes index.html plus matching
assets to the output directory. The exported page needs no server; it can be
opened from disk or hosted anywhere.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("output", "", "override output directory")
	buildCmd.Flags().StringSlice("exclude", nil, "glob patterns of assets to skip")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	d, err := loadDeck(cfg, logger)
	if err != nil {
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output")
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	exclude, _ := cmd.Flags().GetStringSlice("exclude")

	g := site.NewGenerator(d, outputDir)
	g.AssetRoot = filepath.Dir(cfg.Deck)
	g.Assets = cfg.Assets
	g.Exclude = exclude
	g.Stagger = cfg.Stagger()
	g.Logger = logger

	stats, err := g.Generate(context.Background())
	if err != nil {
		return fmt.Errorf("building site: %w", err)
	}

	fmt.Printf("Static deck written: %s (%d slides, %d diagrams, %d charts, %d assets)\n",
		filepath.Join(outputDir, "index.html"), stats.Slides, stats.Diagrams, stats.Charts, stats.Assets)
	for _, s := range stats.Skipped {
		fmt.Printf("  skipped: %s\n", s)
	}
	return nil
}
