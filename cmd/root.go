package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/deckviz/internal/config"
)

var (
	cfgFile  string
	deckFile string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "deckviz",
	Short: "Animated diagram and chart slides from a deck file",
	Long: `deckviz turns a YAML, TOML or JSON deck into a reveal.js presentation
whose flow diagrams and charts are rendered on the server and animated as
each slide is shown. Serve it live, export it as a static site or capture
every slide as an image.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&deckFile, "deck", "", "deck file (overrides the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
