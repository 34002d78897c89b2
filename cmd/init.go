package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/deckviz/internal/config"
	"github.com/ziadkadry99/deckviz/internal/deck"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize deckviz configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure deckviz for your presentation and generates a .deckviz.yml file. A starter deck is written when none exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(func(path string) error {
			return os.WriteFile(path, deck.DefaultSource(), 0o644)
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
