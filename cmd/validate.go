package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/deckviz/internal/deck"
)

var validateCmd = &cobra.Command{
	Use:   "validate [deck]",
	Short: "Check a deck against the schema and lint it",
	Long: `Validates the deck file against the deck JSON Schema and the structural
rules (unique ids, known shapes, chart types), then reports lint warnings such
as edges to undeclared nodes. With --print the normalized deck is written to
stdout in the chosen format, which also converts between YAML, TOML and JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := deckFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.Deck
		}

		d, err := deck.Load(path)
		if err != nil {
			return err
		}

		strict, _ := cmd.Flags().GetBool("strict")
		warnings := d.Lint()
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}

		if format, _ := cmd.Flags().GetString("print"); format != "" {
			out, err := deck.Marshal(d, deck.Format(format))
			if err != nil {
				return err
			}
			os.Stdout.Write(out)
		} else {
			fmt.Printf("%s: ok (%d slides, %d warnings)\n", path, len(d.Slides), len(warnings))
		}

		if strict && len(warnings) > 0 {
			return fmt.Errorf("%d lint warning(s)", len(warnings))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("strict", false, "treat lint warnings as errors")
	validateCmd.Flags().String("print", "", "print the normalized deck as yaml, toml or json")
	rootCmd.AddCommand(validateCmd)
}
