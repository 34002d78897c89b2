package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/deckviz/internal/deck"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#667eea"))
	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ff6b35")).
		Width(22)
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8a8a8a"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f5a623"))
)

var slidesCmd = &cobra.Command{
	Use:   "slides",
	Short: "List the deck's slides and their visualizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		d, err := deck.Load(cfg.Deck)
		if err != nil {
			return err
		}
		fmt.Print(renderSlides(d))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slidesCmd)
}

// renderSlides formats the slide list for the terminal.
func renderSlides(d *deck.Deck) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Title))
	if d.Author != "" {
		b.WriteString(mutedStyle.Render("  by " + d.Author))
	}
	b.WriteString("\n\n")

	for i, s := range d.Slides {
		var viz []string
		for _, spec := range s.Diagrams {
			viz = append(viz, fmt.Sprintf("diagram %s (%d nodes)", spec.Container, len(spec.Nodes)))
		}
		for _, c := range s.Charts {
			viz = append(viz, fmt.Sprintf("%s chart %s", c.Config.Type, c.Canvas))
		}
		if s.Fragments > 0 {
			viz = append(viz, fmt.Sprintf("%d fragments", s.Fragments))
		}
		fmt.Fprintf(&b, "%2d  %s %s\n", i+1, idStyle.Render(s.ID), s.Title)
		if len(viz) > 0 {
			b.WriteString("    " + mutedStyle.Render(strings.Join(viz, ", ")) + "\n")
		}
	}

	if warnings := d.Lint(); len(warnings) > 0 {
		b.WriteString("\n")
		for _, w := range warnings {
			b.WriteString(warnStyle.Render("warning: "+w.String()) + "\n")
		}
	}
	return b.String()
}
