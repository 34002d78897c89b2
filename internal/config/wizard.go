package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// deckPatterns are the file names checked for an existing deck.
var deckPatterns = []string{"deck.yaml", "deck.yml", "deck.toml", "deck.json", "*.deck.yaml"}

// detectDeck returns the first deck file found in the current directory.
func detectDeck() string {
	for _, pattern := range deckPatterns {
		matches, _ := filepath.Glob(pattern)
		if len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .deckviz.yml. When no deck
// exists yet, writeDeck is called with the chosen path so the caller can
// seed it.
func RunWizard(writeDeck func(path string) error) (*Config, error) {
	fmt.Println("Welcome to deckviz! Let's configure your presentation.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Deck file.
	deckPath := detectDeck()
	if deckPath != "" {
		fmt.Printf("Found deck: %s\n\n", deckPath)
	} else {
		deckPath = cfg.Deck
	}
	deckPrompt := promptui.Prompt{
		Label:   "Deck file (.yaml, .toml or .json)",
		Default: deckPath,
	}
	deckPath, err := deckPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("deck path: %w", err)
	}
	cfg.Deck = deckPath

	// 2. Animation pace.
	pacePrompt := promptui.Select{
		Label: "Select animation pace",
		Items: []string{
			"brisk    (60ms step, 350ms fade)",
			"standard (100ms step, 500ms fade)",
			"relaxed  (160ms step, 800ms fade)",
		},
		CursorPos: 1,
	}
	paceIdx, _, err := pacePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("pace selection: %w", err)
	}
	cfg.Animation = paces[paceIdx]

	// 3. Server port.
	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 4. Output directory.
	outputPrompt := promptui.Prompt{
		Label:   "Output directory for static builds",
		Default: cfg.OutputDir,
	}
	outputDir, err := outputPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	cfg.OutputDir = outputDir

	// 5. Extra asset patterns.
	assetPrompt := promptui.Prompt{
		Label:   "Extra asset patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	assetStr, err := assetPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("asset patterns: %w", err)
	}
	if assetStr != "" {
		cfg.Assets = append(append([]string{}, DefaultAssets...), splitAndTrim(assetStr)...)
	}

	if _, err := os.Stat(cfg.Deck); os.IsNotExist(err) && writeDeck != nil {
		if err := writeDeck(cfg.Deck); err != nil {
			return nil, fmt.Errorf("writing starter deck: %w", err)
		}
		fmt.Printf("\nStarter deck written to %s\n", cfg.Deck)
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

var paces = []AnimationConfig{
	{StepMs: 60, DurationMs: 350},
	{StepMs: 100, DurationMs: 500},
	{StepMs: 160, DurationMs: 800},
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
