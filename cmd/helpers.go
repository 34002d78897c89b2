package cmd

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/config"
	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/logging"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `deckviz init` to create a config file", err)
	}
	if deckFile != "" {
		cfg.Deck = deckFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the logger for cfg; --verbose forces debug.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Log.Development)
}

// setup loads config and logger together, as every deck command needs both.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// loadDeck reads the configured deck and logs lint warnings.
func loadDeck(cfg *config.Config, logger *zap.Logger) (*deck.Deck, error) {
	d, err := deck.Load(cfg.Deck)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("deck %s not found\nRun `deckviz init` to create a starter deck", cfg.Deck)
		}
		return nil, err
	}
	for _, w := range d.Lint() {
		logger.Warn("deck lint", zap.String("warning", w.String()))
	}
	return d, nil
}
