package config

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".deckviz.yml"

// DefaultAssets are glob patterns copied next to a static build.
var DefaultAssets = []string{
	"assets/**",
	"images/**/*.{png,jpg,jpeg,svg,gif}",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Deck:      "deck.yaml",
		OutputDir: "dist",
		Assets:    append([]string(nil), DefaultAssets...),
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8888,
			PortRange:       100,
			Open:            true,
			EventsPerSecond: 20,
		},
		Gate: GateConfig{
			IntervalMs:  100,
			MaxAttempts: 50,
		},
		Animation: AnimationConfig{
			StepMs:     100,
			DurationMs: 500,
		},
		Capture: CaptureConfig{
			Dir:        "slide_images",
			Width:      1920,
			Height:     1080,
			LoadMs:     3000,
			SettleMs:   1000,
			FragmentMs: 500,
			Headless:   true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
