package config

// Config is the top-level deckviz configuration, corresponding to .deckviz.yml.
type Config struct {
	Deck      string          `yaml:"deck" koanf:"deck"`
	OutputDir string          `yaml:"output_dir" koanf:"output_dir"`
	Assets    []string        `yaml:"assets" koanf:"assets"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Gate      GateConfig      `yaml:"gate" koanf:"gate"`
	Animation AnimationConfig `yaml:"animation" koanf:"animation"`
	Capture   CaptureConfig   `yaml:"capture" koanf:"capture"`
	Watch     bool            `yaml:"watch" koanf:"watch"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
}

// ServerConfig holds presentation server settings.
type ServerConfig struct {
	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`
	// PortRange is how many ports above Port are tried when Port is taken.
	PortRange int  `yaml:"port_range" koanf:"port_range"`
	Open      bool `yaml:"open" koanf:"open"`
	// EventsPerSecond limits slide events per websocket connection.
	EventsPerSecond float64 `yaml:"events_per_second" koanf:"events_per_second"`
}

// GateConfig tunes the readiness gate.
type GateConfig struct {
	IntervalMs  int `yaml:"interval_ms" koanf:"interval_ms"`
	MaxAttempts int `yaml:"max_attempts" koanf:"max_attempts"`
}

// AnimationConfig holds deck-wide stagger defaults.
type AnimationConfig struct {
	StepMs     int `yaml:"step_ms" koanf:"step_ms"`
	DurationMs int `yaml:"duration_ms" koanf:"duration_ms"`
	MaxTotalMs int `yaml:"max_total_ms" koanf:"max_total_ms"`
}

// CaptureConfig holds screenshot export settings.
type CaptureConfig struct {
	Dir         string `yaml:"dir" koanf:"dir"`
	Width       int    `yaml:"width" koanf:"width"`
	Height      int    `yaml:"height" koanf:"height"`
	LoadMs      int    `yaml:"load_ms" koanf:"load_ms"`
	SettleMs    int    `yaml:"settle_ms" koanf:"settle_ms"`
	FragmentMs  int    `yaml:"fragment_ms" koanf:"fragment_ms"`
	BrowserPath string `yaml:"browser_path" koanf:"browser_path"`
	Headless    bool   `yaml:"headless" koanf:"headless"`
}

// LogConfig selects the logger flavor.
type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}
