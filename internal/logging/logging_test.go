package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := New("debug", dev)
		if err != nil {
			t.Fatalf("New(debug, %v): %v", dev, err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("development=%v: debug level not enabled", dev)
		}
		_ = logger.Sync()
	}
	if _, err := New("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}
