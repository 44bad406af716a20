package logging

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInitWithNilConfig(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init(nil) returned error: %v", err)
	}
	if Logger() == nil {
		t.Fatal("Logger() returned nil after Init")
	}
}

func TestInitWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approve.log")
	cfg := &Config{Level: "debug", Format: "json", Output: path}

	if err := Init(cfg); err != nil {
		t.Fatalf("Init with file output failed: %v", err)
	}

	Logger().Info("test entry")
}

func TestWithComponent(t *testing.T) {
	log := WithComponent("store")
	if log == nil {
		t.Fatal("WithComponent returned nil")
	}
}
