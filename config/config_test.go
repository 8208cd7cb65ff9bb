package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.UCIDepth != 8 || cfg.UCIPath != "" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHESSBOARD_PORT", "9090")
	t.Setenv("CHESSBOARD_UCI_PATH", "/usr/bin/stockfish")
	t.Setenv("CHESSBOARD_UCI_MOVETIME", "750ms")
	t.Setenv("CHESSBOARD_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || cfg.UCIPath != "/usr/bin/stockfish" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.UCIMoveTime != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %s", cfg.UCIMoveTime)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("CHESSBOARD_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out of range port")
	}
}
