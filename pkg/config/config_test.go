package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("ENV")
	os.Unsetenv("KIWOOM_REQUEST_INTERVAL")
	os.Unsetenv("TRADING_INITIAL_CAPITAL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Kiwoom.RequestInterval != time.Second {
		t.Errorf("Expected RequestInterval to be 1s, got %s", cfg.Kiwoom.RequestInterval)
	}

	if cfg.Kiwoom.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries to be 3, got %d", cfg.Kiwoom.MaxRetries)
	}

	if cfg.Trading.InitialCapital != 10_000_000 {
		t.Errorf("Expected InitialCapital to be 10_000_000, got %d", cfg.Trading.InitialCapital)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("ENV", "production")
	os.Setenv("KIWOOM_REQUEST_INTERVAL", "500ms")
	os.Setenv("TRADING_INITIAL_CAPITAL", "50000000")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("ENV")
		os.Unsetenv("KIWOOM_REQUEST_INTERVAL")
		os.Unsetenv("TRADING_INITIAL_CAPITAL")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Kiwoom.RequestInterval != 500*time.Millisecond {
		t.Errorf("Expected RequestInterval to be 500ms, got %s", cfg.Kiwoom.RequestInterval)
	}

	if cfg.Trading.InitialCapital != 50_000_000 {
		t.Errorf("Expected InitialCapital to be 50_000_000, got %d", cfg.Trading.InitialCapital)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel to be debug, got %s", cfg.LogLevel)
	}
}

func TestValidateBadEnv(t *testing.T) {
	os.Setenv("ENV", "sandbox")
	defer os.Unsetenv("ENV")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid ENV, got nil")
	}
}

func TestValidateBadCapital(t *testing.T) {
	os.Setenv("TRADING_INITIAL_CAPITAL", "-1")
	defer os.Unsetenv("TRADING_INITIAL_CAPITAL")

	if _, err := Load(); err == nil {
		t.Error("Expected error for negative initial capital, got nil")
	}
}
