package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	MaxDepth int    `env:"ORACLES_TEST_MAX_DEPTH" envDefault:"8"`
	Mode     string `env:"ORACLES_TEST_MODE" envDefault:"starforged"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.MaxDepth != 8 {
		t.Fatalf("expected default max depth 8, got %d", cfg.MaxDepth)
	}
	if cfg.Mode != "starforged" {
		t.Fatalf("expected default mode starforged, got %q", cfg.Mode)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("ORACLES_TEST_MAX_DEPTH", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvFromUsesExplicitEnvironment(t *testing.T) {
	t.Setenv("ORACLES_TEST_MODE", "process")

	var cfg envTestConfig
	if err := ParseEnvFrom(&cfg, map[string]string{"ORACLES_TEST_MODE": "classic"}); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Mode != "classic" {
		t.Fatalf("mode = %q, want %q", cfg.Mode, "classic")
	}
	if cfg.MaxDepth != 8 {
		t.Fatalf("max depth = %d, want 8", cfg.MaxDepth)
	}
}

func TestParseEnvFromNilFallsBackToProcess(t *testing.T) {
	t.Setenv("ORACLES_TEST_MODE", "process")

	var cfg envTestConfig
	if err := ParseEnvFrom(&cfg, nil); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Mode != "process" {
		t.Fatalf("mode = %q, want %q", cfg.Mode, "process")
	}
}
