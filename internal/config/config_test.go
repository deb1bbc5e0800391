package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Engine != "ciserver" {
		t.Errorf("Engine = %q, want ciserver", cfg.Engine)
	}
	if cfg.RunnerInterval != 3*time.Second {
		t.Errorf("RunnerInterval = %v, want 3s", cfg.RunnerInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FORGEHOST_PORT", "9090")
	t.Setenv("FORGEHOST_ENGINE", "docker")
	t.Setenv("FORGEHOST_RUNNER_INTERVAL", "500ms")
	t.Setenv("FORGEHOST_RUNNER_BATCH", "25")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Engine != "docker" {
		t.Errorf("Engine = %q, want docker", cfg.Engine)
	}
	if cfg.RunnerInterval != 500*time.Millisecond {
		t.Errorf("RunnerInterval = %v", cfg.RunnerInterval)
	}
	if cfg.RunnerBatch != 25 {
		t.Errorf("RunnerBatch = %d, want 25", cfg.RunnerBatch)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("FORGEHOST_PORT", "not-a-number")
	t.Setenv("FORGEHOST_RUNNER_INTERVAL", "soon")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want fallback 8080", cfg.Port)
	}
	if cfg.RunnerInterval != 3*time.Second {
		t.Errorf("RunnerInterval = %v, want fallback 3s", cfg.RunnerInterval)
	}
}
