package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the process-wide settings. Values come from the
// environment (optionally seeded from a local .env file); cobra flags may
// override individual fields at the command layer.
type Config struct {
	Port     int
	DataRoot string

	// ServerURL is where the post-receive hook reaches the API.
	ServerURL string

	// Engine selects the CI backend adapter: "ciserver" or "docker".
	Engine    string
	CIBaseURL string
	CIToken   string

	RunnerInterval time.Duration
	RunnerBatch    int
}

func Load() *Config {
	// Local development convenience only; absence is fine.
	_ = godotenv.Load()

	return &Config{
		Port:           envInt("FORGEHOST_PORT", 8080),
		DataRoot:       envStr("FORGEHOST_DATA_ROOT", "./data"),
		ServerURL:      envStr("FORGEHOST_SERVER_URL", "http://127.0.0.1:8080"),
		Engine:         envStr("FORGEHOST_ENGINE", "ciserver"),
		CIBaseURL:      envStr("FORGEHOST_CI_BASE_URL", ""),
		CIToken:        envStr("FORGEHOST_CI_TOKEN", ""),
		RunnerInterval: envDuration("FORGEHOST_RUNNER_INTERVAL", 3*time.Second),
		RunnerBatch:    envInt("FORGEHOST_RUNNER_BATCH", 10),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
