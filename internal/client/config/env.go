package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. LOGMOMENTS_DATA_DIR.
const EnvPrefix = "LOGMOMENTS"

// loadEnv overlays cfg with the LOGMOMENTS_* variables that are set.
// Unset variables keep the value from earlier sources.
func loadEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}
	return nil
}

func envConfigPath() string {
	return os.Getenv(EnvPrefix + "_CONFIG")
}
