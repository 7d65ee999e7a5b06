package config

import (
	"github.com/caarlos0/env/v11"
)

// parseEnv overlays variables that are set in the environment. Unset
// variables leave the current value alone. Malformed values panic, like the
// other config sources.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
