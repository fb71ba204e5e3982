package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envConfig mirrors the environment variables of the original deployment
// (PORT, DATABASE_URL, JWT_SECRET, ALLOWED_ORIGINS).
type envConfig struct {
	Port           string        `env:"PORT"`
	DatabaseDSN    string        `env:"DATABASE_URL"`
	SecretKey      string        `env:"JWT_SECRET"`
	TokenValidity  time.Duration `env:"TOKEN_VALIDITY"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	GinMode        string        `env:"GIN_MODE"`
}

// parseEnv overlays values from the process environment onto config. A .env
// file in the working directory is loaded into the environment first when
// present; existing variables win over file entries.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	c := envConfig{}
	if err := env.Parse(&c); err != nil {
		panic(err)
	}

	if c.Port != "" {
		config.EndpointAddr = ":" + c.Port
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidity != 0 {
		config.TokenValidityDuration = c.TokenValidity
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.GinMode != "" {
		config.GinMode = c.GinMode
	}
}
