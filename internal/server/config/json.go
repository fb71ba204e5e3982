package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/dmitrijs2005/brestid/internal/flagx"
	"github.com/dmitrijs2005/brestid/internal/timex"
)

// JsonConfig is the DTO for reading a JSON configuration file. It uses
// timex.Duration for the token lifetime, which parses both string values
// such as "168h" and integer nanoseconds. After unmarshalling, non-empty
// fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	AllowedOrigins        string         `json:"allowed_origins"`
	GinMode               string         `json:"gin_mode"`
}

// parseJson loads configuration values from the JSON file given via the
// -c/-config flags, if any. A missing flag means no file is loaded; an
// unreadable or invalid file panics, since the operator explicitly asked
// for it.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	applyJson(config, file)
}

func applyJson(config *Config, data []byte) {
	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.AllowedOrigins != "" {
		config.AllowedOrigins = strings.Split(c.AllowedOrigins, ",")
	}
	if c.GinMode != "" {
		config.GinMode = c.GinMode
	}
}
