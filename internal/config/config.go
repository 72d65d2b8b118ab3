// Package config loads the settings of the odigen command from .env files
// and the process environment.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Environment keys.
const (
	KeyEnv      = "ODI_ENV"
	KeyLogLevel = "ODI_LOG_LEVEL"
	KeyMetrics  = "ODI_METRICS"
	KeyFacts    = "ODI_FACTS"
)

const prefix = "ODI_"

// Config is the typed configuration.
type Config struct {
	// Env is "development" or "production"; it picks the logger flavour.
	Env string `mapstructure:"ODI_ENV" validate:"oneof=development production"`

	// LogLevel is a zap level name.
	LogLevel string `mapstructure:"ODI_LOG_LEVEL" validate:"oneof=debug info warn error"`

	// Metrics enables the prometheus observer and the metrics report of run.
	Metrics bool `mapstructure:"ODI_METRICS"`

	// Facts is the default fact file path.
	Facts string `mapstructure:"ODI_FACTS"`
}

// Defaults returns the values used for unset keys.
func Defaults() map[string]string {
	return map[string]string{
		KeyEnv:      "development",
		KeyLogLevel: "info",
		KeyMetrics:  "false",
		KeyFacts:    "",
	}
}

var validate = validator.New()

// Load reads the given .env files (".env" when none are given; missing files
// are skipped), overlays ODI_* variables from the process environment and
// decodes the result.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	values := Defaults()
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		kv, err := godotenv.Read(f)
		if err != nil {
			return nil, errors.Wrapf(err, "config: read %s", f)
		}
		merge(values, kv)
	}

	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	merge(values, env)

	return Decode(values)
}

// Decode converts raw key/value pairs into a Config. Values are decoded
// weakly, so ODI_METRICS accepts "1" and "true" alike.
func Decode(values map[string]string) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, errors.Wrap(err, "config: decoder")
	}
	if err := dec.Decode(values); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	cfg.Env = strings.ToLower(cfg.Env)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: invalid")
	}
	return &cfg, nil
}

// IsProduction reports whether Env is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

// merge copies ODI_* keys of src into dst.
func merge(dst, src map[string]string) {
	for k, v := range src {
		if strings.HasPrefix(k, prefix) {
			dst[k] = v
		}
	}
}
