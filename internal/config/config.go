// Package config provides layered configuration loading for the tracerd
// service: struct defaults overlaid with TRACERD_-prefixed environment
// variables, then validated. All knobs an operator may need live here;
// protocol constants (record format, expansion bounds) deliberately do not.
package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds the merged runtime configuration for the tracerd service.
type Config struct {
	Addr    string `koanf:"addr" validate:"required"`
	DataDir string `koanf:"data_dir" validate:"required,datadir"`

	// RecencyWindowHours is the dedup/active horizon in hour buckets. The
	// protocol's fetch bound expresses 21 days as 504 hours and that is the
	// default; see DESIGN.md for the history behind making this a knob.
	RecencyWindowHours int `koanf:"recency_window_hours" validate:"min=1,max=504"`

	// MaxCheckContacts caps the identifier count of a single check request.
	// Zero disables the cap.
	MaxCheckContacts int `koanf:"max_check_contacts" validate:"min=0"`

	MetricsToken         string        `koanf:"metrics_token"`
	MetricsFlushInterval time.Duration `koanf:"metrics_flush_interval" validate:"min=0"`

	// JanitorInterval and RetentionDays control optional pruning of bucket
	// files past the retention horizon. RetentionDays zero (the default)
	// disables the janitor entirely; the request path never prunes.
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"min=0"`
	RetentionDays   int           `koanf:"retention_days" validate:"min=0"`

	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// DefaultAppConfig is the base layer of the merge.
var DefaultAppConfig = Config{
	Addr:                 ":5000",
	DataDir:              "./db",
	RecencyWindowHours:   504,
	MaxCheckContacts:     10000,
	MetricsFlushInterval: 5 * time.Second,
	JanitorInterval:      time.Hour,
	RetentionDays:        0,
	LogLevel:             "info",
}

const envPrefix = "TRACERD_"

// Load merges defaults with environment variables and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate runs struct validation plus the custom datadir rule.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("datadir", validDataDir); err != nil {
		return fmt.Errorf("register validation: %w", err)
	}
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// validDataDir rejects paths that resolve to the filesystem root, the
// current directory itself, or escape upward. The store takes exclusive
// ownership of this directory, so pointing it at a shared location is
// always a mistake.
func validDataDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return false
	}
	clean := path.Clean(filepath.ToSlash(p))
	if clean == "." || clean == "/" || clean == "//" {
		return false
	}
	for _, seg := range strings.Split(strings.TrimPrefix(clean, "/"), "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}
