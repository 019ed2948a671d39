// Package config reads the objbridge configuration file.
//
//	maxDepth: 16
//	recursive: false
//	includeDeprecated: false
//	rules:
//	- 'Kind != "property" || !ReadOnly'
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  enabled: true
//	  namespace: objbridge
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/signadot/objbridge/metrics"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/reflector"
)

// Config is the configuration file structure.
type Config struct {
	// MaxDepth is the default depth limit; 0 means reflector.DefaultMaxDepth.
	MaxDepth int `yaml:"maxDepth" validate:"gte=0,lte=4096"`
	// Recursive expands nested entities instead of writing references.
	Recursive         bool     `yaml:"recursive"`
	IncludeDeprecated bool     `yaml:"includeDeprecated"`
	Rules             []string `yaml:"rules" validate:"dive,required"`

	Log     Log            `yaml:"log"`
	Metrics metrics.Config `yaml:"metrics"`
	// MetricsAddr, when set, serves /metrics on that address.
	MetricsAddr string `yaml:"metricsAddr" validate:"omitempty,hostname_port"`
}

type Log struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		MaxDepth: reflector.DefaultMaxDepth,
		Log:      Log{Level: "info", Format: "text"},
		Metrics:  metrics.Config{Namespace: "objbridge"},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a configuration over the defaults and validates it.  Unknown
// keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and that every rule compiles.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := policy.New(c.PolicyOptions()...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PolicyOptions returns the eligibility options the configuration asks for.
func (c *Config) PolicyOptions() []policy.Option {
	opts := []policy.Option{policy.IncludeDeprecated(c.IncludeDeprecated)}
	if len(c.Rules) > 0 {
		opts = append(opts, policy.WithRules(c.Rules...))
	}
	return opts
}

// ReflectorOptions returns the reflector options derived from c, creating
// the metrics collectors when enabled.
func (c *Config) ReflectorOptions(logger *slog.Logger) ([]reflector.Option, *metrics.Metrics, error) {
	m, err := metrics.New(c.Metrics)
	if err != nil {
		return nil, nil, err
	}
	opts := []reflector.Option{
		reflector.WithMaxDepth(c.MaxDepth),
		reflector.WithLogger(logger),
		reflector.WithMetrics(m),
	}
	return opts, m, nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Logger builds a logger writing to w in the configured format.  Text
// output leaves out the time.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	hOpts := &slog.HandlerOptions{Level: c.Level()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hOpts))
	}
	hOpts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		return a
	}
	return slog.New(slog.NewTextHandler(w, hOpts))
}
