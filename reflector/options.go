package reflector

import (
	"log/slog"
	"reflect"

	"github.com/signadot/objbridge/convert"
	"github.com/signadot/objbridge/metrics"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/reference"
)

// DefaultMaxDepth is used when a call passes maxDepth <= 0 and no
// WithMaxDepth option was given.
const DefaultMaxDepth = 16

// Option configures a Reflector.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type typeEntry struct {
	t     reflect.Type
	names []string
}

type config struct {
	converters []convert.Converter
	types      []typeEntry
	registry   *convert.Registry
	policy     policy.Policy
	provider   reference.IdentityProvider
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxDepth   int
}

// WithConverters registers converters after the built-in ones.
func WithConverters(cs ...convert.Converter) Option {
	return optionFunc(func(c *config) {
		c.converters = append(c.converters, cs...)
	})
}

// WithTypes registers the type id names[0] for t, with the rest of names
// accepted as aliases on input.  Types must be registered for polymorphic
// values to deserialize.
func WithTypes(t reflect.Type, names ...string) Option {
	return optionFunc(func(c *config) {
		c.types = append(c.types, typeEntry{t: t, names: names})
	})
}

// WithRegistry uses an already built registry.  It cannot be combined with
// WithConverters or WithTypes.
func WithRegistry(r *convert.Registry) Option {
	return optionFunc(func(c *config) { c.registry = r })
}

// WithPolicy sets the member eligibility policy.  The default is
// policy.New() with no options.
func WithPolicy(p policy.Policy) Option {
	return optionFunc(func(c *config) { c.policy = p })
}

// WithIdentityProvider sets the provider references are resolved against.
func WithIdentityProvider(p reference.IdentityProvider) Option {
	return optionFunc(func(c *config) { c.provider = p })
}

// WithLogger sets the logger.  Diagnostics are mirrored to it at debug
// level.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) { c.logger = l })
}

// WithMetrics records calls on m.  m may be nil.
func WithMetrics(m *metrics.Metrics) Option {
	return optionFunc(func(c *config) { c.metrics = m })
}

// WithMaxDepth sets the depth used when a call passes maxDepth <= 0.
func WithMaxDepth(n int) Option {
	return optionFunc(func(c *config) { c.maxDepth = n })
}
