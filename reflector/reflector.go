// Package reflector is the engine façade: it serializes live Go values to
// wire members, deserializes members to new values and populates existing
// values in place from partial members.
//
// A Reflector owns an immutable converter registry, an eligibility policy,
// a reference resolver and a schema generator.  It keeps no per-call state
// and may be used concurrently, but a Populate target must not be touched
// by anything else while the call runs.
package reflector

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/convert"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/metrics"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/reference"
	"github.com/signadot/objbridge/schema"
	"github.com/signadot/objbridge/wire"
)

// Reflector converts between live values and wire members.
type Reflector struct {
	reg      *convert.Registry
	policy   policy.Policy
	resolver *reference.Resolver
	schemas  *schema.Generator
	log      *slog.Logger
	metrics  *metrics.Metrics
	maxDepth int
}

// New creates a Reflector.
func New(opts ...Option) (*Reflector, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = DefaultMaxDepth
	}
	if cfg.policy == nil {
		p, err := policy.New()
		if err != nil {
			return nil, err
		}
		cfg.policy = p
	}
	reg := cfg.registry
	if reg != nil {
		if len(cfg.converters) > 0 || len(cfg.types) > 0 {
			return nil, errors.New("WithRegistry cannot be combined with WithConverters or WithTypes")
		}
	} else {
		b := convert.NewBuilder()
		if err := b.Register(convert.Defaults()...); err != nil {
			return nil, err
		}
		if err := b.Register(cfg.converters...); err != nil {
			return nil, err
		}
		for _, te := range cfg.types {
			if err := b.RegisterType(te.t, te.names...); err != nil {
				return nil, err
			}
		}
		reg = b.Build()
	}
	return &Reflector{
		reg:      reg,
		policy:   cfg.policy,
		resolver: reference.NewResolver(cfg.provider, cfg.logger),
		schemas:  schema.New(reg, cfg.policy, schema.WithLogger(cfg.logger)),
		log:      cfg.logger,
		metrics:  cfg.metrics,
		maxDepth: cfg.maxDepth,
	}, nil
}

// Registry returns the converter registry.
func (r *Reflector) Registry() *convert.Registry { return r.reg }

// Resolver returns the reference resolver.
func (r *Reflector) Resolver() *reference.Resolver { return r.resolver }

// Policy returns the eligibility policy.
func (r *Reflector) Policy() policy.Policy { return r.policy }

// Schemas returns the schema generator.
func (r *Reflector) Schemas() *schema.Generator { return r.schemas }

func (r *Reflector) depth(maxDepth int) int {
	if maxDepth <= 0 {
		return r.maxDepth
	}
	return maxDepth
}

func (r *Reflector) newCall(op convert.Op, log *diag.Log, maxDepth int, recursive bool) *convert.Call {
	return convert.NewCall(&convert.CallSpec{
		Op:        op,
		Walker:    &walker{r: r},
		Registry:  r.reg,
		Policy:    r.policy,
		Resolver:  r.resolver,
		Log:       log,
		Logger:    r.log,
		MaxDepth:  maxDepth,
		Recursive: recursive,
	})
}

// Serialize converts obj to a member tree.  Nodes deeper than maxDepth
// member edges from the root are left out and reported as DepthExceeded.
// When recursive, nested identity-bearing values are expanded instead of
// written as references, as far as their converters allow.
func (r *Reflector) Serialize(obj any, maxDepth int, recursive bool) (m *wire.Member, log *diag.Log, err error) {
	start := time.Now()
	log = diag.NewLog(r.log)
	defer func() { r.metrics.ObserveCall(convert.OpSerialize.String(), start, log, err) }()
	if obj == nil {
		return wire.Null("", ""), log, nil
	}
	c := r.newCall(convert.OpSerialize, log, r.depth(maxDepth), recursive)
	m, err = c.SerializeInline(reflect.ValueOf(obj), "")
	if err != nil {
		return nil, log, err
	}
	if m == nil {
		m = wire.Absent("", r.reg.TypeName(reflect.TypeOf(obj)))
	}
	return m, log, nil
}

// Deserialize builds a new value of type t from m.  A member which cannot
// be converted at the root yields a nil result with the reason in the log.
func (r *Reflector) Deserialize(m *wire.Member, t reflect.Type) (res any, log *diag.Log, err error) {
	start := time.Now()
	log = diag.NewLog(r.log)
	defer func() { r.metrics.ObserveCall(convert.OpDeserialize.String(), start, log, err) }()
	if t == nil {
		return nil, log, fmt.Errorf("%w: nil type", diag.ErrInvalidTarget)
	}
	if err := validate(m); err != nil {
		return nil, log, err
	}
	c := r.newCall(convert.OpDeserialize, log, r.maxDepth, false)
	v, err := c.DeserializeInline(m, t)
	if err != nil {
		return nil, log, err
	}
	if !v.IsValid() {
		return nil, log, nil
	}
	return v.Interface(), log, nil
}

// DeserializeAs is Deserialize for a static type.
func DeserializeAs[T any](r *Reflector, m *wire.Member) (T, *diag.Log, error) {
	var zero T
	res, log, err := r.Deserialize(m, reflect.TypeFor[T]())
	if err != nil || res == nil {
		return zero, log, err
	}
	return res.(T), log, nil
}

// Populate merges m into the value target points to.  Members absent from
// m leave the corresponding state untouched.  The result is false if any
// warning or error was recorded, i.e. some part of m was not applied.
func (r *Reflector) Populate(target any, m *wire.Member, maxDepth int) (ok bool, log *diag.Log, err error) {
	start := time.Now()
	log = diag.NewLog(r.log)
	defer func() { r.metrics.ObserveCall(convert.OpPopulate.String(), start, log, err) }()
	tv := reflect.ValueOf(target)
	if !tv.IsValid() || tv.Kind() != reflect.Pointer || tv.IsNil() {
		return false, log, fmt.Errorf("%w: populate needs a non-nil pointer, got %T", diag.ErrInvalidTarget, target)
	}
	if err := validate(m); err != nil {
		return false, log, err
	}
	c := r.newCall(convert.OpPopulate, log, r.depth(maxDepth), false)
	if err := c.PopulateInline(tv.Elem(), m); err != nil {
		return false, log, err
	}
	return !log.Failed(), log, nil
}

// Members returns the fields and properties of t which Serialize writes
// and Populate accepts.
func (r *Reflector) Members(t reflect.Type) (policy.Set, error) {
	conv, err := r.reg.Resolve(t)
	if err != nil {
		return policy.Set{}, err
	}
	return conv.Members(r.policy, t)
}

// SchemaFor returns the JSON Schema of t.
func (r *Reflector) SchemaFor(t reflect.Type) (*jsonschema.Schema, error) {
	return r.schemas.SchemaFor(t)
}

func validate(m *wire.Member) error {
	if err := m.Validate(); err != nil {
		var me *wire.MalformedError
		if errors.As(err, &me) {
			return diag.Malformed(me.Path, err)
		}
		return diag.Malformed("", err)
	}
	return nil
}
