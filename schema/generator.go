// Package schema derives JSON Schemas for Go types from the converters that
// handle them.
//
// Each converter describes its own type and asks the generator for nested
// types.  A type that is reached again while its schema is still being
// built is emitted as a $ref into the root's $defs, so recursive types
// produce finite schemas.
package schema

import (
	"io"
	"log/slog"
	"maps"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/signadot/objbridge/convert"
	"github.com/signadot/objbridge/debug"
	"github.com/signadot/objbridge/policy"
)

// Generator builds and caches schemas.  It is safe for concurrent use.
type Generator struct {
	reg    *convert.Registry
	policy policy.Policy
	log    *slog.Logger

	cache *xsync.MapOf[reflect.Type, *jsonschema.Schema]
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// New creates a Generator over the given registry and policy.
func New(reg *convert.Registry, p policy.Policy, opts ...Option) *Generator {
	g := &Generator{
		reg:    reg,
		policy: p,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cache:  xsync.NewMapOf[reflect.Type, *jsonschema.Schema](),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SchemaFor returns the schema of t.  Pointer types share the schema of
// their element type.  Schemas are cached per type; callers must not
// modify the result.
func (g *Generator) SchemaFor(t reflect.Type) (*jsonschema.Schema, error) {
	t = indirect(t)
	if s, ok := g.cache.Load(t); ok {
		return s, nil
	}
	b := g.newBuilder()
	s, err := b.root(t)
	if err != nil {
		return nil, err
	}
	if debug.Schema() {
		g.log.Debug("schema built", "type", g.reg.TypeName(t), "defs", len(s.Definitions))
	}
	s, _ = g.cache.LoadOrStore(t, s)
	return s, nil
}

// Document returns a schema whose $defs hold every given type and every
// type they refer to.  Types are keyed by type id.
func (g *Generator) Document(types ...reflect.Type) (*jsonschema.Schema, error) {
	doc := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Definitions: jsonschema.Definitions{},
	}
	for _, t := range types {
		s, err := g.SchemaFor(t)
		if err != nil {
			return nil, err
		}
		maps.Copy(doc.Definitions, s.Definitions)
		cp := *s
		cp.Definitions = nil
		doc.Definitions[g.reg.TypeName(t)] = &cp
	}
	return doc, nil
}

func (g *Generator) newBuilder() *builder {
	return &builder{
		g:          g,
		depth:      -1,
		inProgress: map[reflect.Type]bool{},
		referenced: map[reflect.Type]bool{},
		defs:       map[string]*jsonschema.Schema{},
	}
}

// builder is the state of building one root schema.
type builder struct {
	g          *Generator
	depth      int
	inProgress map[reflect.Type]bool
	referenced map[reflect.Type]bool
	defs       map[string]*jsonschema.Schema
}

var _ convert.SchemaBuilder = (*builder)(nil)

func (b *builder) root(t reflect.Type) (*jsonschema.Schema, error) {
	s, err := b.Build(t)
	if err != nil {
		return nil, err
	}
	if len(b.defs) == 0 {
		return s, nil
	}
	res := *s
	res.Definitions = make(jsonschema.Definitions, len(b.defs))
	maps.Copy(res.Definitions, b.defs)
	return &res, nil
}

// Build implements convert.SchemaBuilder.
func (b *builder) Build(t reflect.Type) (*jsonschema.Schema, error) {
	// Pointers are tracked through their element type.
	tracked := t.Kind() != reflect.Pointer
	name := b.g.reg.TypeName(t)
	if tracked && b.inProgress[t] {
		b.referenced[t] = true
		return &jsonschema.Schema{Ref: Ref(name)}, nil
	}
	conv, err := b.g.reg.Resolve(t)
	if err != nil {
		return nil, err
	}
	if tracked {
		b.inProgress[t] = true
	}
	b.depth++
	s, err := conv.Schema(b, t)
	b.depth--
	if tracked {
		delete(b.inProgress, t)
	}
	if err != nil {
		return nil, err
	}
	if tracked && b.referenced[t] {
		b.defs[name] = s
	}
	return s, nil
}

// Next implements convert.SchemaBuilder.
func (b *builder) Next(c convert.Converter, t reflect.Type) (*jsonschema.Schema, error) {
	next, err := b.g.reg.Next(c, t)
	if err != nil {
		return nil, err
	}
	return next.Schema(b, t)
}

func (b *builder) Policy() policy.Policy          { return b.g.policy }
func (b *builder) TypeName(t reflect.Type) string { return b.g.reg.TypeName(t) }
func (b *builder) Depth() int                     { return b.depth }

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
