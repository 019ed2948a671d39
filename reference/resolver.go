package reference

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/signadot/objbridge/debug"
	"github.com/signadot/objbridge/wire"
)

// ErrNotFound is returned by FromReference when no strategy finds an
// object.
var ErrNotFound = errors.New("reference not found")

// ErrNoProvider is returned when a resolver without a provider is asked to
// resolve a non-null reference.
var ErrNoProvider = errors.New("no identity provider")

// Strategy names the lookup that found an object.
type Strategy int

const (
	None Strategy = iota
	ByInstanceID
	ByPath
	ByGUID
	ByContentPath
)

func (s Strategy) String() string {
	switch s {
	case ByInstanceID:
		return "instanceID"
	case ByPath:
		return "path"
	case ByGUID:
		return "guid"
	case ByContentPath:
		return "contentPath"
	default:
		return "none"
	}
}

// Resolver translates between live objects and reference descriptors.  It
// keeps no state besides its provider and may be shared.
type Resolver struct {
	provider IdentityProvider
	log      *slog.Logger
}

// NewResolver creates a Resolver.  provider may be nil, in which case only
// null references resolve.  logger may be nil.
func NewResolver(provider IdentityProvider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{provider: provider, log: logger}
}

// Provider returns the resolver's identity provider.
func (r *Resolver) Provider() IdentityProvider {
	return r.provider
}

// ToReference builds the descriptor for obj from the identity interfaces it
// implements.  A nil obj (including a typed nil pointer) gives the zero
// descriptor.
func (r *Resolver) ToReference(obj any) (wire.Reference, error) {
	ref := wire.Reference{}
	if isNil(obj) {
		return ref, nil
	}
	known := false
	if e, ok := obj.(Entity); ok {
		ref.InstanceID = e.InstanceID()
		known = true
	}
	if p, ok := obj.(Pathed); ok {
		ref.Path = p.HierarchyPath()
		known = true
	}
	if n, ok := obj.(Named); ok {
		ref.Name = n.EntityName()
	}
	if a, ok := obj.(Asset); ok {
		ref.AssetPath = a.AssetPath()
		ref.AssetGUID = a.AssetGUID()
		known = true
	}
	if t, ok := obj.(Typed); ok {
		ref.AssetType = t.EntityType()
	}
	if !known {
		return ref, fmt.Errorf("%T carries no identity", obj)
	}
	return ref, nil
}

// FromReference resolves ref to a live object assignable to expected.
// Strategies run in the order instance id, path, GUID, content path; the
// first hit whose type is assignable to expected wins.  A zero ref
// resolves to (nil, None, nil).  When nothing matches the error is
// ErrNotFound.  expected may be nil to accept any type.
func (r *Resolver) FromReference(ref wire.Reference, expected reflect.Type) (any, Strategy, error) {
	if ref.IsZero() {
		return nil, None, nil
	}
	if r.provider == nil {
		return nil, None, ErrNoProvider
	}
	type attempt struct {
		s     Strategy
		key   string
		apply func() (any, bool)
	}
	attempts := []attempt{}
	if ref.InstanceID != 0 {
		attempts = append(attempts, attempt{ByInstanceID, fmt.Sprint(ref.InstanceID), func() (any, bool) {
			return r.provider.Lookup(ref.InstanceID)
		}})
	}
	if ref.Path != "" {
		attempts = append(attempts, attempt{ByPath, ref.Path, func() (any, bool) {
			return r.provider.LookupByPath(ref.Path)
		}})
	}
	if ref.AssetGUID != "" {
		attempts = append(attempts, attempt{ByGUID, ref.AssetGUID, func() (any, bool) {
			return r.provider.LookupByContentGUID(ref.AssetGUID)
		}})
	}
	if cp, ok := r.provider.(ContentPathLookup); ok && ref.AssetPath != "" {
		attempts = append(attempts, attempt{ByContentPath, ref.AssetPath, func() (any, bool) {
			return cp.LookupByContentPath(ref.AssetPath)
		}})
	}
	for _, a := range attempts {
		obj, ok := a.apply()
		if !ok || isNil(obj) {
			continue
		}
		if expected != nil && !reflect.TypeOf(obj).AssignableTo(expected) {
			r.log.Debug("reference hit has wrong type",
				"strategy", a.s.String(), "key", a.key,
				"got", fmt.Sprintf("%T", obj), "want", expected.String())
			continue
		}
		if debug.Resolve() {
			r.log.Debug("reference resolved", "ref", ref.String(), "strategy", a.s.String())
		}
		return obj, a.s, nil
	}
	return nil, None, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// IsEntityType reports whether values of t carry identity and should be
// written as references when nested.
func IsEntityType(t reflect.Type) bool {
	return t.Implements(entityType) || t.Implements(assetType)
}

var (
	entityType = reflect.TypeFor[Entity]()
	assetType  = reflect.TypeFor[Asset]()
)
