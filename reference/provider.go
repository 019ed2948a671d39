// Package reference translates between live host objects and
// [wire.Reference] descriptors.
//
// The package owns no objects.  Lookups are delegated to an
// [IdentityProvider] supplied by the host, and identity is read from the
// objects themselves through [Entity] and its companion interfaces.
package reference

// IdentityProvider looks up live objects on behalf of the resolver.  The
// boolean result reports whether anything was found.
type IdentityProvider interface {
	Lookup(instanceID int64) (any, bool)
	LookupByPath(path string) (any, bool)
	LookupByContentGUID(guid string) (any, bool)
}

// ContentPathLookup is implemented by providers which can also find
// external content by its path.  Resolution by content path is tried last
// and only when the provider implements it.
type ContentPathLookup interface {
	LookupByContentPath(path string) (any, bool)
}

// Entity is a live object with a per-process instance id.  Values whose
// type implements Entity are serialized as references when nested.
type Entity interface {
	InstanceID() int64
}

// Pathed entities have a hierarchy path, e.g. "World/Player/Camera".
type Pathed interface {
	HierarchyPath() string
}

// Named entities have a display name.
type Named interface {
	EntityName() string
}

// Asset is external content with a content path and a content-addressed
// GUID.
type Asset interface {
	AssetPath() string
	AssetGUID() string
}

// Typed entities report their type id for the descriptor's assetType.
type Typed interface {
	EntityType() string
}
