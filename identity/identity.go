// Package identity is an in-memory reference.IdentityProvider.
//
// Host types get identity by embedding [Object] (scene entities) or
// [Asset] (external content).  Adding them to a [Table] assigns the
// instance id and indexes them for every resolution strategy.
package identity

import (
	"cmp"
	"fmt"
	"path"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/signadot/objbridge/reference"
)

// ContentNamespace is the namespace of content GUIDs, which are name based
// (SHA-1) UUIDs of the content path.
var ContentNamespace = uuid.MustParse("6f6a6272-6964-4765-8000-636f6e74656e")

// ContentGUID returns the GUID of the content at path.
func ContentGUID(contentPath string) string {
	return uuid.NewSHA1(ContentNamespace, []byte(contentPath)).String()
}

// Object gives an embedding struct entity identity.  Its fields are
// unexported and never serialized.
type Object struct {
	id   int64
	path string
	name string
}

func (o *Object) InstanceID() int64     { return o.id }
func (o *Object) HierarchyPath() string { return o.path }
func (o *Object) EntityName() string    { return o.name }

func (o *Object) bindObject(id int64, p string) {
	o.id = id
	o.path = p
	o.name = path.Base(p)
}

// Asset gives an embedding struct content identity.
type Asset struct {
	id   int64
	path string
	guid string
	kind string
}

func (a *Asset) InstanceID() int64  { return a.id }
func (a *Asset) AssetPath() string  { return a.path }
func (a *Asset) AssetGUID() string  { return a.guid }
func (a *Asset) EntityName() string { return path.Base(a.path) }
func (a *Asset) EntityType() string { return a.kind }

func (a *Asset) bindAsset(id int64, p, kind string) {
	a.id = id
	a.path = p
	a.guid = ContentGUID(p)
	a.kind = kind
}

type objectBinder interface {
	reference.Entity
	bindObject(id int64, path string)
}

type assetBinder interface {
	reference.Asset
	bindAsset(id int64, path, kind string)
}

// Table indexes live objects by instance id, hierarchy path, content GUID
// and content path.  It is safe for concurrent use.
type Table struct {
	nextID atomic.Int64

	byID          *xsync.MapOf[int64, any]
	byPath        *xsync.MapOf[string, any]
	byGUID        *xsync.MapOf[string, any]
	byContentPath *xsync.MapOf[string, any]
}

var (
	_ reference.IdentityProvider  = (*Table)(nil)
	_ reference.ContentPathLookup = (*Table)(nil)
)

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{
		byID:          xsync.NewMapOf[int64, any](),
		byPath:        xsync.NewMapOf[string, any](),
		byGUID:        xsync.NewMapOf[string, any](),
		byContentPath: xsync.NewMapOf[string, any](),
	}
}

// Add assigns obj, which must embed *Object or Object and be passed by
// pointer, a fresh instance id and the hierarchy path p.  Paths are
// unique.
func (t *Table) Add(obj any, p string) (int64, error) {
	b, ok := obj.(objectBinder)
	if !ok {
		return 0, fmt.Errorf("%T does not embed identity.Object", obj)
	}
	if _, loaded := t.byPath.LoadOrStore(p, obj); loaded {
		return 0, fmt.Errorf("path %q already in use", p)
	}
	id := t.nextID.Add(1)
	b.bindObject(id, p)
	t.byID.Store(id, obj)
	return id, nil
}

// AddAsset is Add for content: obj must embed Asset and is indexed by
// content path and GUID.  kind is reported as the descriptor's assetType.
func (t *Table) AddAsset(obj any, contentPath, kind string) (int64, error) {
	b, ok := obj.(assetBinder)
	if !ok {
		return 0, fmt.Errorf("%T does not embed identity.Asset", obj)
	}
	if _, loaded := t.byContentPath.LoadOrStore(contentPath, obj); loaded {
		return 0, fmt.Errorf("content path %q already in use", contentPath)
	}
	id := t.nextID.Add(1)
	b.bindAsset(id, contentPath, kind)
	t.byGUID.Store(b.AssetGUID(), obj)
	t.byID.Store(id, obj)
	return id, nil
}

// Remove drops the object with the given id from every index, as when the
// host destroys it.  References to it no longer resolve.
func (t *Table) Remove(id int64) bool {
	obj, ok := t.byID.LoadAndDelete(id)
	if !ok {
		return false
	}
	if p, ok := obj.(reference.Pathed); ok {
		t.byPath.Delete(p.HierarchyPath())
	}
	if a, ok := obj.(reference.Asset); ok {
		t.byGUID.Delete(a.AssetGUID())
		t.byContentPath.Delete(a.AssetPath())
	}
	return true
}

// Move changes the hierarchy path of the object with the given id.
func (t *Table) Move(id int64, p string) error {
	obj, ok := t.byID.Load(id)
	if !ok {
		return fmt.Errorf("no object with instance id %d", id)
	}
	b, ok := obj.(objectBinder)
	if !ok {
		return fmt.Errorf("object %d has no hierarchy path", id)
	}
	if _, loaded := t.byPath.LoadOrStore(p, obj); loaded {
		return fmt.Errorf("path %q already in use", p)
	}
	if pd, ok := obj.(reference.Pathed); ok {
		t.byPath.Delete(pd.HierarchyPath())
	}
	b.bindObject(id, p)
	return nil
}

// Len returns the number of objects.
func (t *Table) Len() int { return t.byID.Size() }

// Paths returns the hierarchy and content paths of all objects in
// instance id order.
func (t *Table) Paths() []string {
	type entry struct {
		id int64
		p  string
	}
	var es []entry
	t.byID.Range(func(id int64, obj any) bool {
		switch o := obj.(type) {
		case reference.Pathed:
			es = append(es, entry{id, o.HierarchyPath()})
		case reference.Asset:
			es = append(es, entry{id, o.AssetPath()})
		}
		return true
	})
	slices.SortFunc(es, func(a, b entry) int { return cmp.Compare(a.id, b.id) })
	res := make([]string, len(es))
	for i, e := range es {
		res[i] = e.p
	}
	return res
}

func (t *Table) Lookup(id int64) (any, bool) {
	return t.byID.Load(id)
}

func (t *Table) LookupByPath(p string) (any, bool) {
	return t.byPath.Load(p)
}

func (t *Table) LookupByContentGUID(guid string) (any, bool) {
	return t.byGUID.Load(guid)
}

func (t *Table) LookupByContentPath(p string) (any, bool) {
	return t.byContentPath.Load(p)
}
