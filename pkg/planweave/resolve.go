package planweave

import (
	"errors"
	"fmt"

	"github.com/planweave/planweave/pkg/planweave/cache"
	"github.com/planweave/planweave/pkg/planweave/registry"
)

// ErrTypeUnresolved indicates a type reference matched no local type,
// no builtin and no importable definition.
var ErrTypeUnresolved = errors.New("node type unresolved")

// ImportLoader materializes an imported node type on demand. Front ends
// supply one that reads the referenced workflow or package definition.
type ImportLoader func(ref ImportedSource) (*NodeType, error)

// Resolver turns type references into NodeTypes for a front end
// assembling workflows. Local and builtin types are registered eagerly;
// imported types resolve lazily through the loader, memoized in a
// bounded LRU so repeated references to the same definition stay cheap.
//
// Resolver is safe for concurrent use.
type Resolver struct {
	local    *registry.Registry[string, *NodeType]
	builtins *registry.Registry[string, *NodeType]
	imported *cache.Cache[string, *NodeType]
	load     ImportLoader
}

// NewResolver creates a resolver. load may be nil when the front end
// never imports; cacheCapacity <= 0 uses the cache default.
func NewResolver(load ImportLoader, cacheCapacity int) (*Resolver, error) {
	imported, err := cache.New[string, *NodeType](cacheCapacity)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		local:    registry.New[string, *NodeType](),
		builtins: registry.New[string, *NodeType](),
		imported: imported,
		load:     load,
	}, nil
}

// RegisterLocal adds a type defined in the current graph definition.
func (r *Resolver) RegisterLocal(t *NodeType) *Resolver {
	if t == nil {
		panic("planweave: node type cannot be nil")
	}
	r.local.Register(t.Name, t)
	return r
}

// RegisterBuiltin adds a host-provided type.
func (r *Resolver) RegisterBuiltin(t *NodeType) *Resolver {
	if t == nil {
		panic("planweave: node type cannot be nil")
	}
	r.builtins.Register(t.Name, t)
	return r
}

// Resolve returns the type for a name: local definitions shadow
// builtins, and anything else goes through the import loader. Returns
// ErrTypeUnresolved when no source can supply the name.
func (r *Resolver) Resolve(name string) (*NodeType, error) {
	if t, ok := r.local.Get(name); ok {
		return t, nil
	}
	if t, ok := r.builtins.Get(name); ok {
		return t, nil
	}
	return r.ResolveImport(ImportedSource{Workflow: name})
}

// ResolveImport resolves an imported type reference through the loader,
// memoizing the result.
func (r *Resolver) ResolveImport(ref ImportedSource) (*NodeType, error) {
	if r.load == nil {
		return nil, fmt.Errorf("%w: %q (no import loader configured)", ErrTypeUnresolved, importKey(ref))
	}
	t, err := r.imported.GetOrLoad(importKey(ref), func(string) (*NodeType, error) {
		t, err := r.load(ref)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, fmt.Errorf("%w: %q", ErrTypeUnresolved, importKey(ref))
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CacheStats reports the import cache's lifetime hit and miss counts.
func (r *Resolver) CacheStats() (hits, misses int64) {
	return r.imported.Stats()
}

func importKey(ref ImportedSource) string {
	if ref.Package == "" {
		return ref.Workflow
	}
	return ref.Package + "." + ref.Workflow
}
