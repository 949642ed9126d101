// Package networks holds the static catalog of chains the payment layer can
// target. A Registry is populated once and is read-only afterwards, so it is
// safe for concurrent use without locking.
package networks

import (
	"fmt"
	"sort"

	"github.com/vitwit/arpay/types"
)

// Registry indexes network descriptors by chain id.
type Registry struct {
	byID    map[types.ChainID]*types.NetworkDescriptor
	ordered []*types.NetworkDescriptor
}

// NewRegistry builds a registry from descriptors. Duplicate chain ids and
// descriptors without an id or family are rejected.
func NewRegistry(descriptors ...*types.NetworkDescriptor) (*Registry, error) {
	r := &Registry{byID: make(map[types.ChainID]*types.NetworkDescriptor, len(descriptors))}

	for _, d := range descriptors {
		if d == nil || d.ChainID == "" {
			return nil, types.NewError(types.ErrConfigError, "network descriptor without chain id")
		}
		if d.Family != types.ChainEVM && d.Family != types.ChainSolana {
			return nil, types.NewError(types.ErrConfigError, "network %s has unsupported family %q", d.ChainID, d.Family)
		}
		if _, dup := r.byID[d.ChainID]; dup {
			return nil, types.NewError(types.ErrConfigError, "duplicate network %s", d.ChainID)
		}
		r.byID[d.ChainID] = d
		r.ordered = append(r.ordered, d)
	}

	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].ChainID < r.ordered[j].ChainID })
	return r, nil
}

// DefaultRegistry returns a registry over the built-in testnet catalog.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Catalog()...)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in network catalog: %v", err))
	}
	return r
}

// Get returns the descriptor for id, or nil when the chain is not registered.
func (r *Registry) Get(id types.ChainID) *types.NetworkDescriptor {
	return r.byID[id]
}

// MustGet is Get returning UNKNOWN_NETWORK for missing chains.
func (r *Registry) MustGet(id types.ChainID) (*types.NetworkDescriptor, error) {
	d := r.byID[id]
	if d == nil {
		return nil, types.NewError(types.ErrUnknownNetwork, "network %s is not registered", id)
	}
	return d, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id types.ChainID) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns every descriptor ordered by chain id.
func (r *Registry) All() []*types.NetworkDescriptor {
	out := make([]*types.NetworkDescriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ByFamily returns the descriptors of one chain family ordered by chain id.
func (r *Registry) ByFamily(family types.ChainFamily) []*types.NetworkDescriptor {
	var out []*types.NetworkDescriptor
	for _, d := range r.ordered {
		if d.Family == family {
			out = append(out, d)
		}
	}
	return out
}
