// Package source discovers business listings from directory sites and
// bulk feeds. Each adapter owns one provider; a registry holds them in
// registration order.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/logiclamp/leadscout/internal/model"
)

// defaultLimit caps a search when the query does not set one.
const defaultLimit = 20

// Adapter searches one provider for business listings. Search returns a
// finite batch; it is not restartable mid-stream.
type Adapter interface {
	Name() string
	Search(ctx context.Context, q model.Query) ([]model.RawListing, error)
}

// Detailer is implemented by adapters that can enrich a listing from its
// provider detail page.
type Detailer interface {
	Details(ctx context.Context, listing model.RawListing) (model.RawListing, error)
}

// Registry maps adapter names to their implementations, preserving
// registration order for deterministic iteration.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates a registry holding the given adapters in order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) {
	name := a.Name()
	if _, exists := r.adapters[name]; !exists {
		r.order = append(r.order, name)
	}
	r.adapters[name] = a
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, eris.Errorf("source: unknown adapter %q", name)
	}
	return a, nil
}

// Select returns the named adapters in the given order. An empty list
// selects every registered adapter in registration order.
func (r *Registry) Select(names []string) ([]Adapter, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	result := make([]Adapter, 0, len(names))
	for _, name := range names {
		a, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// All returns every adapter in registration order.
func (r *Registry) All() []Adapter {
	result := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.adapters[name])
	}
	return result
}

// Names returns registered adapter names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
