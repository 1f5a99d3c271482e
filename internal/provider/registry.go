// Package provider holds the catalog adapters and the static registry the
// aggregator selects them from. Each adapter wraps one upstream API, applies
// that provider's own rate limit, and normalizes its schema into
// domain.AnimeRecord with a source-specific confidence estimate.
package provider

import (
	"github.com/pkg/errors"

	"github.com/varoOP/niterudb/internal/domain"
)

// ErrUnknownSource is returned when a composite id names a source no
// adapter is registered under. This is an input error, not a transient
// upstream failure, and is never downgraded.
var ErrUnknownSource = errors.New("unknown provider source")

// Registry is a static table of adapters keyed by name. It is built once at
// startup and read-only afterwards.
type Registry struct {
	order  []string
	byName map[string]domain.Provider
}

// NewRegistry registers the given adapters. Registration order is preserved
// by All.
func NewRegistry(providers ...domain.Provider) *Registry {
	r := &Registry{
		byName: make(map[string]domain.Provider, len(providers)),
	}
	for _, p := range providers {
		if _, dup := r.byName[p.Name()]; dup {
			continue
		}
		r.byName[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// Get returns the adapter registered under name, or ErrUnknownSource.
func (r *Registry) Get(name string) (domain.Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSource, "no adapter registered for %q", name)
	}
	return p, nil
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []domain.Provider {
	out := make([]domain.Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered adapter names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
