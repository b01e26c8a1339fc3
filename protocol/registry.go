package protocol

import (
	"github.com/pkg/errors"
)

// Registry binds build numbers to Protocol definitions. It is a plain
// value holding a map, with no package-level state and no mutex, so
// distinct Registries may be used from distinct goroutines without
// coordination, and multiple replay builds can be decoded
// concurrently.
type Registry struct {
	protocols map[int]*Protocol
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{protocols: make(map[int]*Protocol)}
}

// Register binds build to p, replacing any existing binding.
func (r *Registry) Register(build int, p *Protocol) error {
	if p == nil {
		return errors.Errorf("protocol: nil Protocol for build %d", build)
	}
	r.protocols[build] = p
	return nil
}

// Lookup returns the Protocol bound to build, or an error if none has
// been registered.
func (r *Registry) Lookup(build int) (*Protocol, error) {
	p, ok := r.protocols[build]
	if !ok {
		return nil, errors.Errorf("protocol: no schema registered for build %d", build)
	}
	return p, nil
}
