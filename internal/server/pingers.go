package server

import (
	"context"
	"fmt"
)

// pingable is any dependency with a native reachability check. Every
// chunk store in internal/store satisfies it.
type pingable interface {
	Ping(ctx context.Context) error
}

// StorePinger probes a chunk store. It satisfies the Pinger interface and
// is used by GET /api/ready.
type StorePinger struct {
	// target is the store to probe.
	target pingable
	// name identifies the backend in readiness responses (e.g. "sqlite").
	name string
}

// NewStorePinger constructs a StorePinger for target labelled name.
func NewStorePinger(name string, target pingable) *StorePinger {
	return &StorePinger{target: target, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *StorePinger) Name() string { return p.name }

// Ping delegates to the store's own health check.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.target.Ping(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", p.name, err)
	}
	return nil
}
