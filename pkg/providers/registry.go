package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"meridian-llm/meridian/pkg/ratelimit"
)

// Registry owns every configured adapter and exposes availability and
// statistics snapshots to the load balancer and the status surface.
//
// The provider set can be replaced atomically by Configure, which is how
// configuration hot reload works: readers always see either the old set or
// the new set, never a mix.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string

	limiter *ratelimit.Manager
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. Call Configure to populate it.
func NewRegistry(limiter *ratelimit.Manager) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		limiter:   limiter,
		logger:    slog.Default().With("component", "providers.registry"),
	}
}

// Configure builds adapters for cfgs and atomically replaces the current
// set. Previous adapters are closed after the swap. Configure fails without
// side effects if any adapter cannot be built.
func (r *Registry) Configure(cfgs []Config) error {
	next := make(map[string]Provider, len(cfgs))
	order := make([]string, 0, len(cfgs))

	for _, cfg := range cfgs {
		if _, dup := next[cfg.Name]; dup {
			closeAll(next)
			return fmt.Errorf("duplicate provider name %q", cfg.Name)
		}
		p, err := New(cfg, r.limiter)
		if err != nil {
			closeAll(next)
			return err
		}
		next[cfg.Name] = p
		order = append(order, cfg.Name)
	}

	r.mu.Lock()
	prev := r.providers
	r.providers = next
	r.order = order
	r.mu.Unlock()

	closeAll(prev)
	r.logger.Info("provider registry configured", "providers", order)
	return nil
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns provider names in configuration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every provider in configuration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Available returns the providers whose non-consuming availability probe
// passes right now, in configuration order. This is the candidate set the
// load balancer selects from.
func (r *Registry) Available() []Provider {
	all := r.All()
	available := make([]Provider, 0, len(all))
	for _, p := range all {
		if av := p.CheckAvailability(""); av.Available {
			available = append(available, p)
		}
	}
	return available
}

// Stats returns a statistics snapshot for every provider.
func (r *Registry) Stats() map[string]Stats {
	all := r.All()
	out := make(map[string]Stats, len(all))
	for _, p := range all {
		out[p.Name()] = p.Stats()
	}
	return out
}

// Availability returns the probe result for every provider.
func (r *Registry) Availability() map[string]Availability {
	all := r.All()
	out := make(map[string]Availability, len(all))
	for _, p := range all {
		out[p.Name()] = p.CheckAvailability("")
	}
	return out
}

// Close closes every provider and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	prev := r.providers
	r.providers = make(map[string]Provider)
	r.order = nil
	r.mu.Unlock()

	var errs []error
	for name, p := range prev {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing provider %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func closeAll(providers map[string]Provider) {
	for _, p := range providers {
		_ = p.Close()
	}
}
