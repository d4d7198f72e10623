package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Registry routes operations by logical data-source id. Adapter logic is
// shared per kind through factories, but every connected id owns its own
// adapter instance, so two sources of the same kind keep independent pools.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	sources   map[string]*source
}

type source struct {
	kind    string
	adapter Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
		sources:   map[string]*source{},
	}
}

// NewDefaultRegistry registers the built-in kinds.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterKind(KindMySQL, NewMySQLAdapter)
	r.RegisterKind(KindPostgres, NewPostgresAdapter)
	r.RegisterKind(KindMSSQL, NewMSSQLAdapter)
	r.RegisterKind(KindHTTP, NewHTTPAdapter)
	r.RegisterKind(KindCSV, NewCSVAdapter)
	r.RegisterKind(KindJSON, NewJSONAdapter)
	return r
}

// RegisterKind replaces any factory already registered for the kind. Sources
// connected through the previous factory keep their adapters until
// reconnected.
func (r *Registry) RegisterKind(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizeKind(kind)] = factory
}

// UnregisterKind disconnects every source of the kind and drops its factory;
// no-op for an unknown kind.
func (r *Registry) UnregisterKind(kind string) {
	key := normalizeKind(kind)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, src := range r.sources {
		if src.kind == key {
			src.adapter.Disconnect()
			delete(r.sources, id)
		}
	}
	delete(r.factories, key)
}

func (r *Registry) SupportedKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Connect builds a fresh adapter for the id and connects it. An id that is
// already connected is disconnected first, so reconnecting with a new config
// can never leak the previous pool.
func (r *Registry) Connect(ctx context.Context, id string, cfg Config) error {
	kind := normalizeKind(cfg.Kind)
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, cfg.Kind)
	}
	adapter := factory()
	if err := adapter.Connect(ctx, cfg); err != nil {
		return err
	}
	r.mu.Lock()
	old := r.sources[id]
	r.sources[id] = &source{kind: kind, adapter: adapter}
	r.mu.Unlock()
	if old != nil {
		old.adapter.Disconnect()
	}
	return nil
}

// Disconnect tears down the adapter for the id; no-op if absent.
func (r *Registry) Disconnect(id string) error {
	r.mu.Lock()
	src := r.sources[id]
	delete(r.sources, id)
	r.mu.Unlock()
	if src == nil {
		return nil
	}
	return src.adapter.Disconnect()
}

func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	sources := r.sources
	r.sources = map[string]*source{}
	r.mu.Unlock()
	for _, src := range sources {
		src.adapter.Disconnect()
	}
}

// Query routes to the adapter connected under the id, propagating the
// adapter's own failure.
func (r *Registry) Query(ctx context.Context, id string, q Query) (*Result, error) {
	r.mu.RLock()
	src, ok := r.sources[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("data source %q: %w", id, ErrNotConnected)
	}
	return src.adapter.Query(ctx, q)
}

// Test probes a candidate configuration without touching any connected
// source. It never returns an error: failures are captured in the result.
func (r *Registry) Test(ctx context.Context, kind string, cfg Config) TestResult {
	key := normalizeKind(kind)
	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return TestResult{Success: false, Message: fmt.Sprintf("unsupported backend kind %q", kind)}
	}
	if cfg.Kind == "" {
		cfg.Kind = key
	}
	return factory().Test(ctx, cfg)
}

// Connected reports whether the id currently has a live adapter.
func (r *Registry) Connected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[id]
	return ok
}

func normalizeKind(kind string) string {
	key := strings.ToLower(strings.TrimSpace(kind))
	if key == "postgresql" {
		return KindPostgres
	}
	if key == "sqlserver" {
		return KindMSSQL
	}
	return key
}
