// Package registry implements the Client Registry: the single owner of
// every running NT4 engine, keyed by client identity. Grounded on the
// teacher's singleton-plus-mutex idiom (pkg/metricstore/metricstore.go's
// GetMemoryStore, pkg/nats/client.go's clientOnce/clientInstance),
// generalized from one global instance to one entry per identity.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/fieldtrace/telemetry-bridge/internal/bridgelog"
	"github.com/fieldtrace/telemetry-bridge/internal/nt4"
	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
)

type handle struct {
	engine *nt4.Engine
	cancel context.CancelFunc
}

// Registry owns the set of running engines. Zero value is not usable;
// construct with New.
type Registry struct {
	mu      sync.Mutex
	clients map[nt4.ClientID]*handle
	idents  map[string]struct{}
}

func New() *Registry {
	return &Registry{
		clients: make(map[nt4.ClientID]*handle),
		idents:  make(map[string]struct{}),
	}
}

// Start begins a new engine for id. If a client with the same id
// (address, port and identity string) is already running, it is stopped
// first (idempotent replace),
// matching spec.md's "start is idempotent" requirement.
func (r *Registry) Start(ctx context.Context, id nt4.ClientID, cfg nt4.Config, sender datalog.Sender) (*nt4.Engine, error) {
	if r.Exists(id) {
		r.Stop(id)
	}

	r.mu.Lock()
	engine := nt4.NewEngine(id, cfg, sender)
	runCtx, cancel := context.WithCancel(ctx)
	r.clients[id] = &handle{engine: engine, cancel: cancel}
	r.idents[id.Identity] = struct{}{}
	r.mu.Unlock()

	go engine.Run(runCtx)
	bridgelog.Infof("REGISTRY", "started client %s", id)
	return engine, nil
}

// Stop cancels and removes id's engine, releasing its identity string
// for immediate reuse. No-op if id is not running.
func (r *Registry) Stop(id nt4.ClientID) {
	r.mu.Lock()
	h, ok := r.clients[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, id)
	delete(r.idents, id.Identity)
	r.mu.Unlock()

	h.cancel()
	bridgelog.Infof("REGISTRY", "stopped client %s", id)
}

// Exists reports whether id is currently running.
func (r *Registry) Exists(id nt4.ClientID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[id]
	return ok
}

// IdentityInUse reports whether identity is claimed by any running
// client, regardless of address/port.
func (r *Registry) IdentityInUse(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.idents[identity]
	return ok
}

// Get returns the running engine for id, if any.
func (r *Registry) Get(id nt4.ClientID) (*nt4.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	return h.engine, true
}

// List returns every currently running client identity.
func (r *Registry) List() []nt4.ClientID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]nt4.ClientID, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	return out
}

// StopAll cancels every running engine, used during process shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	ids := make([]nt4.ClientID, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Stop(id)
	}
}

var ErrNotRunning = fmt.Errorf("registry: client not running")
