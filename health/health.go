// Package health tracks liveness of long-running loops. Each loop registers
// a handle and stamps it while making progress; the registry goes unhealthy
// when any stamp is older than that handle's deadline, which is how stalls
// (a wedged coordinator, exhausted permits) surface to the orchestrator.
package health

import (
	"sync"
	"sync/atomic"
	"time"
)

type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: map[string]*Handle{}}
}

// Register adds a component. The handle starts healthy and must keep being
// stamped within the deadline from then on.
func (r *Registry) Register(component string, deadline time.Duration) *Handle {
	h := &Handle{deadline: deadline}
	h.ReportHealthy()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[component] = h
	return h
}

type Status struct {
	Healthy    bool            `json:"healthy"`
	Components map[string]bool `json:"components"`
}

func (r *Registry) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	status := Status{Healthy: true, Components: make(map[string]bool, len(r.handles))}
	for name, h := range r.handles {
		ok := h.healthyAt(now)
		status.Components[name] = ok
		if !ok {
			status.Healthy = false
		}
	}
	return status
}

// Handle is stamped by exactly one loop and read by the registry.
type Handle struct {
	deadline time.Duration
	last     atomic.Int64
}

func (h *Handle) ReportHealthy() {
	h.last.Store(time.Now().UnixNano())
}

func (h *Handle) healthyAt(now time.Time) bool {
	return now.Sub(time.Unix(0, h.last.Load())) <= h.deadline
}
