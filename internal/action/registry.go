package action

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps webhook action names to their executors. Its contents are the
// closed action vocabulary: the dispatcher rejects any name not registered here
// as an unknown action, so it is filled once at startup (complete, verify,
// refund) and only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds an executor. Panics on duplicate type to surface misconfiguration early.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.Type()]; exists {
		panic(fmt.Sprintf("action registry: duplicate type %q", e.Type()))
	}
	r.executors[e.Type()] = e
}

// Get returns the executor for the given action.
func (r *Registry) Get(action string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[action]
	if !ok {
		return nil, fmt.Errorf("no executor registered for action %q", action)
	}
	return e, nil
}

// Types returns all registered action names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for k := range r.executors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
