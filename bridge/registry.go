package bridge

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry owns every in-flight call slot. It is the single structure shared
// between caller goroutines and the endpoint's receive loop, so every
// operation is serialized under one mutex.
type Registry struct {
	mu      sync.Mutex
	pending map[string]chan Outcome
	logger  *zap.Logger
}

// NewRegistry creates an empty pending-call registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		pending: make(map[string]chan Outcome),
		logger:  logger.With(zap.String("component", "bridge_registry")),
	}
}

// Register allocates a slot for the given correlation ID and returns the
// channel its outcome will be delivered on. Registering an ID twice is a
// programming error (IDs are process-lifetime monotonic).
func (r *Registry) Register(id string) (<-chan Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[id]; exists {
		return nil, fmt.Errorf("registry: correlation id %q already pending", id)
	}

	ch := make(chan Outcome, 1)
	r.pending[id] = ch
	return ch, nil
}

// Resolve completes the slot for the given correlation ID. A slot resolves
// at most once; an unknown or already-resolved ID is a late or stray
// response and is logged and dropped, never an error.
// Resolve reports whether a slot was actually completed.
func (r *Registry) Resolve(id string, out Outcome) bool {
	r.mu.Lock()
	ch, exists := r.pending[id]
	if exists {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !exists {
		r.logger.Warn("response for unknown or abandoned command",
			zap.String("id", id),
			zap.String("status", string(out.Status)))
		return false
	}

	ch <- out
	return true
}

// Remove abandons the slot for the given correlation ID without delivering
// an outcome. Used when a caller gives up on a call (timeout) so a late
// response cannot be misapplied.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// CancelAll resolves every currently pending slot with the given outcome and
// clears the registry. The swap happens under the lock, so a Register racing
// with cancellation either is included here or starts fresh afterwards; it
// can never hang unresolved.
func (r *Registry) CancelAll(out Outcome) {
	r.mu.Lock()
	cancelled := r.pending
	r.pending = make(map[string]chan Outcome)
	r.mu.Unlock()

	for id, ch := range cancelled {
		ch <- out
		r.logger.Debug("pending command cancelled",
			zap.String("id", id),
			zap.String("status", string(out.Status)))
	}

	if len(cancelled) > 0 {
		r.logger.Info("cancelled all pending commands",
			zap.Int("count", len(cancelled)),
			zap.String("status", string(out.Status)))
	}
}

// Len returns the number of commands currently awaiting a response.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
