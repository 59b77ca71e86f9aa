package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/athulya-anil/laneq/pkg/models"
)

// ProgressFunc reports a progress percentage to the worker loop. It
// returns ErrCancelled when an external cancellation was observed; the
// handler must stop immediately in that case.
type ProgressFunc func(pct int) error

// Handler executes one job and returns its result payload. Handlers
// must call report at each natural increment of their work so external
// cancellation is picked up between steps.
type Handler func(ctx context.Context, job *models.Job, report ProgressFunc) (string, error)

// Registry maps job types to handlers. A type with no handler falls
// back to the registry's default.
type Registry struct {
	mu             sync.RWMutex
	handlers       map[string]Handler
	defaultHandler Handler
}

// NewRegistry creates a Registry with the given fallback handler.
func NewRegistry(fallback Handler) *Registry {
	return &Registry{
		handlers:       make(map[string]Handler),
		defaultHandler: fallback,
	}
}

// Register binds a handler to a job type, replacing any previous one.
func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

// Lookup returns the handler for a job type.
func (r *Registry) Lookup(jobType string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[jobType]; ok {
		return h
	}
	return r.defaultHandler
}

// SimulatedHandler advances through the configured number of fixed
// progress increments, pausing between each. It stands in for real work
// in development and tests.
func SimulatedHandler(steps int, pause func(ctx context.Context) error) Handler {
	return func(ctx context.Context, job *models.Job, report ProgressFunc) (string, error) {
		for i := 1; i <= steps; i++ {
			if err := pause(ctx); err != nil {
				return "", err
			}
			if err := report(i * 100 / steps); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf(`{"job_id":%q,"type":%q,"outcome":"ok"}`, job.ID, job.Type), nil
	}
}
