// Package deps maintains the dependency edges between jobs: a forward
// set of prerequisites per job and a reverse set of dependents per job.
// Readiness is checked passively by the worker loop at dequeue time; an
// unready job goes back to the tail of its lane. No cycle detection is
// performed — a circular graph requeues its jobs indefinitely.
package deps

import (
	"context"
	"fmt"

	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/store"
)

// Tracker resolves job readiness from dependency edge sets in the store.
type Tracker struct {
	store store.Store
}

// NewTracker creates a Tracker on the given store.
func NewTracker(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// Register records both edge directions for jobID. Duplicate and self
// dependencies are rejected before any edge is written, so a failed
// registration leaves no partial mutation.
func (t *Tracker) Register(ctx context.Context, jobID string, dependencies []string) error {
	seen := make(map[string]struct{}, len(dependencies))
	for _, dep := range dependencies {
		if dep == jobID {
			return models.ErrSelfDependency
		}
		if _, dup := seen[dep]; dup {
			return fmt.Errorf("%w: %s", models.ErrDuplicateDependency, dep)
		}
		seen[dep] = struct{}{}
	}

	for _, dep := range dependencies {
		if err := t.store.SAdd(ctx, store.DepsKey(jobID), dep); err != nil {
			return err
		}
		if err := t.store.SAdd(ctx, store.DependentsKey(dep), jobID); err != nil {
			return err
		}
	}
	return nil
}

// IsReady reports whether jobID has no outstanding prerequisites.
func (t *Tracker) IsReady(ctx context.Context, jobID string) (bool, error) {
	n, err := t.store.SCard(ctx, store.DepsKey(jobID))
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Release removes prerequisiteID from the depends-on set of every
// dependent. Called exactly once, when the prerequisite reaches
// COMPLETED. The reverse set is dropped afterward so a second call is a
// no-op.
func (t *Tracker) Release(ctx context.Context, prerequisiteID string) error {
	dependents, err := t.store.SMembers(ctx, store.DependentsKey(prerequisiteID))
	if err != nil {
		return err
	}
	for _, dep := range dependents {
		if err := t.store.SRem(ctx, store.DepsKey(dep), prerequisiteID); err != nil {
			return err
		}
	}
	return t.store.Del(ctx, store.DependentsKey(prerequisiteID))
}

// Clear drops every edge touching jobID. Used by job deletion: each
// surviving dependent first has jobID removed from its prerequisite
// set, so no job waits forever on a prerequisite that no longer exists.
func (t *Tracker) Clear(ctx context.Context, jobID string) error {
	dependents, err := t.store.SMembers(ctx, store.DependentsKey(jobID))
	if err != nil {
		return err
	}
	for _, dep := range dependents {
		if err := t.store.SRem(ctx, store.DepsKey(dep), jobID); err != nil {
			return err
		}
	}
	return t.store.Del(ctx, store.DepsKey(jobID), store.DependentsKey(jobID))
}

// Remaining returns the prerequisites jobID is still waiting on.
func (t *Tracker) Remaining(ctx context.Context, jobID string) ([]string, error) {
	return t.store.SMembers(ctx, store.DepsKey(jobID))
}
