// Package fleet is the boundary to worker compute capacity. The
// autoscaler only needs three operations: list the instances carrying
// the worker role in a runnable lifecycle state, launch tagged
// instances from the configured template, and terminate by id.
package fleet

import "context"

// Instance is one worker compute instance.
type Instance struct {
	ID    string
	State string
}

// Fleet manages worker instances.
type Fleet interface {
	// ListWorkers returns instances tagged with the worker role that are
	// running or pending.
	ListWorkers(ctx context.Context) ([]Instance, error)

	// Launch starts n new worker instances from the configured template
	// and tags them. It returns the new instance ids.
	Launch(ctx context.Context, n int) ([]string, error)

	// Terminate stops the given instances. No idleness check is made;
	// in-flight work on a terminated instance is abandoned.
	Terminate(ctx context.Context, ids []string) error
}
