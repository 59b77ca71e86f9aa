package models

import "errors"

var (
	// ErrJobNotFound is returned when a job id is unknown to the store.
	ErrJobNotFound = errors.New("laneq: job not found")

	// ErrNotCancellable is returned when cancellation is requested for a
	// job that is already in a terminal state.
	ErrNotCancellable = errors.New("laneq: job not cancellable")

	// ErrNoResult is returned when a result is requested for a job that
	// has not completed.
	ErrNoResult = errors.New("laneq: job has no result yet")

	// ErrUnknownPriority is returned for a priority outside {high, normal}.
	ErrUnknownPriority = errors.New("laneq: unknown priority")

	// ErrDuplicateDependency is returned when a dependency id appears more
	// than once in a submission.
	ErrDuplicateDependency = errors.New("laneq: duplicate dependency")

	// ErrSelfDependency is returned when a job declares itself as a
	// prerequisite.
	ErrSelfDependency = errors.New("laneq: job cannot depend on itself")
)
