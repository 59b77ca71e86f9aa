package models

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	PENDING    Status = "PENDING"
	PROCESSING Status = "PROCESSING"
	COMPLETED  Status = "COMPLETED"
	FAILED     Status = "FAILED"
	CANCELLED  Status = "CANCELLED"
)

// Terminal reports whether no further transition is accepted from s.
func (s Status) Terminal() bool {
	return s == COMPLETED || s == FAILED || s == CANCELLED
}

// Priority selects the lane a job is dispatched to.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Valid reports whether p is a known priority class.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityNormal
}

// Job is the unit of work owned by the store. It is mutated only by the
// worker loop and by cancellation/deletion requests.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	Priority  Priority  `json:"priority"`
	Status    Status    `json:"status"`
	Retries   int       `json:"retries"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	Result    string    `json:"result,omitempty"`
	DependsOn []string  `json:"depends_on,omitempty"`
}
