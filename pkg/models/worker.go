package models

import "time"

// WorkerRecord is the heartbeat payload a worker asserts under an
// expiring key. When the key vanishes the worker is considered dead.
type WorkerRecord struct {
	ID        string    `json:"id"`
	Lane      string    `json:"lane"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// WorkerHealth is the derived view returned by health queries. Liveness
// is computed by the registry, never asserted by the worker itself.
type WorkerHealth struct {
	ID       string    `json:"id"`
	Lane     string    `json:"lane,omitempty"`
	Status   string    `json:"status"` // ALIVE or DEAD
	LastSeen time.Time `json:"last_seen,omitempty"`
}

const (
	WorkerAlive = "ALIVE"
	WorkerDead  = "DEAD"
)
