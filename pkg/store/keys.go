package store

// Key naming conventions for laneq data. All keys carry the "laneq:"
// prefix to avoid collisions with other tenants of the same backend.

const keyPrefix = "laneq:"

// JobKey returns the record key for a job: laneq:job:{id}
func JobKey(id string) string { return keyPrefix + "job:" + id }

// LaneKey returns the list key for a lane: laneq:lane:{name}
func LaneKey(name string) string { return keyPrefix + "lane:" + name }

// DepsKey returns the set of job ids that id still depends on.
func DepsKey(id string) string { return keyPrefix + "deps:" + id }

// DependentsKey returns the set of job ids that depend on id.
func DependentsKey(id string) string { return keyPrefix + "dependents:" + id }

// WorkerKey returns the expiring heartbeat key for a worker.
func WorkerKey(id string) string { return keyPrefix + "worker:" + id }

// JobIDsKey is the set tracking all job ids for enumeration.
const JobIDsKey = keyPrefix + "job_ids"

// WorkerIDsKey is the non-expiring set of worker ids ever seen. A member
// whose heartbeat key has expired reads as DEAD.
const WorkerIDsKey = keyPrefix + "worker_ids"

// DeadLetterKey is the set of job ids that exhausted their retries.
const DeadLetterKey = keyPrefix + "deadletter"
