// Package queue routes jobs into priority lanes and owns the job record
// lifecycle in the store: creation, status and progress writes, retry
// accounting, dead-lettering, cancellation and deletion.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/deps"
	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/store"
)

// SubmitRequest is the input for a new job.
type SubmitRequest struct {
	Type      string
	Payload   string
	Priority  models.Priority
	DependsOn []string
}

// Dispatcher creates job records and moves job ids through lanes. All
// state lives in the store; a Dispatcher itself is stateless and safe
// for concurrent use.
type Dispatcher struct {
	store   store.Store
	tracker *deps.Tracker
	cfg     config.Config
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(s store.Store, t *deps.Tracker, cfg config.Config) *Dispatcher {
	return &Dispatcher{store: s, tracker: t, cfg: cfg}
}

// Enqueue creates the job record with status PENDING, registers the
// dependency edges, and appends the id to the lane selected by priority.
// The record write happens before the lane append, so a concurrent
// dequeuer never observes a lane entry without its record.
func (d *Dispatcher) Enqueue(ctx context.Context, req SubmitRequest) (*models.Job, error) {
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}
	if !req.Priority.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownPriority, req.Priority)
	}

	job := &models.Job{
		ID:        fmt.Sprintf("%s-%s", d.cfg.JobIDPrefix, uuid.NewString()),
		Type:      req.Type,
		Payload:   req.Payload,
		Priority:  req.Priority,
		Status:    models.PENDING,
		CreatedAt: time.Now().UTC(),
		DependsOn: req.DependsOn,
	}

	if err := d.tracker.Register(ctx, job.ID, req.DependsOn); err != nil {
		return nil, err
	}
	if err := d.store.HSet(ctx, store.JobKey(job.ID), jobToMap(job)); err != nil {
		return nil, err
	}
	if err := d.store.SAdd(ctx, store.JobIDsKey, job.ID); err != nil {
		return nil, err
	}
	if err := d.store.RPush(ctx, store.LaneKey(d.cfg.LaneFor(job.Priority)), job.ID); err != nil {
		return nil, err
	}
	return job, nil
}

// Dequeue blocks until a job id is available on the lane, the timeout
// elapses (store.ErrNil), or ctx is done. The pop atomically removes the
// id, transferring ownership to exactly one caller.
func (d *Dispatcher) Dequeue(ctx context.Context, lane string, timeout time.Duration) (string, error) {
	return d.store.BLPop(ctx, timeout, store.LaneKey(lane))
}

// Requeue re-appends a job id to the tail of its lane, used both for
// dependency waits and retries. Head-of-line fairness is lost under
// heavy dependency contention; that trade-off is accepted.
func (d *Dispatcher) Requeue(ctx context.Context, jobID, lane string) error {
	return d.store.RPush(ctx, store.LaneKey(lane), jobID)
}

// Depth returns the current length of one lane.
func (d *Dispatcher) Depth(ctx context.Context, lane string) (int64, error) {
	return d.store.LLen(ctx, store.LaneKey(lane))
}

// TotalDepth returns the combined length of both lanes.
func (d *Dispatcher) TotalDepth(ctx context.Context) (int64, error) {
	var total int64
	for _, lane := range d.cfg.Lanes() {
		n, err := d.Depth(ctx, lane)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Get loads a job record.
func (d *Dispatcher) Get(ctx context.Context, jobID string) (*models.Job, error) {
	fields, err := d.store.HGetAll(ctx, store.JobKey(jobID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, models.ErrJobNotFound
	}
	job := mapToJob(fields)
	job.DependsOn, err = d.tracker.Remaining(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Status returns only the status field of a job.
func (d *Dispatcher) Status(ctx context.Context, jobID string) (models.Status, error) {
	v, err := d.store.HGet(ctx, store.JobKey(jobID), "status")
	if err != nil {
		if errors.Is(err, store.ErrNil) {
			return "", models.ErrJobNotFound
		}
		return "", err
	}
	return models.Status(v), nil
}

// SetStatus writes the status field.
func (d *Dispatcher) SetStatus(ctx context.Context, jobID string, s models.Status) error {
	return d.store.HSet(ctx, store.JobKey(jobID), map[string]string{"status": string(s)})
}

// SetProgress writes the progress percentage.
func (d *Dispatcher) SetProgress(ctx context.Context, jobID string, pct int) error {
	return d.store.HSet(ctx, store.JobKey(jobID), map[string]string{"progress": itoa(pct)})
}

// IncrRetries durably increments the retry counter and returns the new
// value. The counter is never reset.
func (d *Dispatcher) IncrRetries(ctx context.Context, jobID string) (int, error) {
	n, err := d.store.HIncrBy(ctx, store.JobKey(jobID), "retries", 1)
	return int(n), err
}

// Complete marks the job COMPLETED with full progress and attaches the
// result payload.
func (d *Dispatcher) Complete(ctx context.Context, jobID, result string) error {
	return d.store.HSet(ctx, store.JobKey(jobID), map[string]string{
		"status":   string(models.COMPLETED),
		"progress": "100",
		"result":   result,
	})
}

// Fail marks the job FAILED and appends it to the dead-letter queue.
// The lane entry is not restored; crossing the retry threshold is
// one-way.
func (d *Dispatcher) Fail(ctx context.Context, jobID string) error {
	if err := d.SetStatus(ctx, jobID, models.FAILED); err != nil {
		return err
	}
	return d.store.SAdd(ctx, store.DeadLetterKey, jobID)
}

// DeadLetterIDs lists the jobs that exhausted their retries.
func (d *Dispatcher) DeadLetterIDs(ctx context.Context) ([]string, error) {
	return d.store.SMembers(ctx, store.DeadLetterKey)
}

// Cancel requests cancellation. Permitted only from PENDING or
// PROCESSING; a worker observes the new status at its next progress
// increment and stops without retrying.
func (d *Dispatcher) Cancel(ctx context.Context, jobID string) error {
	status, err := d.Status(ctx, jobID)
	if err != nil {
		return err
	}
	if status.Terminal() {
		return fmt.Errorf("%w: status is %s", models.ErrNotCancellable, status)
	}
	return d.SetStatus(ctx, jobID, models.CANCELLED)
}

// Delete removes the job record and both of its dependency edge sets.
// A lane entry for the id may linger; the worker loop drops ids whose
// record is gone.
func (d *Dispatcher) Delete(ctx context.Context, jobID string) error {
	exists, err := d.store.Exists(ctx, store.JobKey(jobID))
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrJobNotFound
	}
	if err := d.tracker.Clear(ctx, jobID); err != nil {
		return err
	}
	if err := d.store.SRem(ctx, store.JobIDsKey, jobID); err != nil {
		return err
	}
	return d.store.Del(ctx, store.JobKey(jobID))
}

// ListIDs returns every known job id.
func (d *Dispatcher) ListIDs(ctx context.Context) ([]string, error) {
	return d.store.SMembers(ctx, store.JobIDsKey)
}

// List returns every known job record. Ids whose record vanished
// mid-listing are skipped.
func (d *Dispatcher) List(ctx context.Context) ([]*models.Job, error) {
	ids, err := d.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]*models.Job, 0, len(ids))
	for _, id := range ids {
		job, err := d.Get(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrJobNotFound) {
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Stats aggregates job counts by status plus lane depths and the
// dead-letter size.
type Stats struct {
	ByStatus    map[models.Status]int `json:"by_status"`
	HighDepth   int64                 `json:"high_depth"`
	NormalDepth int64                 `json:"normal_depth"`
	DeadLetter  int64                 `json:"dead_letter"`
}

// GetStats computes a Stats snapshot.
func (d *Dispatcher) GetStats(ctx context.Context) (*Stats, error) {
	jobs, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{ByStatus: make(map[models.Status]int)}
	for _, j := range jobs {
		s.ByStatus[j.Status]++
	}
	if s.HighDepth, err = d.Depth(ctx, d.cfg.HighLane); err != nil {
		return nil, err
	}
	if s.NormalDepth, err = d.Depth(ctx, d.cfg.NormalLane); err != nil {
		return nil, err
	}
	if s.DeadLetter, err = d.store.SCard(ctx, store.DeadLetterKey); err != nil {
		return nil, err
	}
	return s, nil
}
