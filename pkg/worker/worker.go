// Package worker pulls job ids from one lane, drives each job through
// its state machine, and asserts liveness through expiring heartbeat
// records. Ownership of a job comes from the blocking pop: the id is
// atomically removed from the lane, so no two workers hold it at once.
package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/deps"
	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/queue"
	"github.com/athulya-anil/laneq/pkg/store"
)

// ErrCancelled reports that an external cancellation was observed
// mid-execution. It is terminal: no retry follows.
var ErrCancelled = errors.New("laneq: job cancelled during execution")

// Worker processes jobs from a single lane until its context is done.
type Worker struct {
	ID   string
	Lane string

	disp     *queue.Dispatcher
	tracker  *deps.Tracker
	registry *Registry
	cfg      config.Config

	// requeueLimiter paces dependency-wait requeues so a lane whose head
	// is fully blocked does not hot-spin against the store.
	requeueLimiter *rate.Limiter
}

// New creates a worker for the given lane. The registry's fallback is
// the simulated handler with the configured step pause.
func New(id, lane string, disp *queue.Dispatcher, tracker *deps.Tracker, cfg config.Config) *Worker {
	pause := func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.StepPause):
			return nil
		}
	}
	return &Worker{
		ID:             id,
		Lane:           lane,
		disp:           disp,
		tracker:        tracker,
		registry:       NewRegistry(SimulatedHandler(cfg.ProgressSteps, pause)),
		cfg:            cfg,
		requeueLimiter: rate.NewLimiter(rate.Limit(cfg.RequeueRate), cfg.RequeueBurst),
	}
}

// Register binds a handler to a job type.
func (w *Worker) Register(jobType string, h Handler) {
	w.registry.Register(jobType, h)
}

// Run is the scheduling loop: one blocking pop per iteration, with the
// stop signal checked between dequeues so shutdown is cooperative.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[WORKER] %s pulling from lane %q", w.ID, w.Lane)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[WORKER] %s stopping", w.ID)
			return nil
		default:
		}

		jobID, err := w.disp.Dequeue(ctx, w.Lane, w.cfg.DequeueTimeout)
		if err != nil {
			if errors.Is(err, store.ErrNil) {
				continue // lane empty within timeout window
			}
			if ctx.Err() != nil {
				log.Printf("[WORKER] %s stopping", w.ID)
				return nil
			}
			log.Printf("[WARN] %s dequeue failed: %v", w.ID, err)
			time.Sleep(time.Second)
			continue
		}

		w.process(ctx, jobID)
	}
}

// process drives one dequeued job through the state machine.
func (w *Worker) process(ctx context.Context, jobID string) {
	job, err := w.disp.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			// Deleted while queued; its lane entry was the only trace.
			log.Printf("[WORKER] %s dropping %s: record gone", w.ID, jobID)
			return
		}
		log.Printf("[WARN] %s load %s failed: %v", w.ID, jobID, err)
		return
	}

	if job.Status == models.CANCELLED {
		log.Printf("[WORKER] %s dropping %s: cancelled before start", w.ID, jobID)
		return
	}
	if job.Status.Terminal() {
		return
	}

	ready, err := w.tracker.IsReady(ctx, jobID)
	if err != nil {
		log.Printf("[WARN] %s readiness check %s failed: %v", w.ID, jobID, err)
		return
	}
	if !ready {
		// Deps unmet: re-append to the lane tail with no state change.
		if err := w.requeueLimiter.Wait(ctx); err != nil {
			return
		}
		if err := w.disp.Requeue(ctx, jobID, w.Lane); err != nil {
			log.Printf("[WARN] %s requeue %s failed: %v", w.ID, jobID, err)
		}
		return
	}

	if err := w.disp.SetStatus(ctx, jobID, models.PROCESSING); err != nil {
		log.Printf("[WARN] %s mark processing %s failed: %v", w.ID, jobID, err)
		return
	}

	result, err := w.execute(ctx, job)
	switch {
	case errors.Is(err, ErrCancelled):
		// Status is already CANCELLED; execution stopped, no retry.
		log.Printf("[WORKER] %s job %s cancelled mid-processing", w.ID, jobID)

	case err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)):
		// Shutdown mid-job, not a failure: the job goes back to the
		// lane with no retry burned.
		w.recoverAfterShutdown(jobID)

	case err != nil:
		w.handleFailure(ctx, jobID, err)

	default:
		// A cancellation can land after the handler's last report; the
		// handler then returns success without ever observing it. The
		// terminal state wins: no COMPLETED write, no release.
		status, serr := w.disp.Status(ctx, jobID)
		if serr != nil {
			log.Printf("[WARN] %s status check %s failed: %v", w.ID, jobID, serr)
			return
		}
		if status == models.CANCELLED {
			log.Printf("[WORKER] %s job %s cancelled before completion write", w.ID, jobID)
			return
		}
		if err := w.disp.Complete(ctx, jobID, result); err != nil {
			log.Printf("[WARN] %s complete %s failed: %v", w.ID, jobID, err)
			return
		}
		if err := w.tracker.Release(ctx, jobID); err != nil {
			log.Printf("[WARN] %s release dependents of %s failed: %v", w.ID, jobID, err)
			return
		}
		log.Printf("[DONE] %s completed job %s", w.ID, jobID)
	}
}

// execute runs the handler with a progress callback that re-checks for
// external cancellation at every increment.
func (w *Worker) execute(ctx context.Context, job *models.Job) (string, error) {
	report := func(pct int) error {
		status, err := w.disp.Status(ctx, job.ID)
		if err != nil {
			return err
		}
		if status == models.CANCELLED {
			return ErrCancelled
		}
		return w.disp.SetProgress(ctx, job.ID, pct)
	}

	handler := w.registry.Lookup(job.Type)
	return handler(ctx, job, report)
}

// recoverAfterShutdown puts a job interrupted by worker shutdown back
// on its lane without touching the retry counter. The worker context is
// already done, so the writes run on a fresh one.
func (w *Worker) recoverAfterShutdown(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := w.disp.Status(ctx, jobID)
	if err != nil || status.Terminal() {
		return
	}
	if err := w.disp.SetStatus(ctx, jobID, models.PENDING); err != nil {
		log.Printf("[WARN] %s revert status %s failed: %v", w.ID, jobID, err)
		return
	}
	if err := w.disp.Requeue(ctx, jobID, w.Lane); err != nil {
		log.Printf("[WARN] %s requeue %s failed: %v", w.ID, jobID, err)
		return
	}
	log.Printf("[WORKER] %s requeued %s interrupted by shutdown", w.ID, jobID)
}

// handleFailure increments the durable retry counter and either
// re-appends the job to its original lane (visible as PENDING between
// attempts) or, at the limit, dead-letters it.
func (w *Worker) handleFailure(ctx context.Context, jobID string, cause error) {
	// A cancellation may have landed during execution without the
	// handler reporting in between. Terminal states never revert.
	status, err := w.disp.Status(ctx, jobID)
	if err != nil {
		log.Printf("[WARN] %s status check %s failed: %v", w.ID, jobID, err)
		return
	}
	if status.Terminal() {
		log.Printf("[WORKER] %s job %s already %s, dropping failure: %v", w.ID, jobID, status, cause)
		return
	}

	retries, err := w.disp.IncrRetries(ctx, jobID)
	if err != nil {
		log.Printf("[WARN] %s retry accounting %s failed: %v", w.ID, jobID, err)
		return
	}

	if retries < w.cfg.MaxRetries {
		log.Printf("[RETRY] %s job %s attempt %d/%d failed: %v", w.ID, jobID, retries, w.cfg.MaxRetries, cause)
		if err := w.disp.SetStatus(ctx, jobID, models.PENDING); err != nil {
			log.Printf("[WARN] %s revert status %s failed: %v", w.ID, jobID, err)
			return
		}
		if err := w.disp.Requeue(ctx, jobID, w.Lane); err != nil {
			log.Printf("[WARN] %s requeue %s failed: %v", w.ID, jobID, err)
		}
		return
	}

	log.Printf("[DLQ] %s job %s exhausted %d attempts: %v", w.ID, jobID, retries, cause)
	if err := w.disp.Fail(ctx, jobID); err != nil {
		log.Printf("[WARN] %s dead-letter %s failed: %v", w.ID, jobID, err)
	}
}
