// Package autoscaler resizes the worker fleet from queue depth. The
// control loop is single-threaded and non-reentrant: a cycle runs to
// completion before the next tick is consumed. Fleet API failures are
// logged and the cycle proceeds; the next cycle re-evaluates from fresh
// metrics with no compensating action.
package autoscaler

import (
	"context"
	"log"
	"time"

	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/fleet"
	"github.com/athulya-anil/laneq/pkg/queue"
)

// Autoscaler samples total lane depth and the active worker population
// on a fixed interval and issues scale decisions against the fleet.
type Autoscaler struct {
	disp  *queue.Dispatcher
	fleet fleet.Fleet
	cfg   config.Config
}

// New creates an Autoscaler.
func New(disp *queue.Dispatcher, f fleet.Fleet, cfg config.Config) *Autoscaler {
	return &Autoscaler{disp: disp, fleet: f, cfg: cfg}
}

// Run ticks until ctx is done. Cycles never overlap: RunCycle is called
// synchronously from the tick loop.
func (a *Autoscaler) Run(ctx context.Context) error {
	log.Printf("[SCALE] autoscaler started (interval %v, thresholds %d/%d, fleet [%d, %d])",
		a.cfg.ScaleInterval, a.cfg.LowerThreshold, a.cfg.UpperThreshold, a.cfg.MinWorkers, a.cfg.MaxWorkers)

	ticker := time.NewTicker(a.cfg.ScaleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCALE] autoscaler stopped")
			return nil
		case <-ticker.C:
			a.RunCycle(ctx)
		}
	}
}

// RunCycle performs one observe-decide-act cycle and returns the fleet
// size delta it requested: positive for launches, negative for
// terminations, zero for no action or an aborted cycle.
func (a *Autoscaler) RunCycle(ctx context.Context) int {
	depth, err := a.disp.TotalDepth(ctx)
	if err != nil {
		log.Printf("[WARN] scale cycle: depth read failed: %v", err)
		return 0
	}

	instances, err := a.fleet.ListWorkers(ctx)
	if err != nil {
		log.Printf("[WARN] scale cycle: fleet list failed: %v", err)
		return 0
	}
	active := len(instances)

	switch {
	case int(depth) > a.cfg.UpperThreshold && active < a.cfg.MaxWorkers:
		n := min(int(depth)-a.cfg.UpperThreshold, a.cfg.MaxWorkers-active)
		return a.scaleUp(ctx, n, depth, active)

	case int(depth) < a.cfg.LowerThreshold && active > a.cfg.MinWorkers:
		n := min(active-a.cfg.MinWorkers, a.cfg.LowerThreshold-int(depth))
		return a.scaleDown(ctx, n, instances, depth)

	default:
		return 0
	}
}

func (a *Autoscaler) scaleUp(ctx context.Context, n int, depth int64, active int) int {
	ids, err := a.fleet.Launch(ctx, n)
	if err != nil {
		log.Printf("[WARN] scale up by %d failed after %d launches: %v", n, len(ids), err)
		return len(ids)
	}
	log.Printf("[SCALE] up %d (depth %d, active %d): %v", n, depth, active, ids)
	return n
}

// scaleDown terminates arbitrarily chosen instances. No idleness check
// is made; a job in flight on a terminated worker is abandoned and its
// record stays PROCESSING.
func (a *Autoscaler) scaleDown(ctx context.Context, n int, instances []fleet.Instance, depth int64) int {
	victims := make([]string, 0, n)
	for _, inst := range instances[:n] {
		victims = append(victims, inst.ID)
	}
	if err := a.fleet.Terminate(ctx, victims); err != nil {
		log.Printf("[WARN] scale down by %d failed: %v", n, err)
		return 0
	}
	log.Printf("[SCALE] down %d (depth %d, active %d): %v", n, depth, len(instances), victims)
	return -n
}
