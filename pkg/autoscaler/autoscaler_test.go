package autoscaler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/deps"
	"github.com/athulya-anil/laneq/pkg/fleet"
	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/queue"
	"github.com/athulya-anil/laneq/pkg/store/memstore"
)

// fakeFleet is an in-memory Fleet for exercising scale decisions.
type fakeFleet struct {
	instances []fleet.Instance
	listErr   error
	launchErr error

	launched   int
	terminated []string
}

func (f *fakeFleet) ListWorkers(ctx context.Context) ([]fleet.Instance, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.instances, nil
}

func (f *fakeFleet) Launch(ctx context.Context, n int) ([]string, error) {
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("launched-%d", f.launched+i)
	}
	f.launched += n
	return ids, nil
}

func (f *fakeFleet) Terminate(ctx context.Context, ids []string) error {
	f.terminated = append(f.terminated, ids...)
	return nil
}

func workers(n int) []fleet.Instance {
	out := make([]fleet.Instance, n)
	for i := range out {
		out[i] = fleet.Instance{ID: fmt.Sprintf("worker-%d", i), State: "Running"}
	}
	return out
}

func newTestScaler(t *testing.T, f *fakeFleet) (*Autoscaler, *queue.Dispatcher, config.Config) {
	t.Helper()
	st := memstore.New()
	cfg := config.Default() // thresholds 50/10, fleet bounds [1, 10]
	disp := queue.NewDispatcher(st, deps.NewTracker(st), cfg)
	return New(disp, f, cfg), disp, cfg
}

func fill(t *testing.T, disp *queue.Dispatcher, priority models.Priority, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := disp.Enqueue(context.Background(), queue.SubmitRequest{Type: "t", Priority: priority}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
}

func TestScaleUpOnDeepQueue(t *testing.T) {
	f := &fakeFleet{instances: workers(2)}
	scaler, disp, _ := newTestScaler(t, f)

	// Depth 75 across both lanes against an upper threshold of 50 asks
	// for 25 more workers; the fleet cap of 10 with 2 active allows 8.
	fill(t, disp, models.PriorityHigh, 50)
	fill(t, disp, models.PriorityNormal, 25)

	if delta := scaler.RunCycle(context.Background()); delta != 8 {
		t.Errorf("delta: got %d, want 8", delta)
	}
	if f.launched != 8 {
		t.Errorf("launched: got %d, want 8", f.launched)
	}
}

func TestNoScaleUpAtMaxWorkers(t *testing.T) {
	f := &fakeFleet{instances: workers(10)}
	scaler, disp, _ := newTestScaler(t, f)
	fill(t, disp, models.PriorityNormal, 200)

	if delta := scaler.RunCycle(context.Background()); delta != 0 {
		t.Errorf("delta at max fleet: got %d, want 0", delta)
	}
	if f.launched != 0 {
		t.Errorf("launched at max fleet: got %d, want 0", f.launched)
	}
}

func TestScaleDownOnShallowQueue(t *testing.T) {
	f := &fakeFleet{instances: workers(6)}
	scaler, disp, _ := newTestScaler(t, f)

	// Depth 4 against a lower threshold of 10 allows removing up to 6,
	// bounded by the 5 workers above the floor of 1.
	fill(t, disp, models.PriorityNormal, 4)

	if delta := scaler.RunCycle(context.Background()); delta != -5 {
		t.Errorf("delta: got %d, want -5", delta)
	}
	if len(f.terminated) != 5 {
		t.Errorf("terminated: got %d, want 5", len(f.terminated))
	}
}

func TestScaleDownBoundedByGap(t *testing.T) {
	f := &fakeFleet{instances: workers(10)}
	scaler, disp, _ := newTestScaler(t, f)

	// Depth 8 is only 2 under the lower threshold, so at most 2 go even
	// though 9 workers sit above the floor.
	fill(t, disp, models.PriorityNormal, 8)

	if delta := scaler.RunCycle(context.Background()); delta != -2 {
		t.Errorf("delta: got %d, want -2", delta)
	}
}

func TestNoActionInsideBand(t *testing.T) {
	f := &fakeFleet{instances: workers(3)}
	scaler, disp, _ := newTestScaler(t, f)
	fill(t, disp, models.PriorityNormal, 30) // between thresholds

	if delta := scaler.RunCycle(context.Background()); delta != 0 {
		t.Errorf("delta inside band: got %d, want 0", delta)
	}
	if f.launched != 0 || len(f.terminated) != 0 {
		t.Errorf("fleet touched inside band: launched %d, terminated %v", f.launched, f.terminated)
	}
}

func TestNoScaleDownAtMinWorkers(t *testing.T) {
	f := &fakeFleet{instances: workers(1)}
	scaler, _, _ := newTestScaler(t, f)

	if delta := scaler.RunCycle(context.Background()); delta != 0 {
		t.Errorf("delta at min fleet: got %d, want 0", delta)
	}
	if len(f.terminated) != 0 {
		t.Errorf("terminated at min fleet: %v", f.terminated)
	}
}

func TestCycleAbortsOnFleetListError(t *testing.T) {
	f := &fakeFleet{listErr: errors.New("api server unavailable")}
	scaler, disp, _ := newTestScaler(t, f)
	fill(t, disp, models.PriorityNormal, 200)

	if delta := scaler.RunCycle(context.Background()); delta != 0 {
		t.Errorf("delta after list failure: got %d, want 0", delta)
	}
	if f.launched != 0 {
		t.Errorf("launched after list failure: got %d, want 0", f.launched)
	}
}

func TestLaunchFailureReportsPartialDelta(t *testing.T) {
	f := &fakeFleet{instances: workers(2), launchErr: errors.New("quota exceeded")}
	scaler, disp, _ := newTestScaler(t, f)
	fill(t, disp, models.PriorityNormal, 100)

	if delta := scaler.RunCycle(context.Background()); delta != 0 {
		t.Errorf("delta after launch failure: got %d, want 0", delta)
	}
}
