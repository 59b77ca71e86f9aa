package registry

import (
	"context"
	"testing"
	"time"

	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/store"
	"github.com/athulya-anil/laneq/pkg/store/memstore"
	"github.com/athulya-anil/laneq/pkg/worker"
)

func TestBeatingWorkerIsAlive(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	hb := worker.NewHeartbeatSender(st, "worker-a", "high", time.Second, time.Minute)
	if err := st.SAdd(ctx, store.WorkerIDsKey, "worker-a"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := hb.Beat(ctx); err != nil {
		t.Fatalf("beat: %v", err)
	}

	reg := New(st, time.Minute)
	workers, err := reg.Workers(ctx)
	if err != nil {
		t.Fatalf("workers: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("got %d workers, want 1", len(workers))
	}
	w := workers[0]
	if w.ID != "worker-a" || w.Status != models.WorkerAlive || w.Lane != "high" {
		t.Errorf("unexpected health record: %+v", w)
	}
}

func TestSilentWorkerTurnsDead(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	ttl := 30 * time.Millisecond
	hb := worker.NewHeartbeatSender(st, "worker-b", "normal", ttl, ttl)
	if err := st.SAdd(ctx, store.WorkerIDsKey, "worker-b"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := hb.Beat(ctx); err != nil {
		t.Fatalf("beat: %v", err)
	}

	reg := New(st, ttl)
	workers, _ := reg.Workers(ctx)
	if len(workers) != 1 || workers[0].Status != models.WorkerAlive {
		t.Fatalf("want one ALIVE worker right after beat, got %+v", workers)
	}

	// Past the TTL the record is gone but the id index keeps the worker
	// visible as DEAD.
	time.Sleep(2 * ttl)
	workers, err := reg.Workers(ctx)
	if err != nil {
		t.Fatalf("workers: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("got %d workers, want 1", len(workers))
	}
	if workers[0].Status != models.WorkerDead {
		t.Errorf("status: got %s, want DEAD", workers[0].Status)
	}
}

func TestUnknownRecordShapeIsDead(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	if err := st.SAdd(ctx, store.WorkerIDsKey, "worker-c"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := st.SetEx(ctx, store.WorkerKey("worker-c"), "not-json", time.Minute); err != nil {
		t.Fatalf("setex: %v", err)
	}

	reg := New(st, time.Minute)
	workers, err := reg.Workers(ctx)
	if err != nil {
		t.Fatalf("workers: %v", err)
	}
	if len(workers) != 1 || workers[0].Status != models.WorkerDead {
		t.Errorf("corrupt record should read DEAD, got %+v", workers)
	}
}

func TestWorkersSortedByID(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	for _, id := range []string{"worker-z", "worker-a", "worker-m"} {
		if err := st.SAdd(ctx, store.WorkerIDsKey, id); err != nil {
			t.Fatalf("index: %v", err)
		}
	}

	reg := New(st, time.Minute)
	workers, err := reg.Workers(ctx)
	if err != nil {
		t.Fatalf("workers: %v", err)
	}
	want := []string{"worker-a", "worker-m", "worker-z"}
	for i, id := range want {
		if workers[i].ID != id {
			t.Errorf("workers[%d]: got %s, want %s", i, workers[i].ID, id)
		}
	}
}
