package worker

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/store"
)

// HeartbeatSender periodically asserts the worker's liveness record
// under an expiring key. If the worker stops beating, the record
// vanishes within the TTL and the registry derives DEAD.
type HeartbeatSender struct {
	store     store.Store
	workerID  string
	lane      string
	interval  time.Duration
	ttl       time.Duration
	startedAt time.Time
}

// NewHeartbeatSender creates a sender for the given worker.
func NewHeartbeatSender(s store.Store, workerID, lane string, interval, ttl time.Duration) *HeartbeatSender {
	return &HeartbeatSender{
		store:     s,
		workerID:  workerID,
		lane:      lane,
		interval:  interval,
		ttl:       ttl,
		startedAt: time.Now().UTC(),
	}
}

// Run beats once immediately, then on every interval until ctx is done.
// The worker id is also added to the non-expiring index so a crashed
// worker still shows up as DEAD in health queries.
func (h *HeartbeatSender) Run(ctx context.Context) error {
	if err := h.store.SAdd(ctx, store.WorkerIDsKey, h.workerID); err != nil {
		return err
	}
	if err := h.beat(ctx); err != nil {
		log.Printf("[WARN] heartbeat for %s failed: %v", h.workerID, err)
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[HB] heartbeat sender for %s stopped", h.workerID)
			return nil
		case <-ticker.C:
			if err := h.beat(ctx); err != nil {
				log.Printf("[WARN] heartbeat for %s failed: %v", h.workerID, err)
			}
		}
	}
}

// Beat writes one heartbeat record. Exposed for tests.
func (h *HeartbeatSender) Beat(ctx context.Context) error {
	return h.beat(ctx)
}

func (h *HeartbeatSender) beat(ctx context.Context) error {
	hostname, _ := os.Hostname()
	record := models.WorkerRecord{
		ID:        h.workerID,
		Lane:      h.lane,
		Hostname:  hostname,
		StartedAt: h.startedAt,
		LastSeen:  time.Now().UTC(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return h.store.SetEx(ctx, store.WorkerKey(h.workerID), string(raw), h.ttl)
}
