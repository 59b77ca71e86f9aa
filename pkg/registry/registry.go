// Package registry is the read side of worker liveness. Workers assert
// expiring heartbeat records; this package derives ALIVE or DEAD for
// health queries. Absence of the record implies death — the
// non-expiring id index is the tombstone that keeps the worker visible.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/store"
)

// Registry derives worker health from heartbeat records.
type Registry struct {
	store store.Store
	ttl   time.Duration
}

// New creates a Registry. ttl is the liveness window: a worker whose
// last-seen is older is DEAD even if its record has not expired yet.
func New(s store.Store, ttl time.Duration) *Registry {
	return &Registry{store: s, ttl: ttl}
}

// Workers returns every known worker with derived status, sorted by id.
func (r *Registry) Workers(ctx context.Context) ([]models.WorkerHealth, error) {
	ids, err := r.store.SMembers(ctx, store.WorkerIDsKey)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	now := time.Now().UTC()
	out := make([]models.WorkerHealth, 0, len(ids))
	for _, id := range ids {
		raw, err := r.store.Get(ctx, store.WorkerKey(id))
		if err != nil {
			if errors.Is(err, store.ErrNil) {
				// Record expired: the worker stopped heartbeating.
				out = append(out, models.WorkerHealth{ID: id, Status: models.WorkerDead})
				continue
			}
			return nil, err
		}

		var rec models.WorkerRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			out = append(out, models.WorkerHealth{ID: id, Status: models.WorkerDead})
			continue
		}

		status := models.WorkerDead
		if now.Sub(rec.LastSeen) < r.ttl {
			status = models.WorkerAlive
		}
		out = append(out, models.WorkerHealth{
			ID:       id,
			Lane:     rec.Lane,
			Status:   status,
			LastSeen: rec.LastSeen,
		})
	}
	return out, nil
}
