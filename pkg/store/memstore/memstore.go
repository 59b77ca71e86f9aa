// Package memstore is a fully in-memory store.Store. Safe for concurrent
// access. Intended for unit testing and local development.
package memstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/athulya-anil/laneq/pkg/store"
)

var _ store.Store = (*Store)(nil)

type expiring struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store holds lists, hashes, sets and expiring string keys behind one
// mutex. Blocked pops wait on a per-key notification channel that is
// closed whenever the key receives a push.
type Store struct {
	mu      sync.Mutex
	lists   map[string][]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	strings map[string]expiring
	notify  map[string]chan struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		lists:   make(map[string][]string),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
		strings: make(map[string]expiring),
		notify:  make(map[string]chan struct{}),
	}
}

func (s *Store) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	if ch, ok := s.notify[key]; ok {
		close(ch)
		delete(s.notify, key)
	}
	return nil
}

func (s *Store) BLPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		s.mu.Lock()
		if l := s.lists[key]; len(l) > 0 {
			v := l[0]
			s.lists[key] = l[1:]
			s.mu.Unlock()
			return v, nil
		}
		ch, ok := s.notify[key]
		if !ok {
			ch = make(chan struct{})
			s.notify[key] = ch
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", store.ErrNil
		case <-ch:
		}
	}
}

func (s *Store) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.lists[key])), nil
}

func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *Store) HGet(_ context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		return "", store.ErrNil
	}
	v, ok := h[field]
	if !ok {
		return "", store.ErrNil
	}
	return v, nil
}

func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	cur, _ := strconv.ParseInt(h[field], 10, 64)
	cur += delta
	h[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *Store) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *Store) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	for _, m := range members {
		delete(set, m)
	}
	return nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) SCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sets[key])), nil
}

func (s *Store) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := expiring{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.strings[key] = e
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.strings[key]
	if !ok || s.expiredLocked(key, e) {
		return "", store.ErrNil
	}
	return e.value, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.strings[key]
	if ok && !s.expiredLocked(key, e) {
		return true, nil
	}
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	return false, nil
}

// expiredLocked lazily evicts an expired string key.
func (s *Store) expiredLocked(key string, e expiring) bool {
	if e.expiresAt.IsZero() || time.Now().Before(e.expiresAt) {
		return false
	}
	delete(s.strings, key)
	return true
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.lists, k)
		delete(s.hashes, k)
		delete(s.sets, k)
		delete(s.strings, k)
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
