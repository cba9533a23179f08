// Package memory is the in-process store backend: mutex-guarded maps
// of marshaled documents. It backs tests and single-node deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nexpos/engine/internal/store"
)

// watcher channels carry one buffered snapshot; a slow consumer's
// stale snapshot is replaced rather than queued.
type watcher struct {
	coll string
	ch   chan map[string]json.RawMessage
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	colls    map[string]map[string]json.RawMessage
	counters map[string]int64
	watchers []*watcher
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		colls:    make(map[string]map[string]json.RawMessage),
		counters: make(map[string]int64),
	}
}

func (s *Store) Get(ctx context.Context, coll, key string, v any) error {
	s.mu.Lock()
	raw, ok := s.colls[coll][key]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, coll, key)
	}
	return json.Unmarshal(raw, v)
}

func (s *Store) Snapshot(ctx context.Context, coll string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySnapshot(s.colls[coll]), nil
}

// Update marshals every value before touching state so a bad document
// cannot leave a half-applied batch.
func (s *Store) Update(ctx context.Context, ops []store.Op) error {
	type staged struct {
		coll, key string
		raw       json.RawMessage // nil deletes
	}
	batch := make([]staged, 0, len(ops))
	for _, op := range ops {
		if op.Value == nil {
			batch = append(batch, staged{coll: op.Collection, key: op.Key})
			continue
		}
		raw, err := json.Marshal(op.Value)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", op.Collection, op.Key, err)
		}
		batch = append(batch, staged{coll: op.Collection, key: op.Key, raw: raw})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	touched := make(map[string]struct{})
	for _, st := range batch {
		if st.raw == nil {
			delete(s.colls[st.coll], st.key)
		} else {
			if s.colls[st.coll] == nil {
				s.colls[st.coll] = make(map[string]json.RawMessage)
			}
			s.colls[st.coll][st.key] = st.raw
		}
		touched[st.coll] = struct{}{}
	}
	for coll := range touched {
		s.notifyLocked(coll)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, coll, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", coll, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colls[coll][key]; ok {
		return fmt.Errorf("%w: %s/%s", store.ErrExists, coll, key)
	}
	if s.colls[coll] == nil {
		s.colls[coll] = make(map[string]json.RawMessage)
	}
	s.colls[coll][key] = raw
	s.notifyLocked(coll)
	return nil
}

func (s *Store) IncrementDailyCounter(ctx context.Context, dateKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[dateKey]++
	return s.counters[dateKey], nil
}

func (s *Store) Watch(ctx context.Context, coll string) (<-chan map[string]json.RawMessage, error) {
	w := &watcher{coll: coll, ch: make(chan map[string]json.RawMessage, 1)}

	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	w.ch <- copySnapshot(s.colls[coll])
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, cand := range s.watchers {
			if cand == w {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(w.ch)
	}()
	return w.ch, nil
}

// notifyLocked pushes the current snapshot to each watcher of coll.
// With the 1-slot buffer full, the stale pending snapshot is replaced
// instead of blocking the writer.
func (s *Store) notifyLocked(coll string) {
	for _, w := range s.watchers {
		if w.coll != coll {
			continue
		}
		snap := copySnapshot(s.colls[coll])
		select {
		case w.ch <- snap:
		default:
			select {
			case <-w.ch:
			default:
			}
			select {
			case w.ch <- snap:
			default:
			}
		}
	}
}

func copySnapshot(src map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
