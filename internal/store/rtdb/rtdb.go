// Package rtdb backs the store contract with Firebase Realtime
// Database: documents live under /<collection>/<key>, batches use one
// multi-path update and counters use server-side transactions. The Go
// Admin SDK has no streaming listener, so watches poll and diff.
package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"github.com/nexpos/engine/internal/store"
)

// Config points the backend at a database instance.
type Config struct {
	DatabaseURL     string
	CredentialsPath string
	// PollInterval controls watch latency. Zero means one second.
	PollInterval time.Duration
}

type Store struct {
	client *db.Client
	poll   time.Duration
}

var _ store.Store = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: cfg.DatabaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("init database client: %w", err)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &Store{client: client, poll: poll}, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func (s *Store) Get(ctx context.Context, coll, key string, v any) error {
	var raw json.RawMessage
	if err := s.client.NewRef(coll+"/"+key).Get(ctx, &raw); err != nil {
		return fmt.Errorf("get %s/%s: %w", coll, key, err)
	}
	if isNull(raw) {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, coll, key)
	}
	return json.Unmarshal(raw, v)
}

func (s *Store) Snapshot(ctx context.Context, coll string) (map[string]json.RawMessage, error) {
	var snap map[string]json.RawMessage
	if err := s.client.NewRef(coll).Get(ctx, &snap); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", coll, err)
	}
	if snap == nil {
		snap = make(map[string]json.RawMessage)
	}
	return snap, nil
}

// Update maps the batch onto one multi-path update, which the database
// applies atomically.
func (s *Store) Update(ctx context.Context, ops []store.Op) error {
	paths := make(map[string]any, len(ops))
	for _, op := range ops {
		paths[op.Collection+"/"+op.Key] = op.Value // nil deletes the path
	}
	if err := s.client.NewRef("").Update(ctx, paths); err != nil {
		return fmt.Errorf("multi-path update: %w", err)
	}
	return nil
}

// Create runs a transaction that only writes when the path is empty,
// so concurrent creators race safely and the loser gets ErrExists.
func (s *Store) Create(ctx context.Context, coll, key string, v any) error {
	err := s.client.NewRef(coll+"/"+key).Transaction(ctx, func(tn db.TransactionNode) (any, error) {
		var cur json.RawMessage
		if err := tn.Unmarshal(&cur); err != nil {
			return nil, err
		}
		if !isNull(cur) {
			return nil, store.ErrExists
		}
		return v, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrExists) || strings.Contains(err.Error(), store.ErrExists.Error()) {
			return fmt.Errorf("%w: %s/%s", store.ErrExists, coll, key)
		}
		return fmt.Errorf("create %s/%s: %w", coll, key, err)
	}
	return nil
}

func (s *Store) IncrementDailyCounter(ctx context.Context, dateKey string) (int64, error) {
	var committed int64
	err := s.client.NewRef(store.CollCounters+"/"+dateKey).Transaction(ctx, func(tn db.TransactionNode) (any, error) {
		var cur int64
		if err := tn.Unmarshal(&cur); err != nil {
			return nil, err
		}
		committed = cur + 1
		return committed, nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", dateKey, err)
	}
	return committed, nil
}

// Watch polls the collection and emits a snapshot whenever the payload
// differs from the last one sent. The 1-slot channel conflates bursts
// for slow consumers.
func (s *Store) Watch(ctx context.Context, coll string) (<-chan map[string]json.RawMessage, error) {
	first, err := s.Snapshot(ctx, coll)
	if err != nil {
		return nil, err
	}
	ch := make(chan map[string]json.RawMessage, 1)
	ch <- first

	go func() {
		defer close(ch)
		last := encodeSnapshot(first)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			snap, err := s.Snapshot(ctx, coll)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("ERROR: watch poll %s: %v", coll, err)
				continue
			}
			enc := encodeSnapshot(snap)
			if bytes.Equal(enc, last) {
				continue
			}
			last = enc
			select {
			case ch <- snap:
			default:
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- snap:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func encodeSnapshot(snap map[string]json.RawMessage) []byte {
	// Map marshaling sorts keys, so equal states encode equally.
	b, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	return b
}
