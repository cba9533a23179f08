package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nexpos/engine/internal/store"
)

type doc struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestGetNotFound(t *testing.T) {
	s := New()
	var d doc
	err := s.Get(context.Background(), "products", "nope", &d)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAtomicBatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.Update(ctx, []store.Op{
		store.Put("orders", "o1", doc{Name: "a"}),
		store.Put("shifts", "s1", doc{Name: "b"}),
		store.Delete("openOrders", "t1"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	var d doc
	if err := s.Get(ctx, "orders", "o1", &d); err != nil || d.Name != "a" {
		t.Errorf("orders/o1 = %+v, %v", d, err)
	}
	if err := s.Get(ctx, "shifts", "s1", &d); err != nil || d.Name != "b" {
		t.Errorf("shifts/s1 = %+v, %v", d, err)
	}
}

func TestUpdateBadValueAppliesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.Update(ctx, []store.Op{
		store.Put("orders", "o1", doc{Name: "good"}),
		store.Put("orders", "o2", make(chan int)), // unmarshalable
	})
	if err == nil {
		t.Fatal("want marshal error")
	}
	var d doc
	if err := s.Get(ctx, "orders", "o1", &d); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("o1 written despite failed batch: %v", err)
	}
}

func TestCreateConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Create(ctx, "openOrders", "t1", doc{Name: "first"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, "openOrders", "t1", doc{Name: "second"})
	if !errors.Is(err, store.ErrExists) {
		t.Errorf("err = %v, want ErrExists", err)
	}
	var d doc
	if err := s.Get(ctx, "openOrders", "t1", &d); err != nil || d.Name != "first" {
		t.Errorf("winner overwritten: %+v, %v", d, err)
	}
}

func TestDailyCounterConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	const n = 50
	seen := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.IncrementDailyCounter(ctx, "2026-08-31")
			if err != nil {
				t.Errorf("counter: %v", err)
				return
			}
			seen <- v
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[int64]bool)
	for v := range seen {
		if got[v] {
			t.Fatalf("duplicate sequence %d", v)
		}
		got[v] = true
	}
	if len(got) != n {
		t.Errorf("sequences = %d, want %d", len(got), n)
	}
}

func TestWatchInitialAndUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()
	if err := s.Update(ctx, []store.Op{store.Put("tables", "t1", doc{Name: "T1"})}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ch, err := s.Watch(ctx, "tables")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	snap := <-ch
	if len(snap) != 1 {
		t.Fatalf("initial snapshot = %d docs, want 1", len(snap))
	}

	if err := s.Update(ctx, []store.Op{store.Put("tables", "t2", doc{Name: "T2"})}); err != nil {
		t.Fatalf("update: %v", err)
	}
	select {
	case snap = <-ch:
	case <-time.After(time.Second):
		t.Fatal("no update snapshot")
	}
	if len(snap) != 2 {
		t.Errorf("updated snapshot = %d docs, want 2", len(snap))
	}
}

func TestWatchConflatesForSlowConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()
	ch, err := s.Watch(ctx, "orders")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	<-ch // drain initial empty snapshot

	// Nobody reading: ten writes must conflate, never block.
	for i := 0; i < 10; i++ {
		if err := s.Update(ctx, []store.Op{store.Put("orders", "o", doc{N: i})}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	snap := <-ch
	d, err := store.Decode[doc](snap["o"])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.N != 9 {
		t.Errorf("conflated snapshot n = %d, want latest 9", d.N)
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()
	ch, err := s.Watch(ctx, "orders")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	<-ch
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// A snapshot may have been buffered; the next read must
			// observe the close.
			if _, ok := <-ch; ok {
				t.Error("channel still open after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
