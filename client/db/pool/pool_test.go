package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"decred.org/wadwallet/client/db"
)

func TestAcquireTimeout(t *testing.T) {
	p := New(nil, 2, 50*time.Millisecond)
	ctx := context.Background()

	_, rel1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	_, rel2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire error: %v", err)
	}

	tStart := time.Now()
	if _, _, err := p.Acquire(ctx); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout from exhausted pool, got %v", err)
	}
	if time.Since(tStart) < 50*time.Millisecond {
		t.Fatalf("Acquire returned before the timeout")
	}

	rel1()
	rel1() // second release is ignored
	_, rel3, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after release error: %v", err)
	}
	if _, _, err := p.Acquire(ctx); !errors.Is(err, ErrTimeout) {
		t.Fatalf("double release freed an extra connection")
	}
	rel2()
	rel3()
}

func TestWith(t *testing.T) {
	p := New(nil, 3, time.Second)
	var inUse, maxInUse atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.With(context.Background(), func(db.DB) error {
				n := inUse.Add(1)
				for {
					m := maxInUse.Load()
					if n <= m || maxInUse.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inUse.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("With error: %v", err)
			}
		}()
	}
	wg.Wait()
	if maxInUse.Load() > 3 {
		t.Fatalf("pool of 3 allowed %d concurrent users", maxInUse.Load())
	}

	errBoom := errors.New("boom")
	if err := p.With(context.Background(), func(db.DB) error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if errors.Is(errBoom, ErrTimeout) {
		t.Fatalf("callback error classified as timeout")
	}
}

func TestDefaults(t *testing.T) {
	p := New(nil, 0, 0)
	if p.Size() != DefaultSize || p.timeout != DefaultTimeout {
		t.Fatalf("defaults not applied: %d %s", p.Size(), p.timeout)
	}
}
