package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "r1_2025-06-01")
			if err != nil {
				t.Errorf("Lock() error: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most one holder at a time, saw %d", maxInside)
	}
	if km.size() != 0 {
		t.Errorf("expected idle keys to be dropped, %d remain", km.size())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := km.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock(a) error: %v", err)
	}
	defer unlockA()

	timeoutCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := km.Lock(timeoutCtx, "b")
	if err != nil {
		t.Fatalf("different key should not block: %v", err)
	}
	unlockB()
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	km := NewKeyedMutex()
	unlock, _ := km.Lock(context.Background(), "k")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := km.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()
	if km.size() != 0 {
		t.Errorf("expected key released after waiter gave up, %d remain", km.size())
	}
}

func TestWithSlotLock_BusyAfterWait(t *testing.T) {
	km := NewKeyedMutex()
	unlock, _ := km.Lock(context.Background(), SlotKey("r1", "2025-06-01"))
	defer unlock()

	called := false
	err := withSlotLock(context.Background(), km, 30*time.Millisecond, 0, "r1", "2025-06-01", func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, bookingserrors.ErrSlotBusy) {
		t.Fatalf("expected ErrSlotBusy, got %v", err)
	}
	if called {
		t.Errorf("fn must not run without the lock")
	}
}

func TestWithSlotLock_CallerCancelled(t *testing.T) {
	km := NewKeyedMutex()
	unlock, _ := km.Lock(context.Background(), SlotKey("r1", "2025-06-01"))
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withSlotLock(ctx, km, time.Second, 0, "r1", "2025-06-01", func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithSlotLock_HoldBoundsWork(t *testing.T) {
	km := NewKeyedMutex()

	var deadline time.Time
	var hasDeadline bool
	start := time.Now()
	err := withSlotLock(context.Background(), km, time.Second, 200*time.Millisecond, "r1", "2025-06-01", func(ctx context.Context) error {
		deadline, hasDeadline = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected work to be cut off at the hold, got %v", err)
	}
	if !hasDeadline || deadline.Sub(start) > 200*time.Millisecond+50*time.Millisecond {
		t.Errorf("deadline = %v after start, want about 200ms", deadline.Sub(start))
	}

	err = withSlotLock(context.Background(), km, time.Second, 0, "r1", "2025-06-01", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Errorf("zero hold must not add a deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withSlotLock() error: %v", err)
	}
	if km.size() != 0 {
		t.Errorf("lock should be released, %d keys remain", km.size())
	}
}

type recordingLocker struct {
	name   string
	log    *[]string
	failOn bool
}

func (l recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.failOn {
		return nil, errors.New(l.name + " failed")
	}
	*l.log = append(*l.log, "lock "+l.name)
	return func() { *l.log = append(*l.log, "unlock "+l.name) }, nil
}

func TestChainLockers(t *testing.T) {
	var log []string
	chain := ChainLockers(recordingLocker{name: "a", log: &log}, recordingLocker{name: "b", log: &log})

	unlock, err := chain.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	unlock()
	unlock()

	want := []string{"lock a", "lock b", "unlock b", "unlock a"}
	if len(log) != len(want) {
		t.Fatalf("got %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("step %d: got %q, want %q", i, log[i], want[i])
		}
	}

	log = nil
	chain = ChainLockers(recordingLocker{name: "a", log: &log}, recordingLocker{name: "b", log: &log, failOn: true})
	if _, err := chain.Lock(context.Background(), "k"); err == nil {
		t.Fatalf("expected failure from second locker")
	}
	if len(log) != 2 || log[1] != "unlock a" {
		t.Errorf("first lock should be released on failure, got %v", log)
	}
}
