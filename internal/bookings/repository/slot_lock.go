package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
)

// SlotLocker serializes work on a single key. The returned unlock func is
// safe to call more than once.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func SlotKey(roomID, date string) string {
	return roomID + "_" + date
}

// withSlotLock runs fn while holding the lock for roomID/date. Waiting longer
// than wait fails with ErrSlotBusy; a cancelled caller context is returned
// as is. A positive hold bounds fn's context so work under a lock that
// expires on its own (the Mongo lock document) stops before the lock does.
func withSlotLock(ctx context.Context, locker SlotLocker, wait, hold time.Duration, roomID, date string, fn func(ctx context.Context) error) error {
	key := SlotKey(roomID, date)

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	unlock, err := locker.Lock(lockCtx, key)
	cancel()
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrSlotBusy, key)
		}
		return err
	}
	defer unlock()

	if hold > 0 {
		var cancelHold context.CancelFunc
		ctx, cancelHold = context.WithTimeout(ctx, hold)
		defer cancelHold()
	}
	return fn(ctx)
}

// KeyedMutex is an in-process lock per key. Entries are dropped once no
// goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*keyedSlot
}

type keyedSlot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*keyedSlot)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &keyedSlot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, s)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(key string, s *keyedSlot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

type chainLocker []SlotLocker

// ChainLockers acquires every locker in order and releases them in reverse.
func ChainLockers(lockers ...SlotLocker) SlotLocker {
	return chainLocker(lockers)
}

func (c chainLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, l := range c {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}
