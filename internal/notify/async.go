package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roombook/pkg/logger"
)

// Async dispatches each notification on its own goroutine with a bounded
// timeout. Failures are logged and dropped.
type Async struct {
	dispatcher Dispatcher
	timeout    time.Duration
	log        *logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsync(dispatcher Dispatcher, timeout time.Duration, log *logger.Logger) *Async {
	if log == nil {
		log = logger.Discard()
	}
	return &Async{
		dispatcher: dispatcher,
		timeout:    timeout,
		log:        log,
	}
}

func (a *Async) Notify(n Notification) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.log.Warn("Notification dropped after shutdown",
			"booking_id", n.BookingID,
			"event", n.Event,
		)
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("Notification dispatch panicked",
					"booking_id", n.BookingID,
					"event", n.Event,
					"panic", fmt.Sprint(r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.dispatcher.Dispatch(ctx, n); err != nil {
			a.log.Warn("Failed to dispatch notification",
				"booking_id", n.BookingID,
				"event", n.Event,
				"error", err,
			)
			return
		}
		a.log.Debug("Notification dispatched", "booking_id", n.BookingID, "event", n.Event)
	}()
}

// Wait blocks until every in-flight dispatch has returned.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Close stops accepting notifications, drains in-flight ones until ctx is
// done and closes the dispatcher.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("Timed out waiting for in-flight notifications", "error", ctx.Err())
	}
	return a.dispatcher.Close()
}
