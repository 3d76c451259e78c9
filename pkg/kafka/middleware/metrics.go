package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"roombook/pkg/kafka"
)

// Metrics counts messages through a producer or consumer. One instance per
// client; the zero value is ready to use.
type Metrics struct {
	succeeded atomic.Int64
	failed    atomic.Int64
	duration  atomic.Int64 // nanoseconds, successes and failures
}

type MetricsSnapshot struct {
	Succeeded   int64
	Failed      int64
	AvgDuration time.Duration
}

func (m *Metrics) observe(start time.Time, err error) {
	m.duration.Add(int64(time.Since(start)))
	if err != nil {
		m.failed.Add(1)
		return
	}
	m.succeeded.Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Succeeded: m.succeeded.Load(),
		Failed:    m.failed.Load(),
	}
	if total := s.Succeeded + s.Failed; total > 0 {
		s.AvgDuration = time.Duration(m.duration.Load() / total)
	}
	return s
}

// LogArgs renders the snapshot as slog key/value pairs.
func (s MetricsSnapshot) LogArgs() []any {
	return []any{
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"avg_duration", s.AvgDuration,
	}
}

func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.observe(start, err)
		return err
	}
}

func MetricsConsumerMiddleware(m *Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.observe(start, err)
		return err
	}
}
