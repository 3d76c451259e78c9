package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"roombook/internal/auth"
	apperrors "roombook/pkg/errors"
	httputil "roombook/pkg/http"
	"roombook/pkg/logger"
)

const DefaultIdempotencyHeader = "Idempotency-Key"

// Reservation is the outcome of claiming an idempotency key.
type Reservation int

const (
	// ReservationAcquired means the caller owns the key and must run the request.
	ReservationAcquired Reservation = iota
	// ReservationReplay means a completed response is cached for the key.
	ReservationReplay
	// ReservationInFlight means another request holding the key is still running.
	ReservationInFlight
)

type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (Reservation, *CachedResponse, error)
	Complete(ctx context.Context, key string, response *CachedResponse) error
	Release(ctx context.Context, key string) error
	Stop()
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type memoryEntry struct {
	response  *CachedResponse
	createdAt time.Time
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	store    map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:  make(map[string]*memoryEntry),
		ttl:    ttl,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Reserve(ctx context.Context, key string) (Reservation, *CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.store[key]; ok && now.Sub(entry.createdAt) <= s.ttl {
		if entry.response == nil {
			return ReservationInFlight, nil, nil
		}
		return ReservationReplay, entry.response, nil
	}

	s.store[key] = &memoryEntry{createdAt: now}
	return ReservationAcquired, nil, nil
}

func (s *InMemoryIdempotencyStore) Complete(ctx context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	response.CreatedAt = now
	s.store[key] = &memoryEntry{response: response, createdAt: now}
	return nil
}

func (s *InMemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.store, key)
	return nil
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, entry := range s.store {
				if now.Sub(entry.createdAt) > s.ttl {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

const (
	idempotencyKeyPrefix = "idempotency:"
	pendingMarker        = "pending"
)

// RedisIdempotencyStore shares keys between replicas. A reservation is a
// SETNX of a pending marker that the completed response later overwrites.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (Reservation, *CachedResponse, error) {
	key = idempotencyKeyPrefix + key

	ok, err := s.rdb.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil {
		return 0, nil, err
	}
	if ok {
		return ReservationAcquired, nil, nil
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; the next attempt can take it.
		return ReservationInFlight, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	if string(raw) == pendingMarker {
		return ReservationInFlight, nil, nil
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return 0, nil, err
	}
	return ReservationReplay, &cached, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now().UTC()
	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, idempotencyKeyPrefix+key, raw, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (s *RedisIdempotencyStore) Stop() {}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response for a repeated key.
// Keys are scoped per caller, method and path. A repeat that arrives while
// the first request is still running gets 409. Non-2xx outcomes release the
// key so the client can retry.
func Idempotency(store IdempotencyStore, headerName string, log *logger.Logger) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(headerName)
			if header == "" || !requiresContentType(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := scopedKey(r, header)
			ctx := context.WithoutCancel(r.Context())

			state, cached, err := store.Reserve(ctx, key)
			if err != nil {
				log.Warn("Idempotency store unavailable, processing request without it",
					"request_id", RequestID(r.Context()),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			switch state {
			case ReservationReplay:
				replayCachedResponse(w, cached)
				return
			case ReservationInFlight:
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this idempotency key is still being processed"))
				return
			}

			capture := captureResponse(w)
			completed := false
			defer func() {
				if !completed {
					_ = store.Release(ctx, key)
				}
			}()

			next.ServeHTTP(capture, r)

			if !shouldCacheResponse(capture.statusCode) {
				return
			}
			if err := store.Complete(ctx, key, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			}); err != nil {
				log.Warn("Failed to cache idempotent response", "request_id", RequestID(r.Context()), "error", err)
				return
			}
			completed = true
		})
	}
}

func scopedKey(r *http.Request, header string) string {
	owner := "anonymous"
	if caller, ok := auth.FromContext(r.Context()); ok {
		owner = caller.ID
	}
	return owner + "|" + r.Method + "|" + r.URL.Path + "|" + header
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == RequestIDHeader {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func captureResponse(w http.ResponseWriter) *responseCapture {
	return &responseCapture{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
}

func shouldCacheResponse(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
