package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"roombook/pkg/logger"
	"roombook/pkg/model"
)

const (
	roomKeyPrefix  = "room:"
	activeRoomsKey = "rooms:active"
)

// cachedRoomRepository keeps JSON copies of catalog reads in Redis. Any
// Redis failure falls through to the wrapped store.
type cachedRoomRepository struct {
	inner RoomRepository
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedRoomRepository(inner RoomRepository, rdb *redis.Client, ttl time.Duration, log *logger.Logger) RoomRepository {
	if rdb == nil {
		return inner
	}
	return &cachedRoomRepository{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   log,
	}
}

func (c *cachedRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if c.get(ctx, roomKeyPrefix+id, &room) {
		return &room, nil
	}

	found, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, roomKeyPrefix+id, found)
	return found, nil
}

func (c *cachedRoomRepository) ListActive(ctx context.Context) ([]*model.Room, error) {
	var rooms []*model.Room
	if c.get(ctx, activeRoomsKey, &rooms) {
		return rooms, nil
	}

	rooms, err := c.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, activeRoomsKey, rooms)
	return rooms, nil
}

func (c *cachedRoomRepository) Upsert(ctx context.Context, room *model.Room) error {
	if err := c.inner.Upsert(ctx, room); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, roomKeyPrefix+room.ID, activeRoomsKey).Err(); err != nil {
		c.log.Warn("Failed to invalidate room cache", "room_id", room.ID, "error", err)
	}
	return nil
}

func (c *cachedRoomRepository) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Room cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("Discarding corrupt room cache entry", "key", key, "error", err)
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *cachedRoomRepository) set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Room cache write failed", "key", key, "error", err)
	}
}
