package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"roombook/pkg/model"
)

type memoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]model.Room
}

func NewMemoryRoomRepository(rooms ...*model.Room) RoomRepository {
	r := &memoryRoomRepository{rooms: make(map[string]model.Room, len(rooms))}
	for _, room := range rooms {
		r.rooms[room.ID] = *room
	}
	return r
}

func (r *memoryRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &room, nil
}

func (r *memoryRoomRepository) ListActive(ctx context.Context) ([]*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := []*model.Room{}
	for _, room := range r.rooms {
		if room.IsActive() {
			room := room
			rooms = append(rooms, &room)
		}
	}
	slices.SortFunc(rooms, func(a, b *model.Room) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return rooms, nil
}

func (r *memoryRoomRepository) Upsert(ctx context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.rooms[room.ID] = *room
	return nil
}
