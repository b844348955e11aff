// Package store provides room catalog persistence.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"concierge/internal/rooms"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

// InMemoryStore keeps the catalog in a map. Used in tests and when no
// database is configured.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[id.RoomID]*rooms.Room
	byNum map[string]id.RoomID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[id.RoomID]*rooms.Room),
		byNum: make(map[string]id.RoomID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, room *rooms.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byNum[room.Number]; exists {
		return sentinel.ErrConflict
	}

	copied := *room
	s.byID[room.ID] = &copied
	s.byNum[room.Number] = room.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, roomID id.RoomID) (*rooms.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.byID[roomID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *room
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*rooms.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*rooms.Room, 0, len(s.byID))
	for _, room := range s.byID {
		copied := *room
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Number, out[j].Number) < 0
	})
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, room *rooms.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[room.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *room
	s.byID[room.ID] = &copied
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, roomID id.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.byID[roomID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byNum, room.Number)
	delete(s.byID, roomID)
	return nil
}
