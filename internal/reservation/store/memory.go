// Package store provides reservation persistence.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"concierge/internal/reservation"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

// InMemoryStore keeps reservations in maps. Used in tests and when no
// database is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.ReservationID]*reservation.Reservation
	byUser map[id.UserID][]id.ReservationID
	byRoom map[id.RoomID][]id.ReservationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.ReservationID]*reservation.Reservation),
		byUser: make(map[id.UserID][]id.ReservationID),
		byRoom: make(map[id.RoomID][]id.ReservationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, res *reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *res
	s.byID[res.ID] = &copied
	s.byUser[res.UserID] = append(s.byUser[res.UserID], res.ID)
	s.byRoom[res.RoomID] = append(s.byRoom[res.RoomID], res.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, resID id.ReservationID) (*reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.byID[resID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *res
	return &copied, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID]), nil
}

func (s *InMemoryStore) ListByRoom(_ context.Context, roomID id.RoomID) ([]*reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byRoom[roomID]), nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]id.ReservationID, 0, len(s.byID))
	for resID := range s.byID {
		ids = append(ids, resID)
	}
	return s.collect(ids), nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, resID id.ReservationID, status reservation.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.byID[resID]
	if !ok {
		return sentinel.ErrNotFound
	}
	res.Status = status
	if status == reservation.StatusCancelled {
		cancelled := at
		res.CancelledAt = &cancelled
	}
	return nil
}

// collect copies the referenced reservations, newest first. Callers hold the
// lock.
func (s *InMemoryStore) collect(ids []id.ReservationID) []*reservation.Reservation {
	out := make([]*reservation.Reservation, 0, len(ids))
	for _, resID := range ids {
		if res, ok := s.byID[resID]; ok {
			copied := *res
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
