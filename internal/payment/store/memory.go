// Package store provides payment persistence.
package store

import (
	"context"
	"sync"

	"concierge/internal/payment"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

// InMemoryStore keeps payments in a map keyed by reservation; the one-payment
// rule falls out of the key.
type InMemoryStore struct {
	mu            sync.RWMutex
	byReservation map[id.ReservationID]*payment.Payment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byReservation: make(map[id.ReservationID]*payment.Payment)}
}

func (s *InMemoryStore) Create(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byReservation[p.ReservationID]; exists {
		return sentinel.ErrConflict
	}
	copied := *p
	s.byReservation[p.ReservationID] = &copied
	return nil
}

func (s *InMemoryStore) FindByReservation(_ context.Context, resID id.ReservationID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byReservation[resID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}
