package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"concierge/internal/payment"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

// PostgresStore persists payments. A unique index on reservation_id enforces
// the one-payment rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *payment.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, reservation_id, amount_cents, method, paid_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(p.ID), uuid.UUID(p.ReservationID), p.AmountCents, string(p.Method), p.PaidAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByReservation(ctx context.Context, resID id.ReservationID) (*payment.Payment, error) {
	var (
		p      payment.Payment
		rawID  uuid.UUID
		rawRes uuid.UUID
		method string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, reservation_id, amount_cents, method, paid_at
		FROM payments WHERE reservation_id = $1`, uuid.UUID(resID)).
		Scan(&rawID, &rawRes, &p.AmountCents, &method, &p.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.ID = id.PaymentID(rawID)
	p.ReservationID = id.ReservationID(rawRes)
	p.Method = payment.Method(method)
	return &p, nil
}
