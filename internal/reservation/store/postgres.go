package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"concierge/internal/reservation"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

// PostgresStore persists reservations.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const reservationColumns = "id, user_id, room_id, check_in, check_out, guests, services, status, total_cents, created_at, cancelled_at"

func (s *PostgresStore) Create(ctx context.Context, res *reservation.Reservation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(res.ID), uuid.UUID(res.UserID), uuid.UUID(res.RoomID),
		res.CheckIn, res.CheckOut, res.Guests, joinServices(res.Services),
		string(res.Status), res.TotalCents, res.CreatedAt, res.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, resID id.ReservationID) (*reservation.Reservation, error) {
	rows, err := s.query(ctx, `WHERE id = $1`, uuid.UUID(resID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return rows[0], nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*reservation.Reservation, error) {
	return s.query(ctx, `WHERE user_id = $1 ORDER BY created_at DESC`, uuid.UUID(userID))
}

func (s *PostgresStore) ListByRoom(ctx context.Context, roomID id.RoomID) ([]*reservation.Reservation, error) {
	return s.query(ctx, `WHERE room_id = $1 ORDER BY check_in`, uuid.UUID(roomID))
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*reservation.Reservation, error) {
	return s.query(ctx, `ORDER BY created_at DESC`)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, resID id.ReservationID, status reservation.Status, at time.Time) error {
	var cancelledAt *time.Time
	if status == reservation.StatusCancelled {
		cancelledAt = &at
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations SET status = $2, cancelled_at = $3 WHERE id = $1`,
		uuid.UUID(resID), string(status), cancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, clause string, args ...any) ([]*reservation.Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []*reservation.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(rows *sql.Rows) (*reservation.Reservation, error) {
	var (
		res      reservation.Reservation
		rawID    uuid.UUID
		userID   uuid.UUID
		roomID   uuid.UUID
		services string
		status   string
	)
	err := rows.Scan(&rawID, &userID, &roomID, &res.CheckIn, &res.CheckOut,
		&res.Guests, &services, &status, &res.TotalCents, &res.CreatedAt, &res.CancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reservation: %w", err)
	}
	res.ID = id.ReservationID(rawID)
	res.UserID = id.UserID(userID)
	res.RoomID = id.RoomID(roomID)
	res.Status = reservation.Status(status)
	res.Services = splitServices(services)
	return &res, nil
}

// Services travel as a comma-joined string; the set is small and the values
// never contain commas.
func joinServices(services []reservation.Extra) string {
	parts := make([]string, len(services))
	for i, extra := range services {
		parts[i] = string(extra)
	}
	return strings.Join(parts, ",")
}

func splitServices(raw string) []reservation.Extra {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]reservation.Extra, len(parts))
	for i, p := range parts {
		out[i] = reservation.Extra(p)
	}
	return out
}
