package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"concierge/internal/rooms"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

// PostgresStore persists the room catalog.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const roomColumns = "id, number, type, nightly_rate_cents, capacity, description, available, created_at, updated_at"

func (s *PostgresStore) Create(ctx context.Context, room *rooms.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(room.ID), room.Number, string(room.Type), room.NightlyRateCents,
		room.Capacity, room.Description, room.Available, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, roomID id.RoomID) (*rooms.Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, uuid.UUID(roomID))
	return scanRoom(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*rooms.Room, error) {
	result, err := s.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer result.Close()

	var out []*rooms.Room
	for result.Next() {
		var (
			room    rooms.Room
			rawID   uuid.UUID
			rawType string
		)
		if err := result.Scan(&rawID, &room.Number, &rawType, &room.NightlyRateCents,
			&room.Capacity, &room.Description, &room.Available, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		room.ID = id.RoomID(rawID)
		room.Type = rooms.RoomType(rawType)
		out = append(out, &room)
	}
	return out, result.Err()
}

func (s *PostgresStore) Update(ctx context.Context, room *rooms.Room) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms
		SET nightly_rate_cents = $2, capacity = $3, description = $4,
		    available = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(room.ID), room.NightlyRateCents, room.Capacity,
		room.Description, room.Available, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return checkAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, roomID id.RoomID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rooms WHERE id = $1`, uuid.UUID(roomID))
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return checkAffected(res)
}

func scanRoom(row *sql.Row) (*rooms.Room, error) {
	var (
		room    rooms.Room
		rawID   uuid.UUID
		rawType string
	)
	err := row.Scan(&rawID, &room.Number, &rawType, &room.NightlyRateCents,
		&room.Capacity, &room.Description, &room.Available, &room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan room: %w", err)
	}
	room.ID = id.RoomID(rawID)
	room.Type = rooms.RoomType(rawType)
	return &room, nil
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
