package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"concierge/internal/session"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// PostgresUserStore persists user records durably. Sessions stay in Redis or
// memory; only identity survives restarts by requirement.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = "id, email, name, role, verified, document_number, birth_date, password_hash, created_at, updated_at"

func (s *PostgresUserStore) Create(ctx context.Context, user *session.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(user.ID), strings.ToLower(user.Email), user.Name, string(user.Role),
		user.Verified, nullString(user.DocumentNumber), user.BirthDate,
		user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*session.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*session.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (s *PostgresUserStore) Update(ctx context.Context, user *session.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, name = $3, role = $4, verified = $5,
		    document_number = $6, birth_date = $7, password_hash = $8,
		    updated_at = $9
		WHERE id = $1`,
		uuid.UUID(user.ID), strings.ToLower(user.Email), user.Name, string(user.Role),
		user.Verified, nullString(user.DocumentNumber), user.BirthDate,
		user.PasswordHash, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*session.User, error) {
	var (
		user     session.User
		rawID    uuid.UUID
		role     string
		document sql.NullString
	)
	err := row.Scan(&rawID, &user.Email, &user.Name, &role, &user.Verified,
		&document, &user.BirthDate, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.UserID(rawID)
	user.Role = session.Role(role)
	if document.Valid {
		user.DocumentNumber = document.String
	}
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
