package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"concierge/internal/session"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix  = "session:"
	userSessionPrefix = "user_sessions:"
)

// RedisSessionStore persists sessions in Redis with expiry-aligned TTLs.
// The per-user set is a secondary index for the devices listing.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func userSessionsKey(userID id.UserID) string {
	return userSessionPrefix + userID.String()
}

func (s *RedisSessionStore) Create(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), payload, ttl)
	pipe.SAdd(ctx, userSessionsKey(sess.UserID), sess.ID.String())
	pipe.Expire(ctx, userSessionsKey(sess.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) FindByID(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error {
	sess, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !at.After(sess.LastSeenAt) {
		return nil
	}
	sess.LastSeenAt = at
	return s.write(ctx, sess)
}

func (s *RedisSessionStore) Revoke(ctx context.Context, sessionID id.SessionID, at time.Time) error {
	sess, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.RevokedAt != nil {
		return sentinel.ErrInvalidState
	}
	sess.RevokedAt = &at
	return s.write(ctx, sess)
}

// write rewrites a session preserving its remaining TTL.
func (s *RedisSessionStore) write(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) ListByUser(ctx context.Context, userID id.UserID) ([]*session.Session, error) {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	var result []*session.Session
	for _, rawID := range ids {
		sessionID, err := id.ParseSessionID(rawID)
		if err != nil {
			continue
		}
		sess, err := s.FindByID(ctx, sessionID)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Expired entry still referenced by the index; prune lazily.
			s.client.SRem(ctx, userSessionsKey(userID), rawID)
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, nil
}
