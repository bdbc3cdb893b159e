package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"

	sessionPrefix = "cybertodo:session:"
)

// SessionStore maps opaque session ids to user ids in Redis. Entries
// expire SessionTTL after login.
type SessionStore struct {
	rdb redis.Cmdable
}

func NewSessionStore(rdb redis.Cmdable) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(sid string) string {
	return sessionPrefix + sid
}

// Create opens a session for userID and returns its id.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	sid := uuid.NewString()
	created, err := s.rdb.SetNX(ctx, sessionKey(sid), strconv.FormatInt(userID, 10), SessionTTL).Result()
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if !created {
		return "", fmt.Errorf("create session: id %s already in use", sid)
	}
	return sid, nil
}

// Get resolves a session id. ok is false for unknown or expired sessions.
func (s *SessionStore) Get(ctx context.Context, sid string) (userID int64, ok bool, err error) {
	val, err := s.rdb.Get(ctx, sessionKey(sid)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("get session: %w", err)
	}
	userID, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("session %s holds invalid user id: %w", sid, err)
	}
	return userID, true, nil
}

// Delete ends a session. Unknown ids are ignored.
func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
