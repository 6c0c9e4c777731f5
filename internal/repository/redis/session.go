// Package redis stores login sessions in Redis instead of SQLite.
//
// WHY A SECOND SESSION STORE?
// Sessions are read on every authenticated request and written on every
// login and logout. Keeping them in Redis takes that traffic off the SQLite
// write lock and lets expired sessions disappear on their own: each key is
// written with a TTL that ends when the session does.
//
// KEY LAYOUT:
//
//	<prefix>:<session id> → JSON-encoded model.Session
//
// The server picks this store when REDIS_ADDR is set; otherwise sessions
// live in the sessions table next to everything else.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/repository"
)

// DefaultPrefix namespaces session keys when the server shares a Redis
// database with other applications.
const DefaultPrefix = "qa-forum:session"

var _ repository.SessionRepository = (*SessionStore)(nil)

// SessionStore implements repository.SessionRepository on a Redis client.
type SessionStore struct {
	client goredis.Cmdable
	prefix string
	now    func() time.Time
}

// NewSessionStore accepts any Cmdable so tests can pass a redismock client.
func NewSessionStore(client goredis.Cmdable, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStore{
		client: client,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

// CreateSession writes the session with SETNX so an id collision is reported
// instead of silently replacing someone else's session.
func (s *SessionStore) CreateSession(ctx context.Context, session *model.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("redis: session %s is already expired", session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: marshaling session: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: storing session: %w", err)
	}
	if !created {
		return apperror.DuplicateEntry("session", session.ID)
	}
	return nil
}

// GetSession returns apperror.ErrNotFound once the key has expired.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("redis: getting session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("redis: unmarshaling session: %w", err)
	}
	return &session, nil
}

// RevokeSession stamps RevokedAt and rewrites the value with KEEPTTL, so a
// revoked session still expires when it originally would have.
//
// The rewrite is SET XX: it only touches a key that still exists. If the
// session expires between the read and the write, nothing is recreated and
// the caller gets apperror.ErrNotFound, the same as for a session that was
// never there.
func (s *SessionStore) RevokeSession(ctx context.Context, id string) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session.RevokedAt != nil {
		return nil
	}

	now := s.now()
	session.RevokedAt = &now

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: marshaling session: %w", err)
	}

	err = s.client.SetArgs(ctx, s.key(id), data, goredis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return apperror.NotFound("session", id)
		}
		return fmt.Errorf("redis: revoking session: %w", err)
	}
	return nil
}
