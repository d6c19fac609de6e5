package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edurotich/smartplanner/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository using Redis.
// Each session is stored twice: the token-keyed row and a per-user index
// key used to enforce the single-session policy.
type SessionRepositoryImpl struct {
	client *redis.Client
	prefix string
}

// replaceScript reads the user's current token, deletes its row and
// installs the new session, all server-side in one step. Two racing
// replacements therefore serialize: the loser's token row is gone
// before its caller returns.
// KEYS[1] new token key, KEYS[2] user index key
// ARGV[1] token, ARGV[2] payload, ARGV[3] ttl millis, ARGV[4] token key prefix
var replaceScript = redis.NewScript(`
local old = redis.call("GET", KEYS[2])
if old and old ~= ARGV[1] then
	redis.call("DEL", ARGV[4] .. old)
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[3])
return 1
`)

// refreshScript extends a session only while its token row still
// exists, and bumps the index TTL only while the index still points at
// this token. A token deleted by a concurrent replacement is never
// resurrected and the index is never repointed at a dead session.
// KEYS[1] token key, KEYS[2] user index key
// ARGV[1] token, ARGV[2] payload, ARGV[3] ttl millis
var refreshScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
if redis.call("GET", KEYS[2]) == ARGV[1] then
	redis.call("PEXPIRE", KEYS[2], ARGV[3])
end
return 1
`)

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client) domain.SessionRepository {
	return &SessionRepositoryImpl{
		client: client,
		prefix: "session:",
	}
}

func (r *SessionRepositoryImpl) tokenKey(token string) string {
	return r.prefix + token
}

func (r *SessionRepositoryImpl) userKey(userID uint) string {
	return fmt.Sprintf("user_session:%d", userID)
}

// Replace deletes any existing session for the user and installs the new
// one. The read of the old token, its delete and both writes run as one
// atomic script so concurrent replacements for the same user leave
// exactly one live token row.
func (r *SessionRepositoryImpl) Replace(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refusing to store already-expired session for user %d", session.UserID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return replaceScript.Run(ctx, r.client,
		[]string{r.tokenKey(session.Token), r.userKey(session.UserID)},
		session.Token, data, ttl.Milliseconds(), r.prefix,
	).Err()
}

// FindByToken implements domain.SessionRepository. A missing or expired
// session returns (nil, nil); expired rows are reaped best-effort.
func (r *SessionRepositoryImpl) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.Expired(time.Now()) {
		// lazy reap; failure here must never fail validation, and the
		// index entry only goes if it still points at this token
		keys := []string{r.tokenKey(token)}
		if current, err := r.client.Get(ctx, r.userKey(session.UserID)).Result(); err == nil && current == token {
			keys = append(keys, r.userKey(session.UserID))
		}
		r.client.Del(ctx, keys...)
		return nil, nil
	}

	return &session, nil
}

// Refresh extends the session expiry in place. Returns false when the
// token does not resolve to a currently valid session.
func (r *SessionRepositoryImpl) Refresh(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	session, err := r.FindByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	session.ExpiresAt = expiresAt
	data, err := json.Marshal(session)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session: %w", err)
	}

	extended, err := refreshScript.Run(ctx, r.client,
		[]string{r.tokenKey(token), r.userKey(session.UserID)},
		token, data, time.Until(expiresAt).Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return extended == 1, nil
}

// Delete removes the session matching token. Deleting an absent token is
// not an error.
func (r *SessionRepositoryImpl) Delete(ctx context.Context, token string) error {
	data, err := r.client.Get(ctx, r.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	var session domain.Session
	keys := []string{r.tokenKey(token)}
	if err := json.Unmarshal([]byte(data), &session); err == nil {
		// only drop the index entry if it still points at this token
		current, err := r.client.Get(ctx, r.userKey(session.UserID)).Result()
		if err == nil && current == token {
			keys = append(keys, r.userKey(session.UserID))
		}
	}

	return r.client.Del(ctx, keys...).Err()
}

// DeleteAllForUser removes the user's session, if any
func (r *SessionRepositoryImpl) DeleteAllForUser(ctx context.Context, userID uint) error {
	token, err := r.client.Get(ctx, r.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return r.client.Del(ctx, r.tokenKey(token), r.userKey(userID)).Err()
}

var _ domain.SessionRepository = (*SessionRepositoryImpl)(nil)
