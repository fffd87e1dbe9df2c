package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "auth:session:"

// SessionCache stores sid -> uid for live sessions. The session table stays
// the source of truth; entries are only a shortcut for Authenticate.
type SessionCache struct {
	rdb goredis.UniversalClient
}

func NewSessionCache(rdb goredis.UniversalClient) *SessionCache {
	return &SessionCache{rdb: rdb}
}

func NewClient(addr string, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *SessionCache) key(sessionID uuid.UUID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (c *SessionCache) Remember(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.key(sessionID), userID.String(), ttl).Err()
}

func (c *SessionCache) Lookup(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		// corrupt entry, treat as a miss
		_ = c.rdb.Del(ctx, c.key(sessionID)).Err()
		return uuid.Nil, false, nil
	}
	return userID, true, nil
}

func (c *SessionCache) Forget(ctx context.Context, sessionIDs ...uuid.UUID) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		keys = append(keys, c.key(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *SessionCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
