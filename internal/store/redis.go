package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ardato/secure-notes/internal/model"
)

// RedisStore implements TokenStore on a Redis client. Principals are
// stored as JSON values keyed by the raw token string; revocation markers
// are sentinel values under the revoked: prefix. TTLs are enforced by
// Redis key expiry.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) SaveRefreshToken(ctx context.Context, token string, p model.Principal, ttl time.Duration) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, token, body, ttl).Err()
}

func (s *RedisStore) FindRefreshToken(ctx context.Context, token string) (model.Principal, bool, error) {
	body, err := s.rdb.Get(ctx, token).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Principal{}, false, nil
	}
	if err != nil {
		return model.Principal{}, false, err
	}
	return decodePrincipal(body)
}

// ConsumeRefreshToken relies on GETDEL so the read and the delete are a
// single Redis command; concurrent refreshes on one token cannot both
// observe the entry.
func (s *RedisStore) ConsumeRefreshToken(ctx context.Context, token string) (model.Principal, bool, error) {
	body, err := s.rdb.GetDel(ctx, token).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Principal{}, false, nil
	}
	if err != nil {
		return model.Principal{}, false, err
	}
	return decodePrincipal(body)
}

func (s *RedisStore) InvalidateRefreshToken(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, token).Err()
}

func (s *RedisStore) MarkAccessTokenRevoked(ctx context.Context, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, revokedPrefix+token, "1", ttl).Err()
}

func (s *RedisStore) IsAccessTokenRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func decodePrincipal(body []byte) (model.Principal, bool, error) {
	var p model.Principal
	if err := json.Unmarshal(body, &p); err != nil {
		return model.Principal{}, false, err
	}
	return p, true, nil
}
