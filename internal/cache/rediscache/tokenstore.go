package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps short-lived single-use values: login tokens,
// impersonation tickets and revoked session ids.
type TokenStore struct {
	c *redis.Client
}

func NewTokenStore(addr string) *TokenStore {
	return NewTokenStoreWithClient(Dial(addr))
}

func NewTokenStoreWithClient(c *redis.Client) *TokenStore {
	return &TokenStore{c: c}
}

// Put stores value under key only if the key is free.
func (s *TokenStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ok, err := s.c.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return errors.Wrap(err, "redis setnx")
	}
	if !ok {
		return errors.Errorf("token key %q already taken", key)
	}
	return nil
}

// Take returns the value and deletes it in one step, so a value
// can be consumed once.
func (s *TokenStore) Take(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.c.GetDel(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis getdel")
	}
	return val, true, nil
}

func (s *TokenStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.c.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis exists")
	}
	return n > 0, nil
}

func (s *TokenStore) Close() error {
	return s.c.Close()
}
