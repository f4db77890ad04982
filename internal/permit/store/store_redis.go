package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "xftledger/pkg/domain"
)

// RedisNonceStore keeps nonces in redis so every process in the deployment
// sees the same monotonic counter per owner.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client, prefix: "permit:nonce"}
}

func (s *RedisNonceStore) key(owner id.Address) string {
	return fmt.Sprintf("%s:%s", s.prefix, owner)
}

func (s *RedisNonceStore) Nonce(ctx context.Context, owner id.Address) (uint64, error) {
	n, err := s.client.Get(ctx, s.key(owner)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return n, nil
}

func (s *RedisNonceStore) Increment(ctx context.Context, owner id.Address) error {
	if err := s.client.Incr(ctx, s.key(owner)).Err(); err != nil {
		return fmt.Errorf("increment nonce: %w", err)
	}
	return nil
}
