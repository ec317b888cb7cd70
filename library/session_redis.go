package library

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const redisSessionPrefix = "session:"

// RedisSessionStore keeps sessions in Redis with TTL.
type RedisSessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisSessionStore builds a Redis-backed session store. A ttl of zero never expires.
func NewRedisSessionStore(addr, password string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl:     ttl,
		timeout: 3 * time.Second,
	}
}

// Ping checks connectivity so misconfiguration shows up at startup.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return oops.Code("SESSION_STORE_OPEN").With("addr", s.client.Options().Addr).Wrap(err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisSessionStore) Close() error { return s.client.Close() }

func (s *RedisSessionStore) Get(ctx context.Context, token string) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	val, err := s.client.Get(ctx, redisSessionPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, oops.Code("SESSION_STORE_GET").Wrap(err)
	}
	return Session{Username: val}, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, token string, sess Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, redisSessionPrefix+token, sess.Username, s.ttl).Err(); err != nil {
		return oops.Code("SESSION_STORE_PUT").Wrap(err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(ctx, redisSessionPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return oops.Code("SESSION_STORE_DELETE").Wrap(err)
	}
	return nil
}
