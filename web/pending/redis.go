package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pending:signup:"

// keyGrace keeps an entry readable a little past its expiry so Get can
// still tell the caller it expired rather than that it never existed.
const keyGrace = time.Minute

// RedisStore shares pending registrations between instances. Redis TTLs do
// the sweeping.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{rdb: rdb, now: now}
}

func (s *RedisStore) ttl(reg Registration) time.Duration {
	d := reg.ExpiresAt.Sub(s.now()) + keyGrace
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (s *RedisStore) Put(ctx context.Context, reg Registration) (string, error) {
	id := uuid.NewString()
	b, err := json.Marshal(reg)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, keyPrefix+id, b, s.ttl(reg)).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Registration, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Registration{}, ErrNotFound
	}
	if err != nil {
		return Registration{}, fmt.Errorf("redis get: %w", err)
	}

	var reg Registration
	if err := json.Unmarshal(b, &reg); err != nil {
		return Registration{}, fmt.Errorf("decode pending registration: %w", err)
	}
	if s.now().After(reg.ExpiresAt) {
		s.rdb.Del(ctx, keyPrefix+id)
		return Registration{}, ErrExpired
	}
	return reg, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, reg Registration) error {
	b, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, keyPrefix+id, b, s.ttl(reg)).Result()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, keyPrefix+id).Err()
}

// ConnectRedis opens a client and pings it within timeout.
func ConnectRedis(addr, password string, database int, timeout time.Duration) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          database,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
