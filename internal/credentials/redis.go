package credentials

import (
	"context"
	"errors"

	"github.com/example/glovo-scheduler/internal/internaltypes"
	"github.com/redis/go-redis/v9"
)

const redisKey = "glovosched:credentials"

// RedisStore keeps the credential as one JSON value (device file layout), no TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context) (Credential, error) {
	val, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, internaltypes.ErrNotFound
	}
	if err != nil {
		return Credential{}, err
	}
	return Unmarshal(val)
}

func (s *RedisStore) Save(ctx context.Context, c Credential) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey, data, 0).Err()
}
