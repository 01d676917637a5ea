package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/jamii/core"
)

const defaultPrefix = "jamii:storage:"

// Store keeps records as plain redis strings under a key prefix.
type Store struct {
	client *redis.Client
	prefix string
}

var _ core.Storage = (*Store)(nil)

// Open connects to redis at addr and checks it answers.
func Open(ctx context.Context, addr, password, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}
	return New(client, prefix), nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading %q", key)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	return errors.Wrapf(s.client.Set(ctx, s.prefix+key, data, 0).Err(), "saving %q", key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.Del(ctx, s.prefix+key).Err(), "deleting %q", key)
}

func (s *Store) Close() error { return s.client.Close() }
