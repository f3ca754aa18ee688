// Package redisstore keeps pipeline artifacts in Redis, one string key per
// artifact plus a set indexing the stored names.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

const indexKey = "_index"

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements artifact storage on a Redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: connect to redis at %s: %w", domain.ErrPersistence, opts.Addr, err)
	}
	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Put stores data under name. The value and the index entry are written in
// one MULTI/EXEC so a listed artifact always has content.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(name), data, 0)
		pipe.SAdd(ctx, s.key(indexKey), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", domain.ErrPersistence, name, err)
	}
	return nil
}

// Get returns the artifact stored under name, or ErrArtifactNotFound.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, name, err)
	}
	return data, nil
}

// List returns the indexed artifact names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.key(indexKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrPersistence, err)
	}
	sort.Strings(names)
	return names, nil
}

// CheckReadiness pings the server.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return s.prefix + name
}
