// Package redis stores KV entries as plain Redis strings.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"lifeline/pkg/domain"
)

var _ domain.KVStore = (*Store)(nil)

// Cmdable is the subset of the go-redis client the store needs.
type Cmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// Options configures Open.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key, e.g. "lifeline:".
	Prefix      string
	DialTimeout time.Duration
}

// Store reads and writes whole values with GET and SET.
type Store struct {
	client Cmdable
	prefix string
	closer func() error
}

// New wraps an existing client.
func New(client Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix, closer: func() error { return nil }}
}

// Open dials Redis and verifies the connection with PING.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr required")
	}
	dial := opts.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dial,
	})
	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	s := New(rdb, opts.Prefix)
	s.closer = rdb.Close
	return s, nil
}

// Read returns the value stored at key. A missing key is reported as not found.
func (s *Store) Read(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

// Write replaces the value at key without expiry.
func (s *Store) Write(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the client when the store dialed it.
func (s *Store) Close() error { return s.closer() }
