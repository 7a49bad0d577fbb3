// Package blobkv adapts a blob.Store into a KV store, one object per key.
package blobkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"lifeline/internal/blob"
	"lifeline/pkg/domain"
)

var _ domain.KVStore = (*Store)(nil)

const contentType = "application/json"

// Store maps keys to object keys under an optional prefix.
type Store struct {
	blobs  blob.Store
	prefix string
}

// New wraps blobs. Prefix, when set, is joined to keys with a slash.
func New(blobs blob.Store, prefix string) *Store {
	return &Store{blobs: blobs, prefix: prefix}
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// Read fetches the object for key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, bool, error) {
	_, rc, err := s.blobs.Get(ctx, s.objectKey(key))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return b, true, nil
}

// Write replaces the object for key.
func (s *Store) Write(ctx context.Context, key string, value []byte) error {
	if _, err := s.blobs.Put(ctx, s.objectKey(key), bytes.NewReader(value), blob.PutOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Driver reports the backing blob driver.
func (s *Store) Driver() blob.Driver { return s.blobs.Driver() }
