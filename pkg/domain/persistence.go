package domain

import "context"

// DefaultStorageKey is the key holding the serialized contact list.
const DefaultStorageKey = "emergencyContacts"

// KVStore is the durable key/value facility the contact list is persisted to.
// A single key holds the whole list as one blob.
type KVStore interface {
	// Read returns the blob stored at key. found is false when nothing is stored.
	Read(ctx context.Context, key string) (value []byte, found bool, err error)
	// Write replaces the blob stored at key.
	Write(ctx context.Context, key string, value []byte) error
}
