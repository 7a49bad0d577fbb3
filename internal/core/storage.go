package core

import (
	"context"
	"fmt"

	"lifeline/internal/blob"
	"lifeline/internal/infra/persistence/blobkv"
	"lifeline/internal/infra/persistence/memory"
	"lifeline/internal/infra/persistence/postgres"
	redisstore "lifeline/internal/infra/persistence/redis"
	"lifeline/internal/infra/persistence/sqlite"
	"lifeline/pkg/domain"
)

// StorageDriver identifies a concrete KV backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // Redis string per key
	StorageBlob     StorageDriver = "blob"     // one object per key in a blob store
)

// StorageConfig selects and configures the KV backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	Redis       redisstore.Options
	Blob        blob.Config
	// BlobPrefix is the object key prefix used with the blob driver.
	BlobPrefix string
}

// OpenKVStore opens the configured backend. Defaults to sqlite when Driver is
// empty. The returned close function releases backend resources and is never nil.
func OpenKVStore(ctx context.Context, cfg StorageConfig) (domain.KVStore, func() error, error) {
	noClose := func() error { return nil }
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), noClose, nil
	case StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, noClose, err
		}
		return s, s.Close, nil
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noClose, err
		}
		return s, s.Close, nil
	case StorageRedis:
		s, err := redisstore.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, noClose, err
		}
		return s, s.Close, nil
	case StorageBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, noClose, err
		}
		return blobkv.New(blobs, cfg.BlobPrefix), noClose, nil
	default:
		return nil, noClose, fmt.Errorf("unknown storage driver %s", driver)
	}
}
