package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"lifeline/pkg/domain"
)

// fakeStore is a KVStore with switchable failures and an optional write gate.
type fakeStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	readErr  error
	writeErr error
	writes   [][]byte
	gate     chan struct{}
	entered  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Read(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, false, f.readErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeStore) Write(ctx context.Context, key string, value []byte) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.data[key] = append([]byte(nil), value...)
	f.writes = append(f.writes, append([]byte(nil), value...))
	return nil
}

func (f *fakeStore) seed(key, value string) {
	f.mu.Lock()
	f.data[key] = []byte(value)
	f.mu.Unlock()
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeStore) stored(t *testing.T) []domain.Contact {
	t.Helper()
	f.mu.Lock()
	raw, ok := f.data[domain.DefaultStorageKey]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("expected stored contacts under %s", domain.DefaultStorageKey)
	}
	var out []domain.Contact
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode stored contacts: %v", err)
	}
	return out
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// sequentialIDs returns "id-1", "id-2", ...
func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

func newLoadedRepository(t *testing.T, store *fakeStore, opts ...Option) *Repository {
	t.Helper()
	repo, err := NewRepository(store, opts...)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	repo.Load(context.Background())
	return repo
}

func flush(t *testing.T, repo *Repository) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func ids(contacts []domain.Contact) []string {
	out := make([]string, len(contacts))
	for i, c := range contacts {
		out[i] = c.ID
	}
	return out
}

func strPtr(v string) *string { return &v }
