package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"lifeline/internal/blob/core"
)

func TestMemoryStorePutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Put(ctx, "contacts", strings.NewReader("first"), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := s.Put(ctx, "contacts", strings.NewReader("second!"), core.PutOptions{Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if info.Size != 7 {
		t.Fatalf("expected size 7, got %d", info.Size)
	}
	got, rc, err := s.Get(ctx, "contacts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "second!" {
		t.Fatalf("expected overwritten body, got %q", body)
	}
	got.Metadata["k"] = "mutated"
	again, rc2, _ := s.Get(ctx, "contacts")
	_ = rc2.Close()
	if again.Metadata["k"] != "v" {
		t.Fatalf("metadata should be copied on read")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	_, _, err := New().Get(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	if _, err := New().Put(context.Background(), "", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestMemoryStorePutReadError(t *testing.T) {
	s := New()
	if _, err := s.Put(context.Background(), "k", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, _, err := s.Get(context.Background(), "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("failed put must not store a blob: %v", err)
	}
}
