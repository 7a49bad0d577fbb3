package blobkv

import (
	"context"
	"errors"
	"io"
	"testing"

	"lifeline/internal/blob"
)

func TestStoreOverBlobBackends(t *testing.T) {
	ctx := context.Background()
	fsStore, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	for _, backend := range []blob.Store{blob.NewMemory(), fsStore, blob.NewMockS3ForTests()} {
		kv := New(backend, "lifeline")
		if kv.Driver() != backend.Driver() {
			t.Fatalf("driver mismatch")
		}
		if _, found, err := kv.Read(ctx, "emergencyContacts"); err != nil || found {
			t.Fatalf("%s: expected missing key, found=%v err=%v", backend.Driver(), found, err)
		}
		if err := kv.Write(ctx, "emergencyContacts", []byte(`[{"id":"1"}]`)); err != nil {
			t.Fatalf("%s: write: %v", backend.Driver(), err)
		}
		got, found, err := kv.Read(ctx, "emergencyContacts")
		if err != nil || !found || string(got) != `[{"id":"1"}]` {
			t.Fatalf("%s: unexpected read %q found=%v err=%v", backend.Driver(), got, found, err)
		}
		info, rc, err := backend.Get(ctx, "lifeline/emergencyContacts")
		if err != nil {
			t.Fatalf("%s: expected prefixed object: %v", backend.Driver(), err)
		}
		_ = rc.Close()
		if info.ContentType != "" && info.ContentType != contentType {
			t.Fatalf("%s: unexpected content type %s", backend.Driver(), info.ContentType)
		}
	}
}

type brokenBlobs struct{ blob.Store }

func (brokenBlobs) Get(context.Context, string) (blob.Info, io.ReadCloser, error) {
	return blob.Info{}, nil, errors.New("disk on fire")
}

func (brokenBlobs) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, errors.New("disk on fire")
}

func TestStoreSurfacesBackendErrors(t *testing.T) {
	kv := New(brokenBlobs{}, "")
	if _, _, err := kv.Read(context.Background(), "k"); err == nil {
		t.Fatalf("expected read error")
	}
	if err := kv.Write(context.Background(), "k", nil); err == nil {
		t.Fatalf("expected write error")
	}
}
