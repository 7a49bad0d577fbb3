package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubDBUpsertsAndFilters(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	upsert := "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, payload := range []string{"one", "two"} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "a"}, {Value: []byte(payload)}}); err != nil {
			t.Fatalf("ExecContext: %v", err)
		}
	}
	if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "b"}, {Value: []byte("other")}}); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if len(conn.Tables["state"]) != 2 {
		t.Fatalf("expected two rows after upsert, got %v", conn.Tables["state"])
	}
	rows, err := conn.QueryContext(ctx, "SELECT payload FROM state WHERE bucket = $1", []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(dest[0].([]byte)) != "two" {
		t.Fatalf("expected latest payload, got %v", dest[0])
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected single filtered row, got %v", err)
	}
}

func TestStubDBFailureSwitches(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.FailPing = true
	if err := conn.Ping(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailBegin = true
	if _, err := conn.Begin(); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailQuery = true
	if _, err := conn.QueryContext(ctx, "SELECT payload FROM state", nil); err == nil {
		t.Fatalf("expected query failure")
	}
	if _, err := conn.QueryContext(ctx, "UPDATE state", nil); err == nil {
		t.Fatalf("expected parse failure")
	}
	conn.FailExec = true
	if _, err := conn.ExecContext(ctx, "CREATE TABLE x", nil); err == nil {
		t.Fatalf("expected exec failure")
	}
}
