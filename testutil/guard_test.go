package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"lifeline/internal/core", true},
		{"example.com/mod/internal/x", true},
		{"lifeline/pkg/domain", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestThirdPartyImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"context", false},
		{"encoding/json", false},
		{"github.com/google/uuid", true},
		{"go.uber.org/zap", true},
		{"lifeline/pkg/domain", false},
	}
	for _, c := range cases {
		if got := ThirdPartyImportForbidden(c.in); got != c.want {
			t.Fatalf("ThirdPartyImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInfraImportForbiddenPredicate(t *testing.T) {
	if !InfraImportForbidden("lifeline/internal/infra/blob/s3") {
		t.Fatalf("expected infra import to be forbidden")
	}
	if InfraImportForbidden("lifeline/internal/blob") {
		t.Fatalf("expected factory package to be allowed")
	}
}

// TestAssertNoDirectImports exercises the success path by creating a tiny temp package with safe imports.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

type captureFatal struct{ msg string }

func (c *captureFatal) Fatalf(format string, args ...any) { c.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolationsReported(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport _ \"github.com/google/uuid\"\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package tmp\nimport _ \"go.uber.org/zap\"\n"), 0o600); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	viols, err := directImportViolations(dir, ThirdPartyImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "github.com/google/uuid") {
		t.Fatalf("expected only the non-test import to be reported, got %v", viols)
	}
	var fatal captureFatal
	failIfDirectViolations(&fatal, "stdlib only", viols)
	if !strings.Contains(fatal.msg, "stdlib only") {
		t.Fatalf("expected reason in failure, got %q", fatal.msg)
	}
}
