package domain

import (
	"testing"

	"lifeline/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of implementation packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not depend on internal packages")
}

// TestDomainIsStdlibOnly keeps storage drivers and SDKs out of the shared types.
func TestDomainIsStdlibOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdPartyImportForbidden, "domain must only use the standard library")
}
