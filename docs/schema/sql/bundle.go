// Package sqldocs exposes the key/value state table DDL directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the SQLite DDL for the state table.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the Postgres DDL for the state table.
//
//go:embed postgres.sql
var Postgres string
