package postgres

import _ "embed"

// Schema is the full DDL for the postgres-backed stores. Integration test
// helpers apply it to fresh containers.
//
//go:embed schema.sql
var Schema string
