// Package testdb provides shared helpers for integration tests that need
// a real Postgres database: connection setup from the environment, schema
// migration, and table cleanup between tests. Tests using it carry the
// integration build tag and skip when no database URL is configured.
package testdb
