// Package postgres implements the store interfaces on PostgreSQL through
// database/sql with the pgx driver. All writes the scheduler performs for
// one rating event run on a single transaction handed in via WithTx.
package postgres
