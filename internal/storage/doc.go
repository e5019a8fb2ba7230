// Package storage is the SQL persistence layer for users, habits and the
// reminder delivery log.
//
// Two drivers are supported: "sqlite" (modernc.org/sqlite, pure Go) and
// "postgres" (github.com/lib/pq). Queries are written with "?" placeholders
// and rebound for postgres.
package storage
