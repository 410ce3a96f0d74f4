package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("not found")

// Postgres error codes used for schema-tolerant writes
const (
	pqUndefinedColumn = "42703"
	pqUndefinedTable  = "42P01"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

// IsUndefinedColumn reports whether err is a Postgres undefined_column error.
func IsUndefinedColumn(err error) bool { return isPQCode(err, pqUndefinedColumn) }

// IsUndefinedTable reports whether err is a Postgres undefined_table error.
func IsUndefinedTable(err error) bool { return isPQCode(err, pqUndefinedTable) }

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
