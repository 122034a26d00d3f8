package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// uniqueViolation reports whether err is a unique constraint violation and returns the constraint name.
func uniqueViolation(err error) (string, bool) {
	var perr *pq.Error
	if errors.As(err, &perr) && string(perr.Code) == pgerrcode.UniqueViolation {
		return perr.Constraint, true
	}
	return "", false
}

func foreignKeyViolation(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && string(perr.Code) == pgerrcode.ForeignKeyViolation
}

func invalidTextRepresentation(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && string(perr.Code) == pgerrcode.InvalidTextRepresentation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
