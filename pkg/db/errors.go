package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided only that constraint matches.
func IsUniqueViolation(err error, constraintName string) bool {
	return violates(err, uniqueViolationCode, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err rejected a reference to a row
// that does not exist, such as a material request for a deleted site.
func IsForeignKeyViolation(err error, constraintName string) bool {
	return violates(err, foreignKeyViolationCode, constraintName, "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

// violates matches Postgres errors by SQLSTATE and falls back to message
// text for sqlite, which has no codes.
func violates(err error, code, constraintName string, markers ...string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Diagnostics(err); ok {
		return pg.Code == code && (constraintName == "" || pg.Constraint == constraintName)
	}

	msg := err.Error()
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return constraintName == "" || strings.Contains(msg, constraintName)
		}
	}
	return false
}
