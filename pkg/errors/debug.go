package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE classes the services care about. See appendix A of the
// Postgres manual.
const (
	ClassConnection          = "connection_exception"
	ClassIntegrityConstraint = "integrity_constraint_violation"
	ClassTransactionRollback = "transaction_rollback"
	ClassLockNotAvailable    = "lock_not_available"
	ClassDataException       = "data_exception"
	ClassOther               = "other"
)

// PGFields is the subset of a Postgres error worth logging. Both the pgx
// and lib/pq drivers are in use, so either error type fills it.
type PGFields struct {
	Code       string `json:"pg_code,omitempty"`
	Severity   string `json:"pg_severity,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// Diagnostics extracts the Postgres error in err's chain, if any.
func Diagnostics(err error) (PGFields, bool) {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return PGFields{
			Code:       pgxErr.Code,
			Severity:   pgxErr.Severity,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return PGFields{
			Code:       string(pqErr.Code),
			Severity:   pqErr.Severity,
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGFields{}, false
}

// PGCode returns the SQLSTATE carried by err, or "" when err did not come
// from Postgres.
func PGCode(err error) string {
	f, _ := Diagnostics(err)
	return f.Code
}

// PGClass names the SQLSTATE class of err, or "" when err did not come
// from Postgres.
func PGClass(err error) string {
	code := PGCode(err)
	if len(code) != 5 {
		return ""
	}
	switch {
	case code[:2] == "08":
		return ClassConnection
	case code[:2] == "23":
		return ClassIntegrityConstraint
	case code[:2] == "40":
		return ClassTransactionRollback
	case code == "55P03":
		return ClassLockNotAvailable
	case code[:2] == "22":
		return ClassDataException
	}
	return ClassOther
}

// ErrorDump is the structured form of an error written to the server log.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable"`
	Chain      []string `json:"chain,omitempty"`

	PGClass string `json:"pg_class,omitempty"`
	PGFields
}

// Dump flattens err for logging: its coded head, every link of the unwrap
// chain and any Postgres diagnostics found along it.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{
		TopMessage: err.Error(),
		Code:       As(err).codeOr(""),
		Retryable:  Retryable(err),
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if f, ok := Diagnostics(err); ok {
		d.PGFields = f
		d.PGClass = PGClass(err)
	}
	return d
}
