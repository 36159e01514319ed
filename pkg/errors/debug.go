package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGFields is the server-side detail of a Postgres error, from either pgx or lib/pq.
type PGFields struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Report summarises an error chain for logging.
type Report struct {
	Message   string    `json:"message"`
	Code      Code      `json:"code,omitempty"`
	Retryable bool      `json:"retryable"`
	Chain     []string  `json:"chain,omitempty"`
	Postgres  *PGFields `json:"postgres,omitempty"`
}

// Describe walks err and collects its code, cause chain and any Postgres detail.
func Describe(err error) Report {
	if err == nil {
		return Report{}
	}

	report := Report{Message: err.Error(), Code: CodeOf(err)}
	report.Retryable = MetadataFor(report.Code).Retryable

	for cause := err; cause != nil; cause = stdErrors.Unwrap(cause) {
		report.Chain = append(report.Chain, fmt.Sprintf("%T: %v", cause, cause))
	}
	report.Postgres = postgresFields(err)
	return report
}

// LogFields flattens the report. Verbose adds the chain and Postgres detail.
func (r Report) LogFields(verbose bool) map[string]any {
	fields := map[string]any{
		"error":      r.Message,
		"error_code": r.Code,
	}
	if !verbose {
		return fields
	}
	fields["error_chain"] = r.Chain
	fields["retryable"] = r.Retryable
	if pg := r.Postgres; pg != nil {
		fields["pg_code"] = pg.Code
		fields["pg_constraint"] = pg.Constraint
		fields["pg_table"] = pg.Table
		fields["pg_column"] = pg.Column
		fields["pg_detail"] = pg.Detail
		fields["pg_message"] = pg.Message
	}
	return fields
}

func postgresFields(err error) *PGFields {
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		return &PGFields{
			Code:       pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return &PGFields{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
