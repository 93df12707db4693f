package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation = "23505"
	pgRaiseException  = "P0001"

	// inventoryBlockMarker is the message prefix raised by the
	// trg_movements_inventory_block trigger.
	inventoryBlockMarker = "active inventory event"
)

// IsUniqueViolation reports whether the provided error is a Postgres unique
// violation. When constraintName is provided, the violation must reference
// that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	code, constraint, msg := pgDiagnostics(err)
	if code == pgUniqueViolation {
		return constraintName == "" || constraint == constraintName
	}
	// sqlite (tests) has no SQLSTATE surface; fall back to message text.
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	return false
}

// IsInventoryBlock reports whether the error originates from the database
// trigger that rejects transfers while an in-scope inventory event is in
// progress. The trigger is the structural backstop for the service-level
// check, so its violations must stay distinguishable from generic failures.
func IsInventoryBlock(err error) bool {
	if err == nil {
		return false
	}
	code, _, msg := pgDiagnostics(err)
	if code == pgRaiseException && strings.Contains(msg, inventoryBlockMarker) {
		return true
	}
	return strings.Contains(msg, inventoryBlockMarker)
}

func pgDiagnostics(err error) (code, constraint, msg string) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, pgxErr.Message
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, pqErr.Message
	}
	return "", "", err.Error()
}
