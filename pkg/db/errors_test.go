package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "assets_tag_number_key"}

	if !IsUniqueViolation(pgxErr, "") {
		t.Fatal("expected pgx unique violation to match without constraint")
	}
	if !IsUniqueViolation(pgxErr, "assets_tag_number_key") {
		t.Fatal("expected pgx unique violation to match its constraint")
	}
	if IsUniqueViolation(pgxErr, "other_key") {
		t.Fatal("expected constraint mismatch to be rejected")
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "catalog_items_catalog_code_key"}
	if !IsUniqueViolation(pqErr, "catalog_items_catalog_code_key") {
		t.Fatal("expected pq unique violation to match")
	}

	sqliteErr := errors.New("UNIQUE constraint failed: assets.tag_number")
	if !IsUniqueViolation(sqliteErr, "") {
		t.Fatal("expected sqlite message fallback to match")
	}

	if IsUniqueViolation(errors.New("connection reset"), "") {
		t.Fatal("unrelated error must not match")
	}
}

func TestIsInventoryBlock(t *testing.T) {
	trigger := &pgconn.PgError{Code: "P0001", Message: "transfer rejected: active inventory event INV-2026-01"}
	if !IsInventoryBlock(trigger) {
		t.Fatal("expected raised trigger error to match")
	}

	wrapped := fmt.Errorf("executing movement: %w", trigger)
	if !IsInventoryBlock(wrapped) {
		t.Fatal("expected wrapped trigger error to match")
	}

	if IsInventoryBlock(errors.New("duplicate key value")) {
		t.Fatal("unrelated error must not match")
	}
}
