package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows into storage.ErrNotFound and unique-constraint violations
// into storage.ErrConflict, mirroring the teacher's wrapDBError in
// internal/storage/sqlite/errors.go.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
