package sqlite

import (
	"context"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

const noteSelectColumns = `SELECT id, item_id, key, role, body, created_at, modified_at`

// UpsertNote inserts a note or replaces the body/role of an existing one for
// the same (itemId, key) pair, per spec.md §3 Note lifecycle.
func (s *Store) UpsertNote(ctx context.Context, note *types.Note) error {
	if err := note.Validate(); err != nil {
		return storage.NewError(storage.KindValidation, "invalid note", err)
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO notes (id, item_id, key, role, body, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, key) DO UPDATE SET
			role = excluded.role,
			body = excluded.body,
			modified_at = excluded.modified_at`,
		note.ID, note.ItemID, note.Key, note.Role, note.Body, note.CreatedAt, note.ModifiedAt,
	)
	if err != nil {
		return storage.AsDomainError("upsert note", wrapDBError("upsert note", err))
	}
	return nil
}

// DeleteNote removes a single note by (itemId, key).
func (s *Store) DeleteNote(ctx context.Context, itemID, key string) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM notes WHERE item_id = ? AND key = ?", itemID, key)
	if err != nil {
		return storage.AsDomainError("delete note", wrapDBError("delete note", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.AsDomainError("delete note", err)
	}
	if n == 0 {
		return storage.NewError(storage.KindNotFound, "note not found", nil)
	}
	return nil
}

// DeleteNotesForItem removes every note belonging to an item (used
// explicitly by completion cleanup/delete paths that don't rely on the
// database's ON DELETE CASCADE, e.g. when only notes should be pruned).
func (s *Store) DeleteNotesForItem(ctx context.Context, itemID string) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM notes WHERE item_id = ?", itemID)
	if err != nil {
		return storage.AsDomainError("delete notes for item", wrapDBError("delete notes for item", err))
	}
	return nil
}

// GetNote fetches a single note by (itemId, key).
func (s *Store) GetNote(ctx context.Context, itemID, key string) (*types.Note, error) {
	row := s.conn.QueryRowContext(ctx,
		noteSelectColumns+" FROM notes WHERE item_id = ? AND key = ?", itemID, key)
	n, err := scanNote(row)
	if err != nil {
		return nil, storage.AsDomainError("get note", wrapDBError("get note", err))
	}
	return n, nil
}

// ListNotes returns every note for an item, optionally filtered to a single
// role ("queue" | "work" | "review").
func (s *Store) ListNotes(ctx context.Context, itemID string, role *string) ([]*types.Note, error) {
	query := noteSelectColumns + " FROM notes WHERE item_id = ?"
	args := []any{itemID}
	if role != nil {
		query += " AND role = ?"
		args = append(args, *role)
	}
	query += " ORDER BY key"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.AsDomainError("list notes", wrapDBError("list notes", err))
	}
	defer func() { _ = rows.Close() }()

	var notes []*types.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, storage.AsDomainError("list notes", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func scanNote(row rowScanner) (*types.Note, error) {
	var n types.Note
	if err := row.Scan(&n.ID, &n.ItemID, &n.Key, &n.Role, &n.Body, &n.CreatedAt, &n.ModifiedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
