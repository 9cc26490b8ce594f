package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

const transitionSelectColumns = `SELECT
	id, item_id, from_role, to_role, from_status_label, to_status_label,
	trigger, summary, transitioned_at`

// AppendTransition records one completed role change. Transitions are
// append-only: there is no update or delete, matching spec.md §8 scenario 6
// (audit rows survive deletion of the item they describe).
func (s *Store) AppendTransition(ctx context.Context, t *types.RoleTransition) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO role_transitions (
			id, item_id, from_role, to_role, from_status_label, to_status_label,
			trigger, summary, transitioned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ItemID, string(t.FromRole), string(t.ToRole),
		stringOrNil(t.FromStatusLabel), stringOrNil(t.ToStatusLabel),
		string(t.Trigger), stringOrNil(t.Summary), t.TransitionedAt,
	)
	if err != nil {
		return storage.AsDomainError("append transition", wrapDBError("append transition", err))
	}
	return nil
}

// TransitionsForItem returns every recorded transition for an item, oldest
// first.
func (s *Store) TransitionsForItem(ctx context.Context, itemID string) ([]*types.RoleTransition, error) {
	return s.queryTransitions(ctx,
		transitionSelectColumns+" FROM role_transitions WHERE item_id = ? ORDER BY transitioned_at ASC", itemID)
}

// TransitionsSince returns every transition recorded at or after since,
// across all items, for audit and reporting queries.
func (s *Store) TransitionsSince(ctx context.Context, since time.Time) ([]*types.RoleTransition, error) {
	return s.queryTransitions(ctx,
		transitionSelectColumns+" FROM role_transitions WHERE transitioned_at >= ? ORDER BY transitioned_at ASC", since)
}

// TransitionsInRange returns transitions recorded within [from, to].
func (s *Store) TransitionsInRange(ctx context.Context, from, to time.Time) ([]*types.RoleTransition, error) {
	return s.queryTransitions(ctx,
		transitionSelectColumns+` FROM role_transitions
		WHERE transitioned_at >= ? AND transitioned_at <= ?
		ORDER BY transitioned_at ASC`, from, to)
}

func (s *Store) queryTransitions(ctx context.Context, query string, args ...any) ([]*types.RoleTransition, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.AsDomainError("query transitions", wrapDBError("query transitions", err))
	}
	defer func() { _ = rows.Close() }()

	var out []*types.RoleTransition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, storage.AsDomainError("query transitions", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransition(row rowScanner) (*types.RoleTransition, error) {
	var t types.RoleTransition
	var fromRole, toRole, trigger string
	var fromLabel, toLabel, summary sql.NullString
	if err := row.Scan(
		&t.ID, &t.ItemID, &fromRole, &toRole, &fromLabel, &toLabel,
		&trigger, &summary, &t.TransitionedAt,
	); err != nil {
		return nil, err
	}
	t.FromRole = types.Role(fromRole)
	t.ToRole = types.Role(toRole)
	t.Trigger = types.Trigger(trigger)
	if fromLabel.Valid {
		t.FromStatusLabel = &fromLabel.String
	}
	if toLabel.Valid {
		t.ToStatusLabel = &toLabel.String
	}
	if summary.Valid {
		t.Summary = &summary.String
	}
	return &t, nil
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
