package sqlite

import (
	"context"
	"database/sql"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// maxCycleSearchDepth bounds the recursive cycle-detection walk, the same
// defensive cap the teacher uses in its dependencies.go (maxDependencyDepth
// = 100) to keep the check cheap even on pathological graphs.
const maxCycleSearchDepth = 100

const depSelectColumns = `SELECT id, from_item_id, to_item_id, type, unblock_at, created_at`

// blockingEdgesCTE normalizes BLOCKS and IS_BLOCKED_BY rows onto a single
// (blocker, dependent) shape: the blocker must reach its threshold role
// before the dependent is unblocked. RELATES_TO rows never participate,
// matching the teacher's treatment of relates-to as inherently non-blocking.
const blockingEdgesCTE = `
	edges AS (
		SELECT
			CASE WHEN type = 'BLOCKS' THEN from_item_id ELSE to_item_id END AS blocker,
			CASE WHEN type = 'BLOCKS' THEN to_item_id ELSE from_item_id END AS dependent
		FROM dependencies
		WHERE type IN ('BLOCKS', 'IS_BLOCKED_BY')
	)`

// CreateDependency inserts a directed edge after checking it would not close
// a blocking cycle, per spec.md §3's Dependency invariants. Grounded on
// other_examples/...uschtwill-beads__internal-storage-sqlite-dependencies.go.go's
// AddDependency: a recursive CTE walks forward from the new edge's dependent
// side to see whether it can already reach the new edge's blocker side.
func (s *Store) CreateDependency(ctx context.Context, dep *types.Dependency) error {
	if err := dep.Validate(); err != nil {
		return storage.NewError(storage.KindValidation, "invalid dependency", err)
	}
	if _, err := s.GetItem(ctx, dep.FromItemID); err != nil {
		return err
	}
	if _, err := s.GetItem(ctx, dep.ToItemID); err != nil {
		return err
	}

	if dep.Type.IsBlocking() {
		blocker := dep.BlockerItemID()
		dependent := dep.ToItemID
		if dep.Type == types.DepIsBlockedBy {
			dependent = dep.FromItemID
		}
		cyclic, err := s.WouldCreateCycle(ctx, blocker, dependent)
		if err != nil {
			return err
		}
		if cyclic {
			return storage.NewError(storage.KindConflict,
				"dependency would close a blocking cycle", storage.ErrCycle)
		}
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO dependencies (id, from_item_id, to_item_id, type, unblock_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		dep.ID, dep.FromItemID, dep.ToItemID, string(dep.Type), roleOrNil(dep.UnblockAt), dep.CreatedAt,
	)
	if err != nil {
		return storage.AsDomainError("create dependency", wrapDBError("create dependency", err))
	}
	return nil
}

// WouldCreateCycle reports whether adding a blocking edge from `blocker` to
// `dependent` would close a directed cycle: true when `dependent` can
// already reach `blocker` by following existing blocking edges forward.
func (s *Store) WouldCreateCycle(ctx context.Context, blocker, dependent string) (bool, error) {
	var exists bool
	row := s.conn.QueryRowContext(ctx, `
		WITH RECURSIVE`+blockingEdgesCTE+`,
		reachable(item_id, depth) AS (
			SELECT dependent, 1 FROM edges WHERE blocker = ?

			UNION ALL

			SELECT e.dependent, r.depth + 1
			FROM edges e
			JOIN reachable r ON e.blocker = r.item_id
			WHERE r.depth < ?
		)
		SELECT EXISTS(SELECT 1 FROM reachable WHERE item_id = ?)`,
		dependent, maxCycleSearchDepth, blocker,
	)
	if err := row.Scan(&exists); err != nil {
		return false, storage.AsDomainError("check cycle", wrapDBError("check cycle", err))
	}
	return exists, nil
}

// DeleteDependency removes an edge by id.
func (s *Store) DeleteDependency(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM dependencies WHERE id = ?", id)
	if err != nil {
		return storage.AsDomainError("delete dependency", wrapDBError("delete dependency", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.AsDomainError("delete dependency", err)
	}
	if n == 0 {
		return storage.NewError(storage.KindNotFound, "dependency not found", nil)
	}
	return nil
}

// DeleteDependenciesBetween removes edges between two items, optionally
// restricted to a single type, supporting manage_dependencies(delete) by
// (from,to[,type]).
func (s *Store) DeleteDependenciesBetween(ctx context.Context, from, to string, depType *types.DependencyType) error {
	query := "DELETE FROM dependencies WHERE from_item_id = ? AND to_item_id = ?"
	args := []any{from, to}
	if depType != nil {
		query += " AND type = ?"
		args = append(args, string(*depType))
	}
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return storage.AsDomainError("delete dependencies between", wrapDBError("delete dependencies between", err))
	}
	return nil
}

// DeleteDependenciesForItem removes every edge touching itemID, in either
// direction, supporting manage_dependencies(delete, deleteAll) and item
// deletion cleanup.
func (s *Store) DeleteDependenciesForItem(ctx context.Context, itemID string) error {
	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM dependencies WHERE from_item_id = ? OR to_item_id = ?", itemID, itemID)
	if err != nil {
		return storage.AsDomainError("delete dependencies for item", wrapDBError("delete dependencies for item", err))
	}
	return nil
}

// DependenciesFrom returns edges where itemID is the prerequisite.
func (s *Store) DependenciesFrom(ctx context.Context, itemID string) ([]*types.Dependency, error) {
	return s.queryDependencies(ctx, depSelectColumns+" FROM dependencies WHERE from_item_id = ?", itemID)
}

// DependenciesTo returns edges where itemID is the dependent.
func (s *Store) DependenciesTo(ctx context.Context, itemID string) ([]*types.Dependency, error) {
	return s.queryDependencies(ctx, depSelectColumns+" FROM dependencies WHERE to_item_id = ?", itemID)
}

// DependenciesForItem returns the union of DependenciesFrom and
// DependenciesTo, for query_dependencies(itemId scope).
func (s *Store) DependenciesForItem(ctx context.Context, itemID string) ([]*types.Dependency, error) {
	return s.queryDependencies(ctx,
		depSelectColumns+" FROM dependencies WHERE from_item_id = ? OR to_item_id = ?", itemID, itemID)
}

func (s *Store) queryDependencies(ctx context.Context, query string, args ...any) ([]*types.Dependency, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.AsDomainError("query dependencies", wrapDBError("query dependencies", err))
	}
	defer func() { _ = rows.Close() }()

	var deps []*types.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, storage.AsDomainError("query dependencies", err)
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func scanDependency(row rowScanner) (*types.Dependency, error) {
	var d types.Dependency
	var depType string
	var unblockAt sql.NullString
	if err := row.Scan(&d.ID, &d.FromItemID, &d.ToItemID, &depType, &unblockAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Type = types.DependencyType(depType)
	if unblockAt.Valid {
		r := types.Role(unblockAt.String)
		d.UnblockAt = &r
	}
	return &d, nil
}
