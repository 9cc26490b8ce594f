package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// CreateItem inserts a new work item and its ordered tags in one
// transaction-scoped call (the caller is expected to already be inside
// WithTx when atomicity across tags matters, as create_work_tree requires).
func (s *Store) CreateItem(ctx context.Context, item *types.Item) error {
	if err := item.Validate(); err != nil {
		return storage.NewError(storage.KindValidation, "invalid item", err)
	}
	if item.ParentID != nil {
		parent, err := s.GetItem(ctx, *item.ParentID)
		if err != nil {
			return err
		}
		if item.Depth != parent.Depth+1 {
			return storage.NewError(storage.KindValidation,
				fmt.Sprintf("depth must be parent depth + 1 (parent depth %d)", parent.Depth), nil)
		}
	} else if item.Depth != 0 {
		return storage.NewError(storage.KindValidation, "root items must have depth 0", nil)
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO work_items (
			id, title, summary, priority, parent_id, depth, role, previous_role,
			status_label, created_at, modified_at, role_changed_at, summary_on_complete
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Summary, string(item.Priority), item.ParentID, item.Depth,
		string(item.Role), roleOrNil(item.PreviousRole), item.StatusLabel,
		item.CreatedAt, item.ModifiedAt, item.RoleChangedAt, item.SummaryOnComplete,
	)
	if err != nil {
		return storage.AsDomainError("create item", wrapDBError("create item", err))
	}

	if err := s.replaceTags(ctx, item.ID, item.Tags); err != nil {
		return err
	}
	return nil
}

func (s *Store) replaceTags(ctx context.Context, itemID string, tags []string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM item_tags WHERE item_id = ?", itemID); err != nil {
		return storage.AsDomainError("replace tags", wrapDBError("delete tags", err))
	}
	for i, tag := range tags {
		if _, err := s.conn.ExecContext(ctx,
			"INSERT INTO item_tags (item_id, tag, position) VALUES (?, ?, ?)", itemID, tag, i); err != nil {
			return storage.AsDomainError("replace tags", wrapDBError("insert tag", err))
		}
	}
	return nil
}

// GetItem fetches a single item by id, including its ordered tags.
func (s *Store) GetItem(ctx context.Context, id string) (*types.Item, error) {
	row := s.conn.QueryRowContext(ctx, itemSelectColumns+" FROM work_items WHERE id = ?", id)
	item, err := scanItem(row)
	if err != nil {
		return nil, storage.AsDomainError("get item", wrapDBError("get item", err))
	}
	tags, err := s.itemTags(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	return item, nil
}

func (s *Store) itemTags(ctx context.Context, itemID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT tag FROM item_tags WHERE item_id = ? ORDER BY position", itemID)
	if err != nil {
		return nil, storage.AsDomainError("list tags", wrapDBError("list tags", err))
	}
	defer func() { _ = rows.Close() }()
	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, storage.AsDomainError("list tags", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpdateItem persists non-role fields (title, summary, tags, priority,
// parentId) plus whatever role/previousRole/statusLabel/roleChangedAt the
// caller has already set. manage_items(update) never changes role; only the
// transition handler does, through this same method, inside WithTx.
func (s *Store) UpdateItem(ctx context.Context, item *types.Item) error {
	if err := item.Validate(); err != nil {
		return storage.NewError(storage.KindValidation, "invalid item", err)
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE work_items SET
			title = ?, summary = ?, priority = ?, parent_id = ?, depth = ?,
			role = ?, previous_role = ?, status_label = ?, modified_at = ?,
			role_changed_at = ?, summary_on_complete = ?
		WHERE id = ?`,
		item.Title, item.Summary, string(item.Priority), item.ParentID, item.Depth,
		string(item.Role), roleOrNil(item.PreviousRole), item.StatusLabel, item.ModifiedAt,
		item.RoleChangedAt, item.SummaryOnComplete, item.ID,
	)
	if err != nil {
		return storage.AsDomainError("update item", wrapDBError("update item", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.AsDomainError("update item", err)
	}
	if n == 0 {
		return storage.NewError(storage.KindNotFound, "item not found: "+item.ID, nil)
	}
	return s.replaceTags(ctx, item.ID, item.Tags)
}

// DeleteItem removes a single item; notes and dependencies cascade via
// foreign keys, role_transitions intentionally do not (spec.md §8 scenario 6).
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM work_items WHERE id = ?", id)
	if err != nil {
		return storage.AsDomainError("delete item", wrapDBError("delete item", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.AsDomainError("delete item", err)
	}
	if n == 0 {
		return storage.NewError(storage.KindNotFound, "item not found: "+id, nil)
	}
	return nil
}

// DeleteItems removes several items (used by completion cleanup and
// manage_items(delete) batches).
func (s *Store) DeleteItems(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.DeleteItem(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

const itemSelectColumns = `SELECT
	id, title, summary, priority, parent_id, depth, role, previous_role,
	status_label, created_at, modified_at, role_changed_at, summary_on_complete`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*types.Item, error) {
	var it types.Item
	var priority, role string
	var parentID, previousRole, statusLabel, summaryOnComplete sql.NullString
	if err := row.Scan(
		&it.ID, &it.Title, &it.Summary, &priority, &parentID, &it.Depth, &role, &previousRole,
		&statusLabel, &it.CreatedAt, &it.ModifiedAt, &it.RoleChangedAt, &summaryOnComplete,
	); err != nil {
		return nil, err
	}
	it.Priority = types.Priority(priority)
	it.Role = types.Role(role)
	if parentID.Valid {
		it.ParentID = &parentID.String
	}
	if previousRole.Valid {
		r := types.Role(previousRole.String)
		it.PreviousRole = &r
	}
	if statusLabel.Valid {
		it.StatusLabel = &statusLabel.String
	}
	if summaryOnComplete.Valid {
		it.SummaryOnComplete = &summaryOnComplete.String
	}
	return &it, nil
}

func roleOrNil(r *types.Role) any {
	if r == nil {
		return nil
	}
	return string(*r)
}

// SearchItems runs an attribute search with default ordering
// (priority desc, createdAt asc) per spec.md §4.1.
func (s *Store) SearchItems(ctx context.Context, filter storage.ItemFilter) ([]*types.Item, error) {
	query := itemSelectColumns + " FROM work_items WHERE 1=1"
	var args []any

	if filter.Role != nil {
		query += " AND role = ?"
		args = append(args, string(*filter.Role))
	}
	if filter.Priority != nil {
		query += " AND priority = ?"
		args = append(args, string(*filter.Priority))
	}
	if filter.ParentID != nil {
		query += " AND parent_id = ?"
		args = append(args, *filter.ParentID)
	}
	if filter.Depth != nil {
		query += " AND depth = ?"
		args = append(args, *filter.Depth)
	}
	if filter.TitleContains != nil {
		query += ` AND title LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(*filter.TitleContains)+"%")
	}
	if filter.TagSubstring != nil {
		query += ` AND id IN (SELECT item_id FROM item_tags WHERE tag LIKE ? ESCAPE '\')`
		args = append(args, "%"+escapeLike(*filter.TagSubstring)+"%")
	}
	query += orderByPriorityThenCreated()

	return s.queryItems(ctx, query, args...)
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer("%", "\\%", "_", "\\_")
	return replacer.Replace(s)
}

func orderByPriorityThenCreated() string {
	return ` ORDER BY CASE priority
		WHEN 'critical' THEN 3 WHEN 'high' THEN 2 WHEN 'medium' THEN 1 ELSE 0 END DESC,
		created_at ASC`
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*types.Item, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.AsDomainError("search items", wrapDBError("search items", err))
	}
	defer func() { _ = rows.Close() }()

	var items []*types.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, storage.AsDomainError("search items", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.AsDomainError("search items", err)
	}
	for _, it := range items {
		tags, err := s.itemTags(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		it.Tags = tags
	}
	return items, nil
}

// ChildItems returns the direct children of parentID, default ordered.
func (s *Store) ChildItems(ctx context.Context, parentID string) ([]*types.Item, error) {
	return s.queryItems(ctx, itemSelectColumns+" FROM work_items WHERE parent_id = ?"+orderByPriorityThenCreated(), parentID)
}

// ChildRoleCounts buckets direct children by role, for query_items(overview)
// and cascade "all children terminal" detection. Grounded on the teacher's
// epic_stats aggregation in internal/storage/sqlite/epics.go.
func (s *Store) ChildRoleCounts(ctx context.Context, parentID string) (map[types.Role]int, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT role, COUNT(*) FROM work_items WHERE parent_id = ? GROUP BY role", parentID)
	if err != nil {
		return nil, storage.AsDomainError("child role counts", wrapDBError("child role counts", err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[types.Role]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, storage.AsDomainError("child role counts", err)
		}
		counts[types.Role(role)] = n
	}
	return counts, rows.Err()
}

// Ancestors walks parent pointers from id up to the root, returning them
// root-first, for breadcrumb display.
func (s *Store) Ancestors(ctx context.Context, id string) ([]*types.Item, error) {
	var chain []*types.Item
	current, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	for current.ParentID != nil {
		parent, err := s.GetItem(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		chain = append([]*types.Item{parent}, chain...)
		current = parent
	}
	return chain, nil
}
