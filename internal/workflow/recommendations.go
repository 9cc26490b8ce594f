package workflow

import (
	"context"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// GetNextItem returns non-blocked, non-terminal items under an optional
// parent scope, ordered (priority desc, createdAt asc), excluding items
// whose incoming blocking dependencies are unsatisfied. Read-only.
func GetNextItem(ctx context.Context, store storage.Store, parentID *string) ([]*types.Item, error) {
	items, err := store.SearchItems(ctx, storage.ItemFilter{ParentID: parentID})
	if err != nil {
		return nil, err
	}

	var out []*types.Item
	for _, it := range items {
		if it.Role == types.RoleBlocked || it.Role == types.RoleTerminal {
			continue
		}
		blockers, err := checkBlockers(ctx, store, it.ID)
		if err != nil {
			return nil, err
		}
		if len(blockers) > 0 {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// BlockedItem pairs a BLOCKED or dependency-unsatisfied item with the
// blockers keeping it from advancing.
type BlockedItem struct {
	Item     *types.Item    `json:"item"`
	Blockers []BlockerIssue `json:"blockers"`
}

// GetBlockedItems returns every item with at least one unsatisfied blocking
// dependency, plus items explicitly in the BLOCKED role, together with
// their blockers. Read-only.
func GetBlockedItems(ctx context.Context, store storage.Store) ([]BlockedItem, error) {
	items, err := store.SearchItems(ctx, storage.ItemFilter{})
	if err != nil {
		return nil, err
	}

	var out []BlockedItem
	for _, it := range items {
		if it.Role == types.RoleTerminal {
			continue
		}
		blockers, err := checkBlockers(ctx, store, it.ID)
		if err != nil {
			return nil, err
		}
		if it.Role == types.RoleBlocked || len(blockers) > 0 {
			out = append(out, BlockedItem{Item: it, Blockers: blockers})
		}
	}
	return out, nil
}
