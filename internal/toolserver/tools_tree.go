package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
	"github.com/jpicklyk/task-orchestrator/internal/workflow"
)

// workTreeNode is one item in create_work_tree's node list. key is a
// caller-assigned local identifier (not persisted) used to wire parentKey
// and dependency endpoints before server ids exist.
type workTreeNode struct {
	Key       string             `json:"key"`
	ParentKey *string            `json:"parentKey"`
	Title     string             `json:"title"`
	Summary   string             `json:"summary"`
	Tags      []string           `json:"tags"`
	Priority  string             `json:"priority"`
	Notes     []noteUpsertParams `json:"notes"`
}

type workTreeDependency struct {
	FromKey   string  `json:"fromKey"`
	ToKey     string  `json:"toKey"`
	Type      string  `json:"type"`
	UnblockAt *string `json:"unblockAt"`
}

type createWorkTreeParams struct {
	Nodes        []workTreeNode       `json:"nodes"`
	Dependencies []workTreeDependency `json:"dependencies"`
}

// handleCreateWorkTree atomically creates a root item, its descendants,
// their initial notes, and any dependencies between them, per spec.md §4.5.
// Nodes must be ordered so a parentKey always names an already-listed node.
func (s *Server) handleCreateWorkTree(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[createWorkTreeParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}
	if len(params.Nodes) == 0 {
		return failCode(CodeValidation, "create_work_tree requires at least one node")
	}

	created := make([]*types.Item, 0, len(params.Nodes))
	txErr := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		idByKey := make(map[string]string, len(params.Nodes))

		for _, node := range params.Nodes {
			if node.Key == "" {
				return storage.NewError(storage.KindValidation, "every work tree node requires a key", nil)
			}

			depth := 0
			var parentID *string
			if node.ParentKey != nil {
				pid, ok := idByKey[*node.ParentKey]
				if !ok {
					return storage.NewError(storage.KindValidation,
						fmt.Sprintf("node %q references unknown parentKey %q", node.Key, *node.ParentKey), nil)
				}
				parent, err := tx.GetItem(ctx, pid)
				if err != nil {
					return err
				}
				depth = parent.Depth + 1
				parentID = &pid
			}

			priority := types.Priority(node.Priority)
			if priority == "" {
				priority = types.PriorityMedium
			}
			now := time.Now()
			item := &types.Item{
				ID:            uuid.NewString(),
				Title:         node.Title,
				Summary:       node.Summary,
				Tags:          node.Tags,
				Priority:      priority,
				ParentID:      parentID,
				Depth:         depth,
				Role:          types.RoleQueue,
				CreatedAt:     now,
				ModifiedAt:    now,
				RoleChangedAt: now,
			}
			if err := tx.CreateItem(ctx, item); err != nil {
				return err
			}
			idByKey[node.Key] = item.ID
			created = append(created, item)

			for _, np := range node.Notes {
				noteNow := time.Now()
				note := &types.Note{
					ID:         uuid.NewString(),
					ItemID:     item.ID,
					Key:        np.Key,
					Role:       np.Role,
					Body:       np.Body,
					CreatedAt:  noteNow,
					ModifiedAt: noteNow,
				}
				if err := tx.UpsertNote(ctx, note); err != nil {
					return err
				}
			}
		}

		for _, dep := range params.Dependencies {
			fromID, ok := idByKey[dep.FromKey]
			if !ok {
				return storage.NewError(storage.KindValidation, "unknown dependency fromKey "+dep.FromKey, nil)
			}
			toID, ok := idByKey[dep.ToKey]
			if !ok {
				return storage.NewError(storage.KindValidation, "unknown dependency toKey "+dep.ToKey, nil)
			}
			d := &types.Dependency{
				ID: uuid.NewString(), FromItemID: fromID, ToItemID: toID,
				Type: types.DependencyType(dep.Type), CreatedAt: time.Now(),
			}
			if dep.UnblockAt != nil {
				r := types.Role(*dep.UnblockAt)
				d.UnblockAt = &r
			}
			if err := tx.CreateDependency(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return fail(txErr)
	}
	return ok(created)
}

type completeTreeParams struct {
	ItemIDs []string `json:"itemIds"`
	Summary *string  `json:"summary"`
	DryRun  bool     `json:"dryRun"`
}

// completeTreeDryRunResult previews what completion cleanup would delete for
// one item if it were advanced to TERMINAL, without advancing or deleting
// anything.
type completeTreeDryRunResult struct {
	ItemID      string   `json:"itemId"`
	WouldDelete []string `json:"wouldDelete,omitempty"`
}

// handleCompleteTree batch-advances a set of items to TERMINAL, each
// through the normal transition handler (so gates, cascades, and cleanup
// all still apply) rather than writing role=TERMINAL directly. With
// dryRun=true, it instead previews completion cleanup's retainTags-filtered
// selection for each item, read-only.
func (s *Server) handleCompleteTree(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[completeTreeParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}
	if len(params.ItemIDs) == 0 {
		return failCode(CodeValidation, "complete_tree requires at least one itemId")
	}

	if params.DryRun {
		previews := make([]completeTreeDryRunResult, 0, len(params.ItemIDs))
		for _, id := range params.ItemIDs {
			targets, err := workflow.SelectCompletionCleanupTargets(ctx, s.store, id, s.cfg.CompletionCleanup)
			if err != nil {
				return fail(err)
			}
			previews = append(previews, completeTreeDryRunResult{ItemID: id, WouldDelete: targets})
		}
		return ok(previews)
	}

	results := make([]transitionResult, 0, len(params.ItemIDs))
	for _, id := range params.ItemIDs {
		result, err := s.handler.Advance(ctx, id, types.TriggerComplete, params.Summary)
		if err != nil {
			return fail(err)
		}
		results = append(results, transitionResult{
			ItemID:         result.Item.ID,
			NewRole:        result.Item.Role,
			ExpectedNotes:  result.ExpectedNotes,
			CascadeEvents:  result.CascadeEvents,
			CleanedUpItems: result.CleanedUpItems,
		})
	}
	return ok(results)
}
