package workflow

import (
	"context"

	"github.com/jpicklyk/task-orchestrator/internal/schema"
	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// CascadeKind names the structural side effect a CascadeEvent reports.
type CascadeKind string

const (
	CascadeAllChildrenTerminal CascadeKind = "all_children_terminal"
	CascadeFirstChildWork      CascadeKind = "first_child_work"
	CascadeDependentUnblocked  CascadeKind = "dependent_unblocked"
)

// CascadeEvent is a suggested (or, under auto-cascade, applied) follow-on
// transition surfaced after a successful Advance, per spec.md §4.4.
type CascadeEvent struct {
	Kind          CascadeKind `json:"kind"`
	ItemID        string      `json:"itemId"`
	SuggestedRole types.Role  `json:"suggestedRole,omitempty"`
	Message       string      `json:"message"`
}

// DetectCascades inspects the item that just transitioned to target and
// returns the structural side effects worth surfacing: its parent
// potentially ready to advance, and any dependents this transition just
// unblocked.
func DetectCascades(ctx context.Context, store storage.Store, schemaSvc *schema.Service, item *types.Item, target types.Role) ([]CascadeEvent, error) {
	var events []CascadeEvent

	if item.ParentID != nil {
		parentEvents, err := detectParentCascade(ctx, store, schemaSvc, *item.ParentID, target)
		if err != nil {
			return nil, err
		}
		events = append(events, parentEvents...)
	}

	dependentEvents, err := detectDependentUnblocked(ctx, store, item.ID, target)
	if err != nil {
		return nil, err
	}
	events = append(events, dependentEvents...)

	return events, nil
}

func detectParentCascade(ctx context.Context, store storage.Store, schemaSvc *schema.Service, parentID string, childTarget types.Role) ([]CascadeEvent, error) {
	parent, err := store.GetItem(ctx, parentID)
	if err != nil {
		return nil, err
	}

	var events []CascadeEvent

	if childTarget == types.RoleTerminal {
		counts, err := store.ChildRoleCounts(ctx, parentID)
		if err != nil {
			return nil, err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		if total > 0 && counts[types.RoleTerminal] == total {
			resolution, err := Resolve(parent, types.TriggerStart, schemaSvc.HasReviewPhase(parent.Tags))
			if err == nil {
				events = append(events, CascadeEvent{
					Kind: CascadeAllChildrenTerminal, ItemID: parentID, SuggestedRole: resolution.TargetRole,
					Message: "all children terminal: parent is ready to advance",
				})
			}
		}
	}

	if childTarget == types.RoleWork && parent.Role == types.RoleQueue {
		events = append(events, CascadeEvent{
			Kind: CascadeFirstChildWork, ItemID: parentID, SuggestedRole: types.RoleWork,
			Message: "first child entered WORK: parent is ready to advance to WORK",
		})
	}

	return events, nil
}

func detectDependentUnblocked(ctx context.Context, store storage.Store, blockerID string, blockerTarget types.Role) ([]CascadeEvent, error) {
	toDeps, err := store.DependenciesTo(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	fromDeps, err := store.DependenciesFrom(ctx, blockerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var events []CascadeEvent
	for _, d := range append(toDeps, fromDeps...) {
		if !d.Type.IsBlocking() || d.BlockerItemID() != blockerID {
			continue
		}
		if !blockerTarget.AtOrBeyond(d.Threshold()) {
			continue
		}
		dependentID := d.DependentItemID()
		if seen[dependentID] {
			continue
		}

		remaining, err := checkBlockers(ctx, store, dependentID)
		if err != nil {
			return nil, err
		}
		if len(remaining) == 0 {
			seen[dependentID] = true
			events = append(events, CascadeEvent{
				Kind: CascadeDependentUnblocked, ItemID: dependentID,
				Message: "all blocking dependencies satisfied",
			})
		}
	}
	return events, nil
}
