package workflow

import (
	"context"

	"github.com/jpicklyk/task-orchestrator/internal/schema"
	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// BlockerIssue names one unsatisfied blocking dependency, returned so the
// caller can surface exactly which blocker and threshold are in the way.
type BlockerIssue struct {
	DependencyID  string     `json:"dependencyId"`
	BlockerItemID string     `json:"blockerItemId"`
	BlockerRole   types.Role `json:"blockerRole"`
	RequiredRole  types.Role `json:"requiredRole"`
}

// ValidationResult is the output of phase 2. Valid is false if either
// blockers are unsatisfied or required notes are missing; both lists are
// returned together so a single failed advance_item call reports everything
// wrong at once.
type ValidationResult struct {
	Valid                 bool
	UnsatisfiedBlockers    []BlockerIssue
	MissingRequiredNotes  []types.NoteSchemaEntry
}

// Validate implements spec.md §4.3 phase 2. Backward and lateral moves (any
// target not strictly forward of the current role, and any move into
// BLOCKED) skip both checks — blocking is always allowed, and only forward
// progress is gated.
func Validate(ctx context.Context, store storage.Store, schemaSvc *schema.Service, item *types.Item, target types.Role) (*ValidationResult, error) {
	result := &ValidationResult{Valid: true}

	if target == types.RoleBlocked || target.Ordinal() <= item.Role.Ordinal() {
		return result, nil
	}

	blockers, err := checkBlockers(ctx, store, item.ID)
	if err != nil {
		return nil, err
	}
	result.UnsatisfiedBlockers = blockers

	phase := item.Role.LowercaseName()
	if phase != "" {
		existing, err := notesByKey(ctx, store, item.ID)
		if err != nil {
			return nil, err
		}
		result.MissingRequiredNotes = schemaSvc.MissingRequiredNotes(item.Tags, phase, existing)
	}

	result.Valid = len(result.UnsatisfiedBlockers) == 0 && len(result.MissingRequiredNotes) == 0
	return result, nil
}

// checkBlockers fetches every dependency in which itemID is the dependent
// and reports the ones whose blocker has not reached its threshold role.
// A missing blocker item is treated as unsatisfied, the worst case.
func checkBlockers(ctx context.Context, store storage.Store, itemID string) ([]BlockerIssue, error) {
	deps, err := store.DependenciesTo(ctx, itemID)
	if err != nil {
		return nil, err
	}
	fromDeps, err := store.DependenciesFrom(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var issues []BlockerIssue
	for _, d := range append(deps, fromDeps...) {
		if !d.Type.IsBlocking() || d.DependentItemID() != itemID {
			continue
		}
		threshold := d.Threshold()
		blockerID := d.BlockerItemID()

		blocker, err := store.GetItem(ctx, blockerID)
		if err != nil {
			if de, ok := err.(*storage.Error); ok && de.Kind == storage.KindNotFound {
				issues = append(issues, BlockerIssue{
					DependencyID: d.ID, BlockerItemID: blockerID,
					BlockerRole: "", RequiredRole: threshold,
				})
				continue
			}
			return nil, err
		}
		if !blocker.Role.AtOrBeyond(threshold) {
			issues = append(issues, BlockerIssue{
				DependencyID: d.ID, BlockerItemID: blockerID,
				BlockerRole: blocker.Role, RequiredRole: threshold,
			})
		}
	}
	return issues, nil
}

func notesByKey(ctx context.Context, store storage.Store, itemID string) (map[string]string, error) {
	notes, err := store.ListNotes(ctx, itemID, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(notes))
	for _, n := range notes {
		out[n.Key] = n.Body
	}
	return out, nil
}
