package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jpicklyk/task-orchestrator/internal/config"
	"github.com/jpicklyk/task-orchestrator/internal/metrics"
	"github.com/jpicklyk/task-orchestrator/internal/schema"
	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// maxApplyRetries bounds the optimistic-concurrency retry loop in Apply:
// if the item changed role between validation and the write transaction,
// the whole resolve/validate/apply sequence restarts against the fresh
// state, up to this many times before giving up. Grounded on the teacher's
// withRetry/newServerRetryBackoff pattern in internal/storage/dolt/store.go.
const maxApplyRetries = 5

// errConcurrentModification is wrapped in backoff.Permanent-free form so
// backoff.Retry keeps retrying on it and only it; any other error from the
// operation is wrapped in backoff.Permanent to stop immediately. It is a
// Conflict-kind storage error, so once retries run out it surfaces as
// CONFLICT_ERROR.
var errConcurrentModification = storage.NewError(storage.KindConflict, "item role changed concurrently", storage.ErrConflict)

// maxAutoCascadeDepth caps auto-applied cascade chains when
// cfg.AutoCascadeMaxDepth is unset, per spec.md §4.4
// ("bounded recursion depth, default 3").
const maxAutoCascadeDepth = 3

// Handler runs the transition algorithm: resolve, validate, apply, and the
// cascade/cleanup ancillaries that follow a successful apply.
type Handler struct {
	store    storage.Store
	schema   *schema.Service
	cfg      *config.Config
	recorder *metrics.Recorder
}

// NewHandler builds a Handler over the given store, schema service, and
// config. recorder may be nil (metrics become no-ops).
func NewHandler(store storage.Store, schemaSvc *schema.Service, cfg *config.Config, recorder *metrics.Recorder) *Handler {
	return &Handler{store: store, schema: schemaSvc, cfg: cfg, recorder: recorder}
}

// AdvanceResult is what a successful Advance returns: the item's new state,
// the audit row written for it, any cascade suggestions (or already-applied
// cascades when auto-cascade is enabled), and any items deleted by
// completion cleanup.
type AdvanceResult struct {
	Item           *types.Item
	Transition     *types.RoleTransition
	CascadeEvents  []CascadeEvent
	CleanedUpItems []string
	ExpectedNotes  []types.NoteSchemaEntry
}

// ValidationFailure carries the unsatisfied-blocker/missing-note detail a
// caller needs to report a DEPENDENCY_ERROR (unsatisfied blockers) or a
// VALIDATION_ERROR (missing required notes), without forcing every caller
// to import the workflow package's internal check helpers.
type ValidationFailure struct {
	UnsatisfiedBlockers  []BlockerIssue
	MissingRequiredNotes []types.NoteSchemaEntry
}

func (f *ValidationFailure) Error() string {
	return fmt.Sprintf("transition blocked: %d unsatisfied dependencies, %d missing required notes",
		len(f.UnsatisfiedBlockers), len(f.MissingRequiredNotes))
}

// Advance runs the full resolve -> validate -> apply pipeline for one item,
// retrying the apply step when an optimistic-concurrency conflict is
// detected, and then running cascade detection (auto-applying it when
// cfg.AutoCascade is set) and completion cleanup.
func (h *Handler) Advance(ctx context.Context, itemID string, trigger types.Trigger, summary *string) (*AdvanceResult, error) {
	var result *AdvanceResult

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxApplyRetries)
	err := backoff.Retry(func() error {
		r, err := h.attemptAdvance(ctx, itemID, trigger, summary)
		if err != nil {
			if err == errConcurrentModification {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}, backoff.WithContext(bo, ctx))

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	h.recorder.RecordTransition(ctx, string(trigger), outcome)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *Handler) attemptAdvance(ctx context.Context, itemID string, trigger types.Trigger, summary *string) (*AdvanceResult, error) {
	item, err := h.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	originalRole := item.Role

	resolution, err := Resolve(item, trigger, h.schema.HasReviewPhase(item.Tags))
	if err != nil {
		return nil, storage.NewError(storage.KindValidation, err.Error(), nil)
	}

	validation, err := Validate(ctx, h.store, h.schema, item, resolution.TargetRole)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, &ValidationFailure{
			UnsatisfiedBlockers:  validation.UnsatisfiedBlockers,
			MissingRequiredNotes: validation.MissingRequiredNotes,
		}
	}

	var result *AdvanceResult
	err = h.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		fresh, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if fresh.Role != originalRole {
			return errConcurrentModification
		}

		applyTransitionFields(fresh, resolution, trigger)
		if err := tx.UpdateItem(ctx, fresh); err != nil {
			return err
		}

		record := &types.RoleTransition{
			ID:             uuid.NewString(),
			ItemID:         fresh.ID,
			FromRole:       originalRole,
			ToRole:         fresh.Role,
			ToStatusLabel:  fresh.StatusLabel,
			Trigger:        trigger,
			Summary:        summary,
			TransitionedAt: time.Now(),
		}
		if err := tx.AppendTransition(ctx, record); err != nil {
			return err
		}

		cascades, err := DetectCascades(ctx, tx, h.schema, fresh, fresh.Role)
		if err != nil {
			return err
		}

		var cleaned []string
		if fresh.Role == types.RoleTerminal {
			cleaned, err = CompletionCleanup(ctx, tx, fresh.ID, h.cfg.CompletionCleanup)
			if err != nil {
				return err
			}
		}

		if h.cfg.AutoCascade {
			applied, err := h.applyCascadesRecursive(ctx, tx, cascades, 0)
			if err != nil {
				return err
			}
			cascades = applied
		}

		result = &AdvanceResult{
			Item:           fresh,
			Transition:     record,
			CascadeEvents:  cascades,
			CleanedUpItems: cleaned,
			ExpectedNotes:  h.schema.GetSchemaForTags(fresh.Tags),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyTransitionFields mutates item in place to reflect resolution: new
// role, roleChangedAt, and the previousRole/statusLabel bookkeeping from
// spec.md §4.3 phase 3 step 2.
func applyTransitionFields(item *types.Item, resolution Resolution, trigger types.Trigger) {
	now := time.Now()
	if resolution.TargetRole == types.RoleBlocked {
		current := item.Role
		item.PreviousRole = &current
	} else if item.Role == types.RoleBlocked {
		item.PreviousRole = nil
	}

	item.Role = resolution.TargetRole
	item.RoleChangedAt = now
	item.ModifiedAt = now

	switch {
	case resolution.StatusLabel != nil:
		item.StatusLabel = resolution.StatusLabel
	case resolution.TargetRole != types.RoleBlocked:
		item.StatusLabel = nil
	}
}

// applyCascadesRecursive auto-applies start-trigger cascade suggestions up
// to cfg.AutoCascadeMaxDepth (maxAutoCascadeDepth when that is unset),
// collecting the events actually produced (as opposed to merely suggested)
// along the way.
func (h *Handler) applyCascadesRecursive(ctx context.Context, tx storage.Store, events []CascadeEvent, depth int) ([]CascadeEvent, error) {
	limit := h.cfg.AutoCascadeMaxDepth
	if limit <= 0 {
		limit = maxAutoCascadeDepth
	}
	if depth >= limit {
		return events, nil
	}

	var out []CascadeEvent
	out = append(out, events...)

	for _, e := range events {
		if e.Kind != CascadeAllChildrenTerminal && e.Kind != CascadeFirstChildWork {
			continue
		}
		item, err := tx.GetItem(ctx, e.ItemID)
		if err != nil {
			continue
		}
		fromRole := item.Role
		resolution, err := Resolve(item, types.TriggerStart, h.schema.HasReviewPhase(item.Tags))
		if err != nil {
			continue
		}
		applyTransitionFields(item, resolution, types.TriggerStart)
		if err := tx.UpdateItem(ctx, item); err != nil {
			return nil, err
		}
		if err := tx.AppendTransition(ctx, &types.RoleTransition{
			ID: uuid.NewString(), ItemID: item.ID, FromRole: fromRole, ToRole: item.Role,
			Trigger: types.TriggerStart, TransitionedAt: time.Now(),
		}); err != nil {
			return nil, err
		}

		nested, err := DetectCascades(ctx, tx, h.schema, item, item.Role)
		if err != nil {
			return nil, err
		}
		applied, err := h.applyCascadesRecursive(ctx, tx, nested, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, applied...)
	}
	return out, nil
}
