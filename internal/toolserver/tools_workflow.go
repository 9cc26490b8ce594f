package toolserver

import (
	"context"
	"encoding/json"

	"github.com/jpicklyk/task-orchestrator/internal/types"
	"github.com/jpicklyk/task-orchestrator/internal/workflow"
)

type transitionSpec struct {
	ItemID  string  `json:"itemId"`
	Trigger string  `json:"trigger"`
	Summary *string `json:"summary"`
}

type advanceItemParams struct {
	Transitions []transitionSpec `json:"transitions"`
}

type transitionResult struct {
	ItemID         string                   `json:"itemId"`
	NewRole        types.Role               `json:"newRole"`
	ExpectedNotes  []types.NoteSchemaEntry  `json:"expectedNotes"`
	CascadeEvents  []workflow.CascadeEvent  `json:"cascadeEvents"`
	CleanedUpItems []string                 `json:"cleanedUpItems,omitempty"`
}

func (s *Server) handleAdvanceItem(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[advanceItemParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}
	if len(params.Transitions) == 0 {
		return failCode(CodeValidation, "advance_item requires at least one transition")
	}

	results := make([]transitionResult, 0, len(params.Transitions))
	for _, t := range params.Transitions {
		result, err := s.handler.Advance(ctx, t.ItemID, types.Trigger(t.Trigger), t.Summary)
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

type getNextItemParams struct {
	ParentID *string `json:"parentId"`
}

func (s *Server) handleGetNextItem(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[getNextItemParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}
	items, err := workflow.GetNextItem(ctx, s.store, params.ParentID)
	if err != nil {
		return fail(err)
	}
	return ok(items)
}

func (s *Server) handleGetBlockedItems(ctx context.Context, _ json.RawMessage) *Envelope {
	items, err := workflow.GetBlockedItems(ctx, s.store)
	if err != nil {
		return fail(err)
	}
	return ok(items)
}

type getNextStatusParams struct {
	ItemID  string `json:"itemId"`
	Trigger string `json:"trigger"`
}

type nextStatusResult struct {
	TargetRole           types.Role              `json:"targetRole"`
	Valid                bool                    `json:"valid"`
	UnsatisfiedBlockers  []workflow.BlockerIssue `json:"unsatisfiedBlockers,omitempty"`
	MissingRequiredNotes []types.NoteSchemaEntry `json:"missingRequiredNotes,omitempty"`
}

// handleGetNextStatus runs resolve and validate without ever opening a
// write transaction, so it is safe to call on an item mid-edit elsewhere.
func (s *Server) handleGetNextStatus(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[getNextStatusParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}

	item, err := s.store.GetItem(ctx, params.ItemID)
	if err != nil {
		return fail(err)
	}

	resolution, err := workflow.Resolve(item, types.Trigger(params.Trigger), s.schema.HasReviewPhase(item.Tags))
	if err != nil {
		return failCode(CodeValidation, err.Error())
	}

	validation, err := workflow.Validate(ctx, s.store, s.schema, item, resolution.TargetRole)
	if err != nil {
		return fail(err)
	}

	return ok(nextStatusResult{
		TargetRole:           resolution.TargetRole,
		Valid:                validation.Valid,
		UnsatisfiedBlockers:  validation.UnsatisfiedBlockers,
		MissingRequiredNotes: validation.MissingRequiredNotes,
	})
}
