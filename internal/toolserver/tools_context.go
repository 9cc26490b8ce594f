package toolserver

import (
	"context"
	"encoding/json"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
	"github.com/jpicklyk/task-orchestrator/internal/workflow"
)

type getContextParams struct {
	ItemID *string `json:"itemId"`
}

type expectedNote struct {
	Key      string `json:"key"`
	Role     string `json:"role"`
	Required bool   `json:"required"`
	Exists   bool   `json:"exists"`
}

type gateStatus struct {
	CanAdvance           bool                    `json:"canAdvance"`
	MissingRequiredNotes []types.NoteSchemaEntry `json:"missingRequiredNotes,omitempty"`
}

type itemContext struct {
	Item            *types.Item    `json:"item"`
	ActiveSchemaTag *string        `json:"activeSchemaTag,omitempty"`
	ExpectedNotes   []expectedNote `json:"expectedNotes"`
	GateStatus      gateStatus     `json:"gateStatus"`
	GuidancePointer *string        `json:"guidancePointer,omitempty"`
}

type contextSummary struct {
	ActiveCount  int `json:"activeCount"`
	StalledCount int `json:"stalledCount"`
	BlockedCount int `json:"blockedCount"`
}

func (s *Server) handleGetContext(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[getContextParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}
	if params.ItemID == nil {
		return s.contextSummary(ctx)
	}
	return s.itemContext(ctx, *params.ItemID)
}

func (s *Server) itemContext(ctx context.Context, itemID string) *Envelope {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return fail(err)
	}

	existing, err := s.store.ListNotes(ctx, itemID, nil)
	if err != nil {
		return fail(err)
	}
	existingKeys := make(map[string]bool, len(existing))
	for _, n := range existing {
		existingKeys[n.Key] = true
	}

	schemaEntries := s.schema.GetSchemaForTags(item.Tags)
	var activeTag *string
	for _, tag := range item.Tags {
		if len(s.schema.GetSchemaForTags([]string{tag})) > 0 {
			t := tag
			activeTag = &t
			break
		}
	}

	expected := make([]expectedNote, 0, len(schemaEntries))
	var guidance *string
	for _, e := range schemaEntries {
		expected = append(expected, expectedNote{
			Key: e.Key, Role: e.Role, Required: e.Required, Exists: existingKeys[e.Key],
		})
		if e.Guidance != "" && e.Role == item.Role.LowercaseName() && guidance == nil {
			g := e.Guidance
			guidance = &g
		}
	}

	gate := gateStatus{CanAdvance: true}
	if item.Role != types.RoleTerminal && item.Role != types.RoleBlocked {
		resolution, resolveErr := workflow.Resolve(item, types.TriggerStart, s.schema.HasReviewPhase(item.Tags))
		if resolveErr == nil {
			validation, err := workflow.Validate(ctx, s.store, s.schema, item, resolution.TargetRole)
			if err != nil {
				return fail(err)
			}
			gate.CanAdvance = validation.Valid
			gate.MissingRequiredNotes = validation.MissingRequiredNotes
		}
	} else {
		gate.CanAdvance = false
	}

	return ok(itemContext{
		Item: item, ActiveSchemaTag: activeTag, ExpectedNotes: expected,
		GateStatus: gate, GuidancePointer: guidance,
	})
}

func (s *Server) contextSummary(ctx context.Context) *Envelope {
	items, err := s.store.SearchItems(ctx, storage.ItemFilter{})
	if err != nil {
		return fail(err)
	}
	summary := contextSummary{}
	for _, it := range items {
		switch it.Role {
		case types.RoleWork, types.RoleReview:
			summary.ActiveCount++
		case types.RoleBlocked:
			summary.StalledCount++
		}
	}
	blocked, err := workflow.GetBlockedItems(ctx, s.store)
	if err != nil {
		return fail(err)
	}
	summary.BlockedCount = len(blocked)

	return ok(summary)
}
