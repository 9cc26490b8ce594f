package toolserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jpicklyk/task-orchestrator/internal/types"
)

type noteUpsertParams struct {
	ItemID string `json:"itemId"`
	Key    string `json:"key"`
	Role   string `json:"role"`
	Body   string `json:"body"`
}

type noteDeleteParams struct {
	ItemID string `json:"itemId"`
	Key    string `json:"key"`
}

type manageNotesParams struct {
	Operation string            `json:"operation"`
	Notes     []json.RawMessage `json:"notes"`
}

func (s *Server) handleManageNotes(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[manageNotesParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}

	switch params.Operation {
	case "upsert":
		return s.upsertNotes(ctx, params.Notes)
	case "delete":
		return s.deleteNotes(ctx, params.Notes)
	default:
		return failCode(CodeValidation, "unknown manage_notes operation: "+params.Operation)
	}
}

func (s *Server) upsertNotes(ctx context.Context, raw []json.RawMessage) *Envelope {
	upserted := make([]*types.Note, 0, len(raw))
	for _, r := range raw {
		p, err := decodeParams[noteUpsertParams](r)
		if err != nil {
			return failCode(CodeValidation, "invalid note: "+err.Error())
		}

		existing, getErr := s.store.GetNote(ctx, p.ItemID, p.Key)
		now := time.Now()
		note := &types.Note{
			ID:         uuid.NewString(),
			ItemID:     p.ItemID,
			Key:        p.Key,
			Role:       p.Role,
			Body:       p.Body,
			CreatedAt:  now,
			ModifiedAt: now,
		}
		if getErr == nil && existing != nil {
			note.ID = existing.ID
			note.CreatedAt = existing.CreatedAt
		}

		if err := s.store.UpsertNote(ctx, note); err != nil {
			return fail(err)
		}
		upserted = append(upserted, note)
	}
	return ok(upserted)
}

func (s *Server) deleteNotes(ctx context.Context, raw []json.RawMessage) *Envelope {
	var deleted []noteDeleteParams
	for _, r := range raw {
		p, err := decodeParams[noteDeleteParams](r)
		if err != nil {
			return failCode(CodeValidation, "invalid note reference: "+err.Error())
		}
		if err := s.store.DeleteNote(ctx, p.ItemID, p.Key); err != nil {
			return fail(err)
		}
		deleted = append(deleted, p)
	}
	return okMessage("notes deleted", deleted)
}

type queryNotesParams struct {
	Operation string  `json:"operation"`
	ItemID    string  `json:"itemId"`
	Key       string  `json:"key"`
	Role      *string `json:"role"`
}

func (s *Server) handleQueryNotes(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[queryNotesParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}

	switch params.Operation {
	case "get":
		note, err := s.store.GetNote(ctx, params.ItemID, params.Key)
		if err != nil {
			return fail(err)
		}
		return ok(note)

	case "list":
		notes, err := s.store.ListNotes(ctx, params.ItemID, params.Role)
		if err != nil {
			return fail(err)
		}
		return ok(notes)

	default:
		return failCode(CodeValidation, "unknown query_notes operation: "+params.Operation)
	}
}
