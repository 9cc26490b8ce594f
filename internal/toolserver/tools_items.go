package toolserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// itemCreateParams is one entry of manage_items(create, items[]). templateIds
// is accepted and ignored, per spec.md §6.
type itemCreateParams struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	Priority    string   `json:"priority"`
	ParentID    *string  `json:"parentId"`
	TemplateIDs []string `json:"templateIds"`
}

// itemUpdateParams is one entry of manage_items(update, items[]). Only
// non-nil fields are applied; role is never settable here.
type itemUpdateParams struct {
	ID       string    `json:"id"`
	Title    *string   `json:"title"`
	Summary  *string   `json:"summary"`
	Tags     *[]string `json:"tags"`
	Priority *string   `json:"priority"`
	ParentID *string   `json:"parentId"`
}

type manageItemsParams struct {
	Operation string              `json:"operation"`
	Items     []json.RawMessage   `json:"items"`
	IDs       []string            `json:"ids"`
}

func (s *Server) handleManageItems(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[manageItemsParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}

	switch params.Operation {
	case "create":
		return s.createItems(ctx, params.Items)
	case "update":
		return s.updateItems(ctx, params.Items)
	case "delete":
		return s.deleteItems(ctx, params.IDs)
	default:
		return failCode(CodeValidation, "unknown manage_items operation: "+params.Operation)
	}
}

func (s *Server) createItems(ctx context.Context, raw []json.RawMessage) *Envelope {
	created := make([]*types.Item, 0, len(raw))
	for _, r := range raw {
		p, err := decodeParams[itemCreateParams](r)
		if err != nil {
			return failCode(CodeValidation, "invalid item: "+err.Error())
		}

		priority := types.Priority(p.Priority)
		if priority == "" {
			priority = types.PriorityMedium
		}
		depth := 0
		if p.ParentID != nil {
			parent, err := s.store.GetItem(ctx, *p.ParentID)
			if err != nil {
				return fail(err)
			}
			depth = parent.Depth + 1
		}

		now := time.Now()
		item := &types.Item{
			ID:            uuid.NewString(),
			Title:         p.Title,
			Summary:       p.Summary,
			Tags:          p.Tags,
			Priority:      priority,
			ParentID:      p.ParentID,
			Depth:         depth,
			Role:          types.RoleQueue,
			CreatedAt:     now,
			ModifiedAt:    now,
			RoleChangedAt: now,
		}
		if err := s.store.CreateItem(ctx, item); err != nil {
			return fail(err)
		}
		created = append(created, item)
	}
	return ok(created)
}

func (s *Server) updateItems(ctx context.Context, raw []json.RawMessage) *Envelope {
	updated := make([]*types.Item, 0, len(raw))
	for _, r := range raw {
		p, err := decodeParams[itemUpdateParams](r)
		if err != nil {
			return failCode(CodeValidation, "invalid item: "+err.Error())
		}
		if p.ID == "" {
			return failCode(CodeValidation, "update requires an item id")
		}

		item, err := s.store.GetItem(ctx, p.ID)
		if err != nil {
			return fail(err)
		}
		if p.Title != nil {
			item.Title = *p.Title
		}
		if p.Summary != nil {
			item.Summary = *p.Summary
		}
		if p.Tags != nil {
			item.Tags = *p.Tags
		}
		if p.Priority != nil {
			item.Priority = types.Priority(*p.Priority)
		}
		if p.ParentID != nil {
			parent, err := s.store.GetItem(ctx, *p.ParentID)
			if err != nil {
				return fail(err)
			}
			item.ParentID = p.ParentID
			item.Depth = parent.Depth + 1
		}
		item.ModifiedAt = time.Now()

		if err := s.store.UpdateItem(ctx, item); err != nil {
			return fail(err)
		}
		updated = append(updated, item)
	}
	return ok(updated)
}

func (s *Server) deleteItems(ctx context.Context, ids []string) *Envelope {
	if len(ids) == 0 {
		return failCode(CodeValidation, "delete requires at least one id")
	}
	if err := s.store.DeleteItems(ctx, ids); err != nil {
		return fail(err)
	}
	return okMessage("items deleted", map[string]any{"ids": ids})
}

type queryItemsParams struct {
	Operation     string  `json:"operation"`
	ID            string  `json:"id"`
	TagSubstring  *string `json:"tagSubstring"`
	Role          *string `json:"role"`
	Priority      *string `json:"priority"`
	ParentID      *string `json:"parentId"`
	Depth         *int    `json:"depth"`
	TitleContains *string `json:"titleContains"`
}

func (s *Server) handleQueryItems(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[queryItemsParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}

	switch params.Operation {
	case "get":
		item, err := s.store.GetItem(ctx, params.ID)
		if err != nil {
			return fail(err)
		}
		return ok(item)

	case "search":
		filter := storage.ItemFilter{
			TagSubstring:  params.TagSubstring,
			Priority:      priorityFilter(params.Priority),
			ParentID:      params.ParentID,
			Depth:         params.Depth,
			TitleContains: params.TitleContains,
		}
		if params.Role != nil {
			r := types.Role(*params.Role)
			filter.Role = &r
		}
		items, err := s.store.SearchItems(ctx, filter)
		if err != nil {
			return fail(err)
		}
		return ok(items)

	case "overview":
		return s.itemOverview(ctx, params.ID)

	case "export":
		items, err := s.store.SearchItems(ctx, storage.ItemFilter{})
		if err != nil {
			return fail(err)
		}
		return ok(items)

	default:
		return failCode(CodeValidation, "unknown query_items operation: "+params.Operation)
	}
}

func priorityFilter(p *string) *types.Priority {
	if p == nil {
		return nil
	}
	pr := types.Priority(*p)
	return &pr
}

type itemOverview struct {
	Item           *types.Item       `json:"item"`
	Ancestors      []*types.Item     `json:"ancestors"`
	Children       []*types.Item     `json:"children"`
	ChildRoleCounts map[string]int   `json:"childRoleCounts"`
}

func (s *Server) itemOverview(ctx context.Context, id string) *Envelope {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return fail(err)
	}
	ancestors, err := s.store.Ancestors(ctx, id)
	if err != nil {
		return fail(err)
	}
	children, err := s.store.ChildItems(ctx, id)
	if err != nil {
		return fail(err)
	}
	counts, err := s.store.ChildRoleCounts(ctx, id)
	if err != nil {
		return fail(err)
	}
	strCounts := make(map[string]int, len(counts))
	for role, n := range counts {
		strCounts[string(role)] = n
	}
	return ok(itemOverview{Item: item, Ancestors: ancestors, Children: children, ChildRoleCounts: strCounts})
}
