package toolserver

import (
	"context"
	"encoding/json"
)

// dispatch routes one JSON-RPC method to its handler, mirroring the
// teacher's handleRequest switch in internal/rpc/server.go.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) *Envelope {
	switch method {
	case "tools/list":
		return ok(toolDescriptions())
	case "manage_items":
		return s.handleManageItems(ctx, params)
	case "query_items":
		return s.handleQueryItems(ctx, params)
	case "manage_notes":
		return s.handleManageNotes(ctx, params)
	case "query_notes":
		return s.handleQueryNotes(ctx, params)
	case "manage_dependencies":
		return s.handleManageDependencies(ctx, params)
	case "query_dependencies":
		return s.handleQueryDependencies(ctx, params)
	case "advance_item":
		return s.handleAdvanceItem(ctx, params)
	case "get_next_item":
		return s.handleGetNextItem(ctx, params)
	case "get_blocked_items":
		return s.handleGetBlockedItems(ctx, params)
	case "get_next_status":
		return s.handleGetNextStatus(ctx, params)
	case "create_work_tree":
		return s.handleCreateWorkTree(ctx, params)
	case "complete_tree":
		return s.handleCompleteTree(ctx, params)
	case "get_context":
		return s.handleGetContext(ctx, params)
	default:
		return failCode(CodeValidation, "unknown tool: "+method)
	}
}

func decodeParams[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	err := json.Unmarshal(params, &v)
	return v, err
}
