package toolserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/jpicklyk/task-orchestrator/internal/config"
	"github.com/jpicklyk/task-orchestrator/internal/schema"
	"github.com/jpicklyk/task-orchestrator/internal/storage/sqlite"
	"github.com/jpicklyk/task-orchestrator/internal/types"
	"github.com/jpicklyk/task-orchestrator/internal/workflow"
)

func newTestServer(t *testing.T, fc *config.FileConfig) *Server {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:", sqlite.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := schema.Load(fc, slog.Default())
	cfg := &config.Config{AutoCascade: true, AutoCascadeMaxDepth: 3,
		CompletionCleanup: config.CompletionCleanupConfig{Enabled: true}}
	handler := workflow.NewHandler(store, svc, cfg, nil)
	return New(store, handler, svc, cfg, nil, slog.Default())
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return data
}

func createItemViaTool(t *testing.T, s *Server, title string, parentID *string) string {
	t.Helper()
	params := map[string]any{
		"operation": "create",
		"items": []map[string]any{
			{"title": title, "parentId": parentID},
		},
	}
	env := s.dispatch(context.Background(), "manage_items", rawJSON(t, params))
	if !env.Success {
		t.Fatalf("create item %q: %v", title, env.Error)
	}
	// Data is []*types.Item but typed as any; re-marshal/unmarshal to read id.
	data, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal created items: %v", err)
	}
	var decoded []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal created items: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID == "" {
		t.Fatalf("expected one created item with an id, got %v", decoded)
	}
	return decoded[0].ID
}

func TestToolsListReturnsThirteenTools(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.dispatch(context.Background(), "tools/list", nil)
	if !env.Success {
		t.Fatalf("tools/list failed: %v", env.Error)
	}
	descs, ok := env.Data.([]ToolDescription)
	if !ok {
		t.Fatalf("data is %T, want []ToolDescription", env.Data)
	}
	if len(descs) != 13 {
		t.Errorf("tool count = %d, want 13", len(descs))
	}
	for _, d := range descs {
		if len(d.Parameters) == 0 {
			t.Errorf("%s: missing parameter schema", d.Name)
			continue
		}
		var schema map[string]any
		if err := json.Unmarshal(d.Parameters, &schema); err != nil {
			t.Errorf("%s: parameter schema is not valid JSON: %v", d.Name, err)
			continue
		}
		if schema["type"] != "object" {
			t.Errorf("%s: parameter schema type = %v, want object", d.Name, schema["type"])
		}
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.dispatch(context.Background(), "not_a_real_tool", nil)
	if env.Success {
		t.Fatal("expected failure for unknown method")
	}
	if env.Error.Code != CodeValidation {
		t.Errorf("code = %s, want VALIDATION_ERROR", env.Error.Code)
	}
}

func TestManageItemsCreateAndQueryGet(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	id := createItemViaTool(t, s, "build the thing", nil)

	env := s.dispatch(ctx, "query_items", rawJSON(t, map[string]any{"operation": "get", "id": id}))
	if !env.Success {
		t.Fatalf("get item: %v", env.Error)
	}
}

func TestManageItemsCreateChildDepth(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	rootID := createItemViaTool(t, s, "root", nil)
	childID := createItemViaTool(t, s, "child", &rootID)

	env := s.dispatch(ctx, "query_items", rawJSON(t, map[string]any{"operation": "overview", "id": rootID}))
	if !env.Success {
		t.Fatalf("overview: %v", env.Error)
	}
	data, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal overview: %v", err)
	}
	var overview struct {
		Children []struct {
			ID    string `json:"id"`
			Depth int    `json:"depth"`
		} `json:"children"`
	}
	if err := json.Unmarshal(data, &overview); err != nil {
		t.Fatalf("unmarshal overview: %v", err)
	}
	if len(overview.Children) != 1 || overview.Children[0].ID != childID || overview.Children[0].Depth != 1 {
		t.Errorf("children = %+v, want one child %s at depth 1", overview.Children, childID)
	}
}

func TestQueryItemsGetNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.dispatch(context.Background(), "query_items", rawJSON(t, map[string]any{"operation": "get", "id": "missing"}))
	if env.Success {
		t.Fatal("expected failure for missing item")
	}
	if env.Error.Code != CodeNotFound {
		t.Errorf("code = %s, want RESOURCE_NOT_FOUND", env.Error.Code)
	}
}

func TestManageItemsDeleteRequiresIDs(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.dispatch(context.Background(), "manage_items", rawJSON(t, map[string]any{"operation": "delete", "ids": []string{}}))
	if env.Success {
		t.Fatal("expected failure deleting with no ids")
	}
	if env.Error.Code != CodeValidation {
		t.Errorf("code = %s, want VALIDATION_ERROR", env.Error.Code)
	}
}

func TestManageNotesUpsertAndQuery(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	id := createItemViaTool(t, s, "item", nil)

	env := s.dispatch(ctx, "manage_notes", rawJSON(t, map[string]any{
		"operation": "upsert",
		"notes": []map[string]any{
			{"itemId": id, "key": "requirements", "role": "queue", "body": "do the thing"},
		},
	}))
	if !env.Success {
		t.Fatalf("upsert note: %v", env.Error)
	}

	env = s.dispatch(ctx, "query_notes", rawJSON(t, map[string]any{"operation": "get", "itemId": id, "key": "requirements"}))
	if !env.Success {
		t.Fatalf("get note: %v", env.Error)
	}
}

func TestManageDependenciesLinearPattern(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	a := createItemViaTool(t, s, "a", nil)
	b := createItemViaTool(t, s, "b", nil)
	c := createItemViaTool(t, s, "c", nil)

	env := s.dispatch(ctx, "manage_dependencies", rawJSON(t, map[string]any{
		"operation": "create",
		"linear":    []string{a, b, c},
	}))
	if !env.Success {
		t.Fatalf("create linear dependencies: %v", env.Error)
	}

	env = s.dispatch(ctx, "query_dependencies", rawJSON(t, map[string]any{"itemId": a, "direction": "from"}))
	if !env.Success {
		t.Fatalf("query dependencies: %v", env.Error)
	}
}

func TestManageDependenciesCreateRejectsCycleAtomically(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	a := createItemViaTool(t, s, "a", nil)
	b := createItemViaTool(t, s, "b", nil)
	c := createItemViaTool(t, s, "c", nil)

	env := s.dispatch(ctx, "manage_dependencies", rawJSON(t, map[string]any{
		"operation": "create",
		"dependencies": []map[string]any{
			{"fromItemId": a, "toItemId": b, "type": "BLOCKS"},
			{"fromItemId": b, "toItemId": c, "type": "BLOCKS"},
			{"fromItemId": c, "toItemId": a, "type": "BLOCKS"},
		},
	}))
	if env.Success {
		t.Fatal("expected the whole batch to fail on a closing cycle")
	}

	env = s.dispatch(ctx, "query_dependencies", rawJSON(t, map[string]any{"itemId": a}))
	if !env.Success {
		t.Fatalf("query dependencies: %v", env.Error)
	}
	data, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal dependencies: %v", err)
	}
	var deps []any
	if err := json.Unmarshal(data, &deps); err != nil {
		t.Fatalf("unmarshal dependencies: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("expected no dependencies to survive the rolled-back batch, got %v", deps)
	}
}

func TestAdvanceItemStartAndGetNextStatus(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	id := createItemViaTool(t, s, "item", nil)

	env := s.dispatch(ctx, "get_next_status", rawJSON(t, map[string]any{"itemId": id, "trigger": "start"}))
	if !env.Success {
		t.Fatalf("get_next_status: %v", env.Error)
	}

	env = s.dispatch(ctx, "advance_item", rawJSON(t, map[string]any{
		"transitions": []map[string]any{{"itemId": id, "trigger": "start"}},
	}))
	if !env.Success {
		t.Fatalf("advance_item: %v", env.Error)
	}
}

func TestAdvanceItemValidationErrorSurfacesMissingNotes(t *testing.T) {
	fc := &config.FileConfig{NoteSchemas: map[string][]config.RawSchemaEntry{
		"feature": {{Key: "requirements", Role: "queue", Required: true, Description: "what to build"}},
	}}
	s := newTestServer(t, fc)
	ctx := context.Background()

	params := map[string]any{
		"operation": "create",
		"items":     []map[string]any{{"title": "gated item", "tags": []string{"feature"}}},
	}
	env := s.dispatch(ctx, "manage_items", rawJSON(t, params))
	if !env.Success {
		t.Fatalf("create item: %v", env.Error)
	}
	data, _ := json.Marshal(env.Data)
	var created []struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(data, &created)
	id := created[0].ID

	env = s.dispatch(ctx, "advance_item", rawJSON(t, map[string]any{
		"transitions": []map[string]any{{"itemId": id, "trigger": "start"}},
	}))
	if env.Success {
		t.Fatal("expected advance to fail on missing required note")
	}
	if env.Error.Code != CodeValidation {
		t.Errorf("code = %s, want VALIDATION_ERROR", env.Error.Code)
	}
	missing, ok := env.Error.Blockers.([]types.NoteSchemaEntry)
	if !ok || len(missing) != 1 || missing[0].Key != "requirements" {
		t.Errorf("blockers = %v, want the missing requirements note", env.Error.Blockers)
	}
}

func TestCreateWorkTreeAtomic(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	env := s.dispatch(ctx, "create_work_tree", rawJSON(t, map[string]any{
		"nodes": []map[string]any{
			{"key": "root", "title": "root item"},
			{"key": "child", "parentKey": "root", "title": "child item"},
		},
		"dependencies": []map[string]any{},
	}))
	if !env.Success {
		t.Fatalf("create_work_tree: %v", env.Error)
	}
}

func TestCreateWorkTreeUnknownParentKeyFails(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.dispatch(context.Background(), "create_work_tree", rawJSON(t, map[string]any{
		"nodes": []map[string]any{
			{"key": "child", "parentKey": "missing-root", "title": "child item"},
		},
	}))
	if env.Success {
		t.Fatal("expected failure referencing an unknown parentKey")
	}
	if env.Error.Code != CodeValidation {
		t.Errorf("code = %s, want VALIDATION_ERROR", env.Error.Code)
	}
}

func TestGetContextSummaryWithNoItemID(t *testing.T) {
	s := newTestServer(t, nil)
	createItemViaTool(t, s, "item", nil)

	env := s.dispatch(context.Background(), "get_context", rawJSON(t, map[string]any{}))
	if !env.Success {
		t.Fatalf("get_context summary: %v", env.Error)
	}
}

func TestGetContextForItem(t *testing.T) {
	s := newTestServer(t, nil)
	id := createItemViaTool(t, s, "item", nil)

	env := s.dispatch(context.Background(), "get_context", rawJSON(t, map[string]any{"itemId": id}))
	if !env.Success {
		t.Fatalf("get_context item: %v", env.Error)
	}
}

func TestCompleteTreeBatchAdvances(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	a := createItemViaTool(t, s, "a", nil)
	b := createItemViaTool(t, s, "b", nil)

	env := s.dispatch(ctx, "complete_tree", rawJSON(t, map[string]any{"itemIds": []string{a, b}}))
	if !env.Success {
		t.Fatalf("complete_tree: %v", env.Error)
	}
}

func TestCompleteTreeDryRunPreviewsWithoutDeleting(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	root := createItemViaTool(t, s, "root", nil)
	child := createItemViaTool(t, s, "child", &root)

	env := s.dispatch(ctx, "complete_tree", rawJSON(t, map[string]any{"itemIds": []string{root}, "dryRun": true}))
	if !env.Success {
		t.Fatalf("complete_tree dry run: %v", env.Error)
	}
	data, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal dry run result: %v", err)
	}
	var previews []struct {
		ItemID      string   `json:"itemId"`
		WouldDelete []string `json:"wouldDelete"`
	}
	if err := json.Unmarshal(data, &previews); err != nil {
		t.Fatalf("unmarshal dry run result: %v", err)
	}
	if len(previews) != 1 || previews[0].ItemID != root {
		t.Fatalf("previews = %v, want one entry for root", previews)
	}
	if len(previews[0].WouldDelete) != 1 || previews[0].WouldDelete[0] != child {
		t.Errorf("wouldDelete = %v, want [%s]", previews[0].WouldDelete, child)
	}

	env = s.dispatch(ctx, "query_items", rawJSON(t, map[string]any{"operation": "get", "id": child}))
	if !env.Success {
		t.Fatalf("expected child to survive a dry run, get failed: %v", env.Error)
	}
}
