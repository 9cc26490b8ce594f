package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

func newItem(id, title string) *types.Item {
	now := time.Now()
	return &types.Item{
		ID: id, Title: title, Priority: types.PriorityMedium, Role: types.RoleQueue,
		CreatedAt: now, ModifiedAt: now, RoleChangedAt: now,
	}
}

func TestCreateAndGetItem(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	item := newItem("i1", "do the thing")
	item.Tags = []string{"feature-implementation", "backend"}
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}

	got, err := store.GetItem(ctx, "i1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Title != item.Title {
		t.Errorf("title = %q, want %q", got.Title, item.Title)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "feature-implementation" || got.Tags[1] != "backend" {
		t.Errorf("tags = %v, want ordered [feature-implementation backend]", got.Tags)
	}
}

func TestGetItemNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetItem(context.Background(), "missing")
	var de *storage.Error
	if err == nil {
		t.Fatal("expected error for missing item")
	}
	if !asDomainError(err, &de) || de.Kind != storage.KindNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func asDomainError(err error, target **storage.Error) bool {
	de, ok := err.(*storage.Error)
	if !ok {
		return false
	}
	*target = de
	return true
}

func TestCreateItemDepthMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	parent := newItem("p1", "parent")
	if err := store.CreateItem(ctx, parent); err != nil {
		t.Fatalf("create parent: %v", err)
	}

	child := newItem("c1", "child")
	child.ParentID = &parent.ID
	child.Depth = 2 // wrong: should be 1
	err := store.CreateItem(ctx, child)
	if err == nil {
		t.Fatal("expected depth mismatch error")
	}
}

func TestChildRoleCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	parent := newItem("p1", "parent")
	if err := store.CreateItem(ctx, parent); err != nil {
		t.Fatalf("create parent: %v", err)
	}
	for i, id := range []string{"c1", "c2", "c3"} {
		child := newItem(id, "child")
		child.ParentID = &parent.ID
		child.Depth = 1
		if i < 2 {
			child.Role = types.RoleTerminal
		}
		if err := store.CreateItem(ctx, child); err != nil {
			t.Fatalf("create child %s: %v", id, err)
		}
	}

	counts, err := store.ChildRoleCounts(ctx, "p1")
	if err != nil {
		t.Fatalf("child role counts: %v", err)
	}
	if counts[types.RoleTerminal] != 2 {
		t.Errorf("terminal count = %d, want 2", counts[types.RoleTerminal])
	}
	if counts[types.RoleQueue] != 1 {
		t.Errorf("queue count = %d, want 1", counts[types.RoleQueue])
	}
}

func TestDeleteItemCascadesNotes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	item := newItem("i1", "x")
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	note := &types.Note{ID: "n1", ItemID: "i1", Key: "requirements", Role: "queue", Body: "body",
		CreatedAt: time.Now(), ModifiedAt: time.Now()}
	if err := store.UpsertNote(ctx, note); err != nil {
		t.Fatalf("upsert note: %v", err)
	}

	if err := store.DeleteItem(ctx, "i1"); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if _, err := store.GetNote(ctx, "i1", "requirements"); err == nil {
		t.Error("expected note to be cascade-deleted with its item")
	}
}
