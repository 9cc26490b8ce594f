package workflow

import (
	"context"
	"testing"

	"github.com/jpicklyk/task-orchestrator/internal/config"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

func TestCompletionCleanupDeletesDirectChildrenOnly(t *testing.T) {
	ctx := context.Background()
	store := newValidateTestStore(t)

	root := createValidateItem(t, store, "root", types.RoleTerminal, nil)
	child := createValidateItem(t, store, "child", types.RoleTerminal, nil)
	child.ParentID = &root.ID
	child.Depth = 1
	if err := store.UpdateItem(ctx, child); err != nil {
		t.Fatalf("update child: %v", err)
	}
	grandchild := createValidateItem(t, store, "grandchild", types.RoleTerminal, nil)
	grandchild.ParentID = &child.ID
	grandchild.Depth = 2
	if err := store.UpdateItem(ctx, grandchild); err != nil {
		t.Fatalf("update grandchild: %v", err)
	}

	deleted, err := CompletionCleanup(ctx, store, "root", config.CompletionCleanupConfig{Enabled: true})
	if err != nil {
		t.Fatalf("completion cleanup: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "child" {
		t.Errorf("deleted = %v, want only [child]", deleted)
	}
	if _, err := store.GetItem(ctx, "grandchild"); err != nil {
		t.Errorf("expected grandchild to survive direct-children-only cleanup: %v", err)
	}
}

func TestCompletionCleanupRetainsTaggedChildren(t *testing.T) {
	ctx := context.Background()
	store := newValidateTestStore(t)

	root := createValidateItem(t, store, "root", types.RoleTerminal, nil)
	keep := createValidateItem(t, store, "keep", types.RoleTerminal, []string{"bug"})
	keep.ParentID = &root.ID
	keep.Depth = 1
	if err := store.UpdateItem(ctx, keep); err != nil {
		t.Fatalf("update keep: %v", err)
	}
	drop := createValidateItem(t, store, "drop", types.RoleTerminal, nil)
	drop.ParentID = &root.ID
	drop.Depth = 1
	if err := store.UpdateItem(ctx, drop); err != nil {
		t.Fatalf("update drop: %v", err)
	}

	deleted, err := CompletionCleanup(ctx, store, "root", config.CompletionCleanupConfig{Enabled: true})
	if err != nil {
		t.Fatalf("completion cleanup: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "drop" {
		t.Errorf("deleted = %v, want only [drop]", deleted)
	}
	if _, err := store.GetItem(ctx, "keep"); err != nil {
		t.Errorf("expected retained-tag child to survive cleanup: %v", err)
	}
}

func TestCompletionCleanupDisabledSkipsEntirely(t *testing.T) {
	ctx := context.Background()
	store := newValidateTestStore(t)

	root := createValidateItem(t, store, "root", types.RoleTerminal, nil)
	child := createValidateItem(t, store, "child", types.RoleTerminal, nil)
	child.ParentID = &root.ID
	child.Depth = 1
	if err := store.UpdateItem(ctx, child); err != nil {
		t.Fatalf("update child: %v", err)
	}

	deleted, err := CompletionCleanup(ctx, store, "root", config.CompletionCleanupConfig{Enabled: false})
	if err != nil {
		t.Fatalf("completion cleanup: %v", err)
	}
	if len(deleted) != 0 {
		t.Errorf("deleted = %v, want none when cleanup disabled", deleted)
	}
	if _, err := store.GetItem(ctx, "child"); err != nil {
		t.Errorf("expected child to survive disabled cleanup: %v", err)
	}
}

func TestCompletionCleanupCustomRetainTags(t *testing.T) {
	ctx := context.Background()
	store := newValidateTestStore(t)

	root := createValidateItem(t, store, "root", types.RoleTerminal, nil)
	keep := createValidateItem(t, store, "keep", types.RoleTerminal, []string{"spike"})
	keep.ParentID = &root.ID
	keep.Depth = 1
	if err := store.UpdateItem(ctx, keep); err != nil {
		t.Fatalf("update keep: %v", err)
	}

	deleted, err := CompletionCleanup(ctx, store, "root",
		config.CompletionCleanupConfig{Enabled: true, RetainTags: []string{"spike"}})
	if err != nil {
		t.Fatalf("completion cleanup: %v", err)
	}
	if len(deleted) != 0 {
		t.Errorf("deleted = %v, want none with custom retain tag matching", deleted)
	}
}
