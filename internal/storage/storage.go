package storage

import (
	"context"
	"time"

	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// ItemFilter narrows an item search. A nil field means "no filter on this
// attribute", mirroring the teacher's types.IssueFilter pointer-field idiom.
type ItemFilter struct {
	TagSubstring   *string
	Role           *types.Role
	Priority       *types.Priority
	ParentID       *string
	Depth          *int
	TitleContains  *string
}

// ItemStore is the repository contract for work items.
type ItemStore interface {
	CreateItem(ctx context.Context, item *types.Item) error
	GetItem(ctx context.Context, id string) (*types.Item, error)
	UpdateItem(ctx context.Context, item *types.Item) error
	DeleteItem(ctx context.Context, id string) error
	DeleteItems(ctx context.Context, ids []string) error
	SearchItems(ctx context.Context, filter ItemFilter) ([]*types.Item, error)
	ChildItems(ctx context.Context, parentID string) ([]*types.Item, error)
	ChildRoleCounts(ctx context.Context, parentID string) (map[types.Role]int, error)
	Ancestors(ctx context.Context, id string) ([]*types.Item, error)
}

// NoteStore is the repository contract for notes.
type NoteStore interface {
	UpsertNote(ctx context.Context, note *types.Note) error
	DeleteNote(ctx context.Context, itemID, key string) error
	DeleteNotesForItem(ctx context.Context, itemID string) error
	GetNote(ctx context.Context, itemID, key string) (*types.Note, error)
	ListNotes(ctx context.Context, itemID string, role *string) ([]*types.Note, error)
}

// DependencyStore is the repository contract for dependency edges.
type DependencyStore interface {
	CreateDependency(ctx context.Context, dep *types.Dependency) error
	DeleteDependency(ctx context.Context, id string) error
	DeleteDependenciesBetween(ctx context.Context, from, to string, depType *types.DependencyType) error
	DeleteDependenciesForItem(ctx context.Context, itemID string) error
	DependenciesFrom(ctx context.Context, itemID string) ([]*types.Dependency, error)
	DependenciesTo(ctx context.Context, itemID string) ([]*types.Dependency, error)
	DependenciesForItem(ctx context.Context, itemID string) ([]*types.Dependency, error)
	WouldCreateCycle(ctx context.Context, from, to string) (bool, error)
}

// TransitionStore is the repository contract for the role-transition audit
// log.
type TransitionStore interface {
	AppendTransition(ctx context.Context, t *types.RoleTransition) error
	TransitionsForItem(ctx context.Context, itemID string) ([]*types.RoleTransition, error)
	TransitionsSince(ctx context.Context, since time.Time) ([]*types.RoleTransition, error)
	TransitionsInRange(ctx context.Context, from, to time.Time) ([]*types.RoleTransition, error)
}

// Store is the full persistence surface the domain layer depends on.
type Store interface {
	ItemStore
	NoteStore
	DependencyStore
	TransitionStore

	// WithTx runs fn inside a single serializable transaction, exposing a
	// Store scoped to that transaction (see sqlite.Store.WithTx).
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Close() error
}
