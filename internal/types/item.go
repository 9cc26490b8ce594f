package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxDepth is the deepest a work item tree may go (root = depth 0).
const MaxDepth = 3

// Item is a node of trackable work in the orchestration tree.
type Item struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Summary           string     `json:"summary"`
	Tags              []string   `json:"tags"`
	Priority          Priority   `json:"priority"`
	ParentID          *string    `json:"parentId"`
	Depth             int        `json:"depth"`
	Role              Role       `json:"role"`
	PreviousRole      *Role      `json:"previousRole"`
	StatusLabel       *string    `json:"statusLabel"`
	CreatedAt         time.Time  `json:"createdAt"`
	ModifiedAt        time.Time  `json:"modifiedAt"`
	RoleChangedAt     time.Time  `json:"roleChangedAt"`
	SummaryOnComplete *string    `json:"summaryOnComplete"`
}

// Validate checks the invariants that can be verified without a database
// round trip (depth bound and previousRole/role coupling are checked here;
// parent resolution and cycle-freedom require the repository).
func (it *Item) Validate() error {
	if strings.TrimSpace(it.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if it.Depth < 0 || it.Depth > MaxDepth {
		return fmt.Errorf("depth %d exceeds maximum of %d", it.Depth, MaxDepth)
	}
	if !it.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q", it.Priority)
	}
	if !it.Role.IsValid() {
		return fmt.Errorf("invalid role %q", it.Role)
	}
	if it.Role == RoleBlocked {
		if it.PreviousRole == nil || !isResumable(*it.PreviousRole) {
			return fmt.Errorf("role BLOCKED requires previousRole in {QUEUE,WORK,REVIEW}")
		}
	} else if it.PreviousRole != nil {
		return fmt.Errorf("previousRole must be null when role is not BLOCKED")
	}
	seen := make(map[string]bool, len(it.Tags))
	for _, tag := range it.Tags {
		if seen[tag] {
			return fmt.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}
	return nil
}

func isResumable(r Role) bool {
	return r == RoleQueue || r == RoleWork || r == RoleReview
}

// Note is a keyed piece of text attached to a work item, validated against a
// schema entry for the same key/role.
type Note struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	Key        string    `json:"key"`
	Role       string    `json:"role"` // "queue" | "work" | "review"
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

var kebabCase = func(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' && i != 0 && i != len(s)-1:
		default:
			return false
		}
	}
	return true
}

// Validate checks note-local invariants (key shape, non-empty body semantics
// are left to the caller since empty bodies are permitted to exist but never
// satisfy a required-note gate).
func (n *Note) Validate() error {
	if !kebabCase(n.Key) {
		return fmt.Errorf("note key %q must be kebab-case", n.Key)
	}
	switch n.Role {
	case "queue", "work", "review":
	default:
		return fmt.Errorf("invalid note role %q", n.Role)
	}
	return nil
}

// Dependency is a directed edge between two work items.
type Dependency struct {
	ID         string         `json:"id"`
	FromItemID string         `json:"fromItemId"`
	ToItemID   string         `json:"toItemId"`
	Type       DependencyType `json:"type"`
	UnblockAt  *Role          `json:"unblockAt"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Validate checks dependency-local invariants (self-loop and type validity;
// uniqueness and cycle-freedom require the repository).
func (d *Dependency) Validate() error {
	if !d.Type.IsValid() {
		return fmt.Errorf("invalid dependency type %q", d.Type)
	}
	if d.FromItemID == d.ToItemID {
		return fmt.Errorf("an item cannot depend on itself")
	}
	if d.UnblockAt != nil && !d.UnblockAt.IsValid() {
		return fmt.Errorf("invalid unblockAt role %q", *d.UnblockAt)
	}
	return nil
}

// Threshold returns the role a blocker must reach for this dependency to be
// considered satisfied: UnblockAt if set, else TERMINAL.
func (d *Dependency) Threshold() Role {
	if d.UnblockAt != nil {
		return *d.UnblockAt
	}
	return RoleTerminal
}

// BlockerItemID returns the ID of the item that must progress for this
// dependency to be satisfied. For IS_BLOCKED_BY the direction is inverted:
// the blocker is ToItemID rather than FromItemID.
func (d *Dependency) BlockerItemID() string {
	if d.Type == DepIsBlockedBy {
		return d.ToItemID
	}
	return d.FromItemID
}

// DependentItemID returns the ID of the item gated by this dependency: the
// inverse end of BlockerItemID.
func (d *Dependency) DependentItemID() string {
	if d.Type == DepIsBlockedBy {
		return d.FromItemID
	}
	return d.ToItemID
}

// RoleTransition is an append-only audit record of a successful role change.
type RoleTransition struct {
	ID              string    `json:"id"`
	ItemID          string    `json:"itemId"`
	FromRole        Role      `json:"fromRole"`
	ToRole          Role      `json:"toRole"`
	FromStatusLabel *string   `json:"fromStatusLabel"`
	ToStatusLabel   *string   `json:"toStatusLabel"`
	Trigger         Trigger   `json:"trigger"`
	Summary         *string   `json:"summary"`
	TransitionedAt  time.Time `json:"transitionedAt"`
}

// NoteSchemaEntry describes one expected note for items matching a tag.
type NoteSchemaEntry struct {
	Key         string `json:"key"`
	Role        string `json:"role"` // "queue" | "work" | "review"
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Guidance    string `json:"guidance,omitempty"`
}
