// Package migrations holds the ordered, numbered schema migrations for the
// work-item store. Each migration is a single forward-only SQL script;
// downgrade is unsupported (spec.md §4.1). This generalizes the teacher's
// internal/storage/dolt/migrations.go named-and-ordered Migration slice,
// tracked here in a schema_migrations bookkeeping table instead of
// re-derived from information_schema on every startup.
package migrations

// Migration is one forward-only, numbered schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// All is the ordered list of migrations applied at startup, in ascending
// Version order. New migrations are appended; existing ones are never
// edited once released, matching the teacher's append-only convention for
// internal/storage/sqlite/migrations/0NN_*.go.
var All = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL:     schemaV1,
	},
}

// schemaV1 creates the core tables. Shape grounded on
// other_examples/...yashwanth-reddy909-beads__internal-storage-sqlite-
// schema.go.go (issues/dependencies/labels/events table layout, indices,
// and the ready/blocked views) generalized to this domain's role model.
const schemaV1 = `
CREATE TABLE work_items (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL CHECK(length(title) > 0),
	summary TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('low','medium','high','critical')),
	parent_id TEXT REFERENCES work_items(id) ON DELETE RESTRICT,
	depth INTEGER NOT NULL DEFAULT 0 CHECK(depth BETWEEN 0 AND 3),
	role TEXT NOT NULL DEFAULT 'QUEUE' CHECK(role IN ('QUEUE','WORK','REVIEW','TERMINAL','BLOCKED')),
	previous_role TEXT CHECK(previous_role IN ('QUEUE','WORK','REVIEW') OR previous_role IS NULL),
	status_label TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	modified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	role_changed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	summary_on_complete TEXT,
	CHECK ((role = 'BLOCKED') = (previous_role IS NOT NULL))
);

CREATE INDEX idx_work_items_parent ON work_items(parent_id);
CREATE INDEX idx_work_items_role ON work_items(role);
CREATE INDEX idx_work_items_priority_created ON work_items(priority, created_at);
CREATE INDEX idx_work_items_depth ON work_items(depth);

CREATE TABLE item_tags (
	item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (item_id, tag)
);

CREATE INDEX idx_item_tags_tag ON item_tags(tag);
CREATE INDEX idx_item_tags_item_position ON item_tags(item_id, position);

CREATE TABLE notes (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	key TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('queue','work','review')),
	body TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	modified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(item_id, key)
);

CREATE INDEX idx_notes_item ON notes(item_id);

CREATE TABLE dependencies (
	id TEXT PRIMARY KEY,
	from_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	to_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	type TEXT NOT NULL CHECK(type IN ('BLOCKS','IS_BLOCKED_BY','RELATES_TO')),
	unblock_at TEXT CHECK(unblock_at IN ('QUEUE','WORK','REVIEW','TERMINAL') OR unblock_at IS NULL),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(from_item_id, to_item_id, type),
	CHECK (from_item_id != to_item_id)
);

CREATE INDEX idx_dependencies_from ON dependencies(from_item_id);
CREATE INDEX idx_dependencies_to ON dependencies(to_item_id);

-- item_id intentionally carries no foreign key: the audit trail is
-- append-only and must survive deletion of the item it describes
-- (spec.md §8 scenario 6 — role_transitions are not cascade-deleted).
CREATE TABLE role_transitions (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	from_role TEXT NOT NULL,
	to_role TEXT NOT NULL,
	from_status_label TEXT,
	to_status_label TEXT,
	trigger TEXT NOT NULL,
	summary TEXT,
	transitioned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_role_transitions_item ON role_transitions(item_id);
CREATE INDEX idx_role_transitions_time ON role_transitions(transitioned_at);
`
