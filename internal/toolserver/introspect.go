package toolserver

import "encoding/json"

// ToolDescription is the self-description spec.md §6 requires the server
// publish at startup: name, description, parameter schema, read-only flag,
// idempotency flag. Parameters is a JSON Schema object describing the
// params accepted by the tool's method, hand-authored from the
// decodeParams[T] struct each handler actually unmarshals into so the two
// never drift silently the way a reflection-derived schema might hide a
// forgotten json tag.
type ToolDescription struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	ReadOnly    bool            `json:"readOnly"`
	Idempotent  bool            `json:"idempotent"`
}

func schemaOf(raw string) json.RawMessage {
	return json.RawMessage(raw)
}

func toolDescriptions() []ToolDescription {
	return []ToolDescription{
		{Name: "manage_items", Description: "Create, update, or delete work items", ReadOnly: false, Idempotent: false,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["operation"],
				"properties": {
					"operation": {"type": "string", "enum": ["create", "update", "delete"]},
					"items": {"type": "array", "items": {"type": "object",
						"properties": {
							"id": {"type": "string"},
							"title": {"type": "string"},
							"summary": {"type": "string"},
							"tags": {"type": "array", "items": {"type": "string"}},
							"priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
							"parentId": {"type": ["string", "null"]},
							"templateIds": {"type": "array", "items": {"type": "string"}}
						}}},
					"ids": {"type": "array", "items": {"type": "string"}}
				}
			}`)},
		{Name: "query_items", Description: "Get, search, or view an overview of work items", ReadOnly: true, Idempotent: true,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["operation"],
				"properties": {
					"operation": {"type": "string", "enum": ["get", "search", "overview", "export"]},
					"id": {"type": "string"},
					"tagSubstring": {"type": "string"},
					"role": {"type": "string", "enum": ["QUEUE", "WORK", "REVIEW", "TERMINAL", "BLOCKED"]},
					"priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
					"parentId": {"type": "string"},
					"depth": {"type": "integer"},
					"titleContains": {"type": "string"}
				}
			}`)},
		{Name: "manage_notes", Description: "Upsert or delete notes on a work item", ReadOnly: false, Idempotent: false,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["operation", "notes"],
				"properties": {
					"operation": {"type": "string", "enum": ["upsert", "delete"]},
					"notes": {"type": "array", "items": {"type": "object",
						"required": ["itemId", "key"],
						"properties": {
							"itemId": {"type": "string"},
							"key": {"type": "string"},
							"role": {"type": "string", "enum": ["queue", "work", "review"]},
							"body": {"type": "string"}
						}}}
				}
			}`)},
		{Name: "query_notes", Description: "Get or list notes on a work item", ReadOnly: true, Idempotent: true,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["operation", "itemId"],
				"properties": {
					"operation": {"type": "string", "enum": ["get", "list"]},
					"itemId": {"type": "string"},
					"key": {"type": "string"},
					"role": {"type": "string", "enum": ["queue", "work", "review"]}
				}
			}`)},
		{Name: "manage_dependencies", Description: "Create or delete dependency edges", ReadOnly: false, Idempotent: false,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["operation"],
				"properties": {
					"operation": {"type": "string", "enum": ["create", "delete"]},
					"dependencies": {"type": "array", "items": {"type": "object",
						"required": ["fromItemId", "toItemId", "type"],
						"properties": {
							"fromItemId": {"type": "string"},
							"toItemId": {"type": "string"},
							"type": {"type": "string", "enum": ["BLOCKS", "IS_BLOCKED_BY", "RELATES_TO"]},
							"unblockAt": {"type": "string", "enum": ["QUEUE", "WORK", "REVIEW", "TERMINAL"]}
						}}},
					"linear": {"type": "array", "items": {"type": "string"}},
					"fan-out": {"type": "object", "properties": {
						"source": {"type": "string"}, "targets": {"type": "array", "items": {"type": "string"}}}},
					"fan-in": {"type": "object", "properties": {
						"sources": {"type": "array", "items": {"type": "string"}}, "target": {"type": "string"}}},
					"id": {"type": "string"},
					"from": {"type": "string"},
					"to": {"type": "string"},
					"type": {"type": "string", "enum": ["BLOCKS", "IS_BLOCKED_BY", "RELATES_TO"]},
					"deleteAll": {"type": "string"}
				}
			}`)},
		{Name: "query_dependencies", Description: "List dependency edges for an item", ReadOnly: true, Idempotent: true,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["itemId"],
				"properties": {
					"itemId": {"type": "string"},
					"direction": {"type": "string", "enum": ["from", "to"]},
					"type": {"type": "string", "enum": ["BLOCKS", "IS_BLOCKED_BY", "RELATES_TO"]},
					"graph": {"type": "boolean"}
				}
			}`)},
		{Name: "advance_item", Description: "Advance one or more items through a role transition", ReadOnly: false, Idempotent: false,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["transitions"],
				"properties": {
					"transitions": {"type": "array", "items": {"type": "object",
						"required": ["itemId", "trigger"],
						"properties": {
							"itemId": {"type": "string"},
							"trigger": {"type": "string", "enum": ["start", "complete", "block", "hold", "resume", "cancel"]},
							"summary": {"type": "string"}
						}}}
				}
			}`)},
		{Name: "get_next_item", Description: "Recommend the next unblocked, non-terminal item to work on", ReadOnly: true, Idempotent: true,
			Parameters: schemaOf(`{
				"type": "object",
				"properties": {
					"parentId": {"type": "string"}
				}
			}`)},
		{Name: "get_blocked_items", Description: "List items with unsatisfied blocking dependencies", ReadOnly: true, Idempotent: true,
			Parameters: schemaOf(`{"type": "object", "properties": {}}`)},
		{Name: "get_next_status", Description: "Dry-run a trigger's resolution and validation without applying it", ReadOnly: true, Idempotent: true,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["itemId", "trigger"],
				"properties": {
					"itemId": {"type": "string"},
					"trigger": {"type": "string", "enum": ["start", "complete", "block", "hold", "resume", "cancel"]}
				}
			}`)},
		{Name: "create_work_tree", Description: "Atomically create a root item, its children, dependencies, and initial notes", ReadOnly: false, Idempotent: false,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["nodes"],
				"properties": {
					"nodes": {"type": "array", "items": {"type": "object",
						"required": ["key", "title"],
						"properties": {
							"key": {"type": "string"},
							"parentKey": {"type": ["string", "null"]},
							"title": {"type": "string"},
							"summary": {"type": "string"},
							"tags": {"type": "array", "items": {"type": "string"}},
							"priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
							"notes": {"type": "array", "items": {"type": "object",
								"properties": {
									"itemId": {"type": "string"},
									"key": {"type": "string"},
									"role": {"type": "string", "enum": ["queue", "work", "review"]},
									"body": {"type": "string"}
								}}}
						}}},
					"dependencies": {"type": "array", "items": {"type": "object",
						"required": ["fromKey", "toKey", "type"],
						"properties": {
							"fromKey": {"type": "string"},
							"toKey": {"type": "string"},
							"type": {"type": "string", "enum": ["BLOCKS", "IS_BLOCKED_BY", "RELATES_TO"]},
							"unblockAt": {"type": "string", "enum": ["QUEUE", "WORK", "REVIEW", "TERMINAL"]}
						}}}
				}
			}`)},
		{Name: "complete_tree", Description: "Batch-advance a set of items to TERMINAL with cascade, or preview completion cleanup without applying it", ReadOnly: false, Idempotent: false,
			Parameters: schemaOf(`{
				"type": "object",
				"required": ["itemIds"],
				"properties": {
					"itemIds": {"type": "array", "items": {"type": "string"}},
					"summary": {"type": "string"},
					"dryRun": {"type": "boolean", "description": "preview completion cleanup's retainTags-filtered selection per item without advancing or deleting anything"}
				}
			}`)},
		{Name: "get_context", Description: "Describe an item's active schema, expected notes, and gate status", ReadOnly: true, Idempotent: true,
			Parameters: schemaOf(`{
				"type": "object",
				"properties": {
					"itemId": {"type": ["string", "null"]}
				}
			}`)},
	}
}
