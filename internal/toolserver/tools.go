package toolserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// toolDef describes one callable tool. Schema is a JSON Schema for the
// call arguments; it is both published by tools/list and enforced before
// dispatch.
type toolDef struct {
	Name        string
	Description string
	Schema      string
}

const (
	statusEnum   = `["pending", "in_progress", "completed"]`
	priorityEnum = `["low", "medium", "high", "critical"]`
)

var catalog = []toolDef{
	{
		Name:        "list_todos",
		Description: "List todos with optional filtering by status and priority",
		Schema: `{
  "type": "object",
  "properties": {
    "status": {"type": "string", "enum": ` + statusEnum + `, "description": "Filter todos by status"},
    "priority": {"type": "string", "enum": ` + priorityEnum + `, "description": "Filter todos by priority"},
    "limit": {"type": "integer", "default": 50, "minimum": 1, "maximum": 100, "description": "Maximum number of todos to return"}
  }
}`,
	},
	{
		Name:        "get_todo",
		Description: "Get a specific todo by ID",
		Schema: `{
  "type": "object",
  "properties": {
    "todo_id": {"type": "integer", "minimum": 1, "description": "The ID of the todo to retrieve"}
  },
  "required": ["todo_id"]
}`,
	},
	{
		Name:        "create_todo",
		Description: "Create a new todo item",
		Schema: `{
  "type": "object",
  "properties": {
    "title": {"type": "string", "description": "The title of the todo item"},
    "description": {"type": "string", "description": "Optional description of the todo item"},
    "status": {"type": "string", "enum": ` + statusEnum + `, "default": "pending", "description": "The status of the todo"},
    "priority": {"type": "string", "enum": ` + priorityEnum + `, "default": "medium", "description": "The priority level of the todo"},
    "due_date": {"type": "string", "description": "Optional due date, e.g. 2077-12-31T23:59:00Z or 2077-12-31 23:59"},
    "user_id": {"type": "integer", "minimum": 1, "description": "The ID of the user who owns this todo"}
  },
  "required": ["title", "user_id"]
}`,
	},
	{
		Name:        "update_todo",
		Description: "Update an existing todo item",
		Schema: `{
  "type": "object",
  "properties": {
    "todo_id": {"type": "integer", "minimum": 1, "description": "The ID of the todo to update"},
    "title": {"type": "string", "description": "New title for the todo"},
    "description": {"type": "string", "description": "New description for the todo"},
    "status": {"type": "string", "enum": ` + statusEnum + `, "description": "New status for the todo"},
    "priority": {"type": "string", "enum": ` + priorityEnum + `, "description": "New priority for the todo"},
    "due_date": {"type": "string", "description": "New due date (use empty string to clear)"}
  },
  "required": ["todo_id"]
}`,
	},
	{
		Name:        "delete_todo",
		Description: "Delete a todo item",
		Schema: `{
  "type": "object",
  "properties": {
    "todo_id": {"type": "integer", "minimum": 1, "description": "The ID of the todo to delete"}
  },
  "required": ["todo_id"]
}`,
	},
	{
		Name:        "get_user_info",
		Description: "Get information about a user",
		Schema: `{
  "type": "object",
  "properties": {
    "user_id": {"type": "integer", "minimum": 1, "description": "The ID of the user"},
    "username": {"type": "string", "description": "The username to look up"}
  }
}`,
	},
}

// compiledTool is a catalog entry with its schema ready for validation.
type compiledTool struct {
	def    toolDef
	schema *jsonschema.Schema
}

func compileCatalog(defs []toolDef) (map[string]*compiledTool, error) {
	compiler := jsonschema.NewCompiler()
	for _, d := range defs {
		if err := compiler.AddResource(schemaURL(d.Name), strings.NewReader(d.Schema)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", d.Name, err)
		}
	}

	out := make(map[string]*compiledTool, len(defs))
	for _, d := range defs {
		schema, err := compiler.Compile(schemaURL(d.Name))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", d.Name, err)
		}
		out[d.Name] = &compiledTool{def: d, schema: schema}
	}
	return out, nil
}

func schemaURL(name string) string {
	return "tool://cybertodo/" + name + ".json"
}

// validate checks raw call arguments against the tool schema. Missing
// arguments are treated as an empty object.
func (t *compiledTool) validate(raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := t.schema.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError reduces a jsonschema failure to its first leaf cause.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return fmt.Errorf("%s", ve.Message)
	}
	return fmt.Errorf("%s: %s", strings.ReplaceAll(loc, "/", "."), ve.Message)
}

// toolInfo is the tools/list representation of a tool.
type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

func listing(defs []toolDef) []toolInfo {
	out := make([]toolInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, toolInfo{Name: d.Name, Description: d.Description, InputSchema: json.RawMessage(d.Schema)})
	}
	return out
}
