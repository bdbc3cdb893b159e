// Package toolserver exposes the task operations to automated clients as
// a JSON-RPC 2.0 tool server speaking one message per line.
//
// Every tools/call is authenticated on its own with a bearer API key read
// from the request's _meta, or the key the process was started with. Keys
// bound to a user only see that user's todos; unbound keys see all todos.
// Failures of a tool are returned as text results, never as protocol
// errors, so a client can always show the reply to its user.
package toolserver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/todo"
)

const (
	ServerName      = "CyberTODO MCP Server"
	ServerVersion   = "1.0.0"
	ProtocolVersion = "2024-11-05"

	// TodosResource is the only resource the server publishes.
	TodosResource = "cybertodo://todos"
)

// KeyValidator checks a raw API key.
type KeyValidator interface {
	Validate(ctx context.Context, raw string) (*models.APIKey, bool)
}

// Server answers JSON-RPC requests against the task service.
type Server struct {
	todos      *todo.Service
	keys       KeyValidator
	defaultKey string
	tools      map[string]*compiledTool
	logger     *zap.Logger
	now        func() time.Time
}

// New builds a server. defaultKey is used for calls that carry no key of
// their own; it may be empty.
func New(todos *todo.Service, keys KeyValidator, defaultKey string, logger *zap.Logger) (*Server, error) {
	tools, err := compileCatalog(catalog)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		todos:      todos,
		keys:       keys,
		defaultKey: defaultKey,
		tools:      tools,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

type callParams struct {
	Name      string                 `json:"name"`
	Arguments json.RawMessage        `json:"arguments"`
	Meta      map[string]interface{} `json:"_meta"`
}

type readParams struct {
	URI  string                 `json:"uri"`
	Meta map[string]interface{} `json:"_meta"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the tools/call result.
type CallResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Text returns the concatenated text content.
func (r *CallResult) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

func textResult(text string) *CallResult {
	return &CallResult{Content: []textContent{{Type: "text", Text: text}}}
}

func errorResult(text string) *CallResult {
	r := textResult(text)
	r.IsError = true
	return r
}

func (s *Server) dispatch(ctx context.Context, req *request) (interface{}, *rpcError) {
	switch req.Method {
	case "initialize":
		return map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools":     map[string]interface{}{},
				"resources": map[string]interface{}{},
			},
			"serverInfo": map[string]string{"name": ServerName, "version": ServerVersion},
		}, nil

	case "notifications/initialized":
		return map[string]interface{}{}, nil

	case "ping":
		return map[string]interface{}{}, nil

	case "tools/list":
		return map[string]interface{}{"tools": listing(catalog)}, nil

	case "tools/call":
		var p callParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			return nil, newRPCError(codeInvalidParams, "Invalid params: %v", err)
		}
		return s.Call(ctx, p.Name, p.Arguments, p.Meta), nil

	case "resources/list":
		return map[string]interface{}{
			"resources": []map[string]string{{
				"uri":         TodosResource,
				"name":        "CyberTODO Todos",
				"description": "Access to todo items in the CyberTODO system",
				"mimeType":    "application/json",
			}},
		}, nil

	case "resources/read":
		var p readParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			return nil, newRPCError(codeInvalidParams, "Invalid params: %v", err)
		}
		return s.readResource(ctx, p)
	}
	return nil, newRPCError(codeMethodNotFound, "Method not found: %s", req.Method)
}

func unmarshalParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Call authenticates and runs one tool. meta carries the per-call
// credentials.
func (s *Server) Call(ctx context.Context, name string, args json.RawMessage, meta map[string]interface{}) *CallResult {
	start := time.Now()
	key, ok := s.authenticate(ctx, meta)
	if !ok {
		s.logger.Warn("tool call rejected", zap.String("tool", name))
		return errorResult("Error: invalid or missing API key")
	}

	tool, ok := s.tools[name]
	if !ok {
		return errorResult("Unknown tool: " + name)
	}
	if err := tool.validate(args); err != nil {
		return errorResult("Invalid arguments for " + name + ": " + err.Error())
	}

	res := s.run(ctx, scopeFor(key), name, args)
	s.logger.Info("tool call",
		zap.String("tool", name),
		zap.String("key", key.Name),
		zap.Bool("error", res.IsError),
		zap.Duration("latency", time.Since(start)),
	)
	return res
}

func (s *Server) readResource(ctx context.Context, p readParams) (interface{}, *rpcError) {
	if p.URI != TodosResource {
		return nil, newRPCError(codeInvalidParams, "Unknown resource: %s", p.URI)
	}
	key, ok := s.authenticate(ctx, p.Meta)
	if !ok {
		return nil, newRPCError(codeInvalidRequest, "invalid or missing API key")
	}
	todos, err := s.todos.List(ctx, scopeFor(key), models.TodoFilter{Order: models.OrderCreated, Limit: defaultLimit})
	if err != nil {
		return nil, newRPCError(codeInternalError, "%s", err.Error())
	}
	return map[string]interface{}{
		"contents": []map[string]string{{
			"uri":      TodosResource,
			"mimeType": "text/plain",
			"text":     formatResourceSummary(len(todos)),
		}},
	}, nil
}

// authenticate resolves the key for a call: _meta.authorization
// ("Bearer <key>"), then _meta["x-api-key"], then the process default.
func (s *Server) authenticate(ctx context.Context, meta map[string]interface{}) (*models.APIKey, bool) {
	raw := keyFromMeta(meta)
	if raw == "" {
		raw = s.defaultKey
	}
	if raw == "" {
		return nil, false
	}
	return s.keys.Validate(ctx, raw)
}

func keyFromMeta(meta map[string]interface{}) string {
	if v, ok := meta["authorization"].(string); ok {
		v = strings.TrimSpace(v)
		if len(v) > len("bearer ") && strings.EqualFold(v[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(v[len("bearer "):])
		}
	}
	if v, ok := meta["x-api-key"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func scopeFor(k *models.APIKey) todo.Scope {
	if k.UserID != nil {
		return todo.UserScope(*k.UserID)
	}
	return todo.SystemScope()
}
