package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/todo"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

type listArgs struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Limit    *int   `json:"limit"`
}

type idArgs struct {
	TodoID int64 `json:"todo_id"`
}

type createArgs struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     string  `json:"due_date"`
	UserID      int64   `json:"user_id"`
}

type updateArgs struct {
	TodoID      int64   `json:"todo_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}

type userArgs struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (s *Server) run(ctx context.Context, scope todo.Scope, name string, raw json.RawMessage) *CallResult {
	switch name {
	case "list_todos":
		var a listArgs
		if err := decodeArgs(raw, &a); err != nil {
			return errorResult("Error listing todos: " + err.Error())
		}
		return s.listTodos(ctx, scope, a)
	case "get_todo":
		var a idArgs
		if err := decodeArgs(raw, &a); err != nil {
			return errorResult("Error getting todo: " + err.Error())
		}
		return s.getTodo(ctx, scope, a)
	case "create_todo":
		var a createArgs
		if err := decodeArgs(raw, &a); err != nil {
			return errorResult("Error creating todo: " + err.Error())
		}
		return s.createTodo(ctx, scope, a)
	case "update_todo":
		var a updateArgs
		if err := decodeArgs(raw, &a); err != nil {
			return errorResult("Error updating todo: " + err.Error())
		}
		return s.updateTodo(ctx, scope, a)
	case "delete_todo":
		var a idArgs
		if err := decodeArgs(raw, &a); err != nil {
			return errorResult("Error deleting todo: " + err.Error())
		}
		return s.deleteTodo(ctx, scope, a)
	case "get_user_info":
		var a userArgs
		if err := decodeArgs(raw, &a); err != nil {
			return errorResult("Error getting user info: " + err.Error())
		}
		return s.userInfo(ctx, scope, a)
	}
	return errorResult("Unknown tool: " + name)
}

func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// failure renders err for a client. Missing records are reported with the
// bare message; everything else is prefixed with the action that failed.
func failure(action string, err error) *CallResult {
	msg := apperr.BodyOf(err).Message
	if apperr.Is(err, apperr.KindNotFound) {
		return errorResult(msg)
	}
	return errorResult("Error " + action + ": " + msg)
}

func (s *Server) listTodos(ctx context.Context, scope todo.Scope, a listArgs) *CallResult {
	limit := defaultLimit
	if a.Limit != nil {
		limit = *a.Limit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	todos, err := s.todos.List(ctx, scope, models.TodoFilter{
		Status:   models.Status(a.Status),
		Priority: models.Priority(a.Priority),
		Order:    models.OrderCreated,
		Limit:    limit,
	})
	if err != nil {
		return failure("listing todos", err)
	}
	if len(todos) == 0 {
		return textResult("No todos found matching the specified criteria.")
	}

	now := s.now()
	entries := make([]string, 0, len(todos))
	for i := range todos {
		entries = append(entries, formatListEntry(&todos[i], now))
	}
	return textResult(fmt.Sprintf("Found %d todo(s):\n\n%s", len(todos), strings.Join(entries, "\n\n")))
}

func (s *Server) getTodo(ctx context.Context, scope todo.Scope, a idArgs) *CallResult {
	t, err := s.todos.Get(ctx, scope, a.TodoID)
	if err != nil {
		return failure("getting todo", err)
	}
	return textResult(formatDetail(t, s.now()))
}

func (s *Server) createTodo(ctx context.Context, scope todo.Scope, a createArgs) *CallResult {
	due, err := models.ParseDueDate(a.DueDate)
	if err != nil {
		return failure("creating todo", err)
	}
	t, err := s.todos.Create(ctx, scope, todo.NewTodo{
		Title:       a.Title,
		Description: a.Description,
		Status:      models.Status(a.Status),
		Priority:    models.Priority(a.Priority),
		DueDate:     due,
		UserID:      a.UserID,
	})
	if err != nil {
		return failure("creating todo", err)
	}
	return textResult(fmt.Sprintf("✅ Successfully created todo #%d: %s", t.ID, t.Title))
}

func (s *Server) updateTodo(ctx context.Context, scope todo.Scope, a updateArgs) *CallResult {
	p := todo.Patch{Title: a.Title, Description: a.Description}
	if a.Status != nil {
		st := models.Status(*a.Status)
		p.Status = &st
	}
	if a.Priority != nil {
		pr := models.Priority(*a.Priority)
		p.Priority = &pr
	}
	if a.DueDate != nil {
		due, err := models.ParseDueDate(*a.DueDate)
		if err != nil {
			return failure("updating todo", err)
		}
		p.DueDate = due
		p.ClearDueDate = due == nil
	}

	t, err := s.todos.Update(ctx, scope, a.TodoID, p)
	if err != nil {
		return failure("updating todo", err)
	}
	return textResult(fmt.Sprintf("✅ Successfully updated todo #%d: %s", t.ID, t.Title))
}

func (s *Server) deleteTodo(ctx context.Context, scope todo.Scope, a idArgs) *CallResult {
	t, err := s.todos.Delete(ctx, scope, a.TodoID)
	if err != nil {
		return failure("deleting todo", err)
	}
	return textResult(fmt.Sprintf("🗑️ Successfully deleted todo #%d: %s", t.ID, t.Title))
}

func (s *Server) userInfo(ctx context.Context, scope todo.Scope, a userArgs) *CallResult {
	p, err := s.todos.FindUser(ctx, a.UserID, a.Username)
	if err == nil {
		if own, scoped := scope.UserID(); scoped && own != p.ID {
			err = userNotFound(a)
		}
	}
	if err != nil {
		return failure("getting user info", err)
	}
	return textResult(fmt.Sprintf("User Information:\nID: %d\nUsername: %s\nEmail: %s\nCreated: %s\nTotal TODOs: %d",
		p.ID, p.Username, p.Email, p.CreatedAt.UTC().Format(time.RFC3339), p.TodoCount))
}

func userNotFound(a userArgs) error {
	if a.UserID != 0 {
		return apperr.NotFound("User with ID %d not found", a.UserID)
	}
	return apperr.NotFound("User with username '%s' not found", a.Username)
}

var statusIcons = map[models.Status]string{
	models.StatusPending:    "⏳",
	models.StatusInProgress: "🔄",
	models.StatusCompleted:  "✅",
}

var priorityIcons = map[models.Priority]string{
	models.PriorityLow:      "🟢",
	models.PriorityMedium:   "🟡",
	models.PriorityHigh:     "🟠",
	models.PriorityCritical: "🔴",
}

func icons(t *models.Todo) string {
	st, ok := statusIcons[t.Status]
	if !ok {
		st = "❓"
	}
	pr, ok := priorityIcons[t.Priority]
	if !ok {
		pr = "⚪"
	}
	return st + " " + pr
}

func formatListEntry(t *models.Todo, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s %s", t.ID, icons(t), t.Title)
	if t.DueDate != nil {
		fmt.Fprintf(&b, " (Due: %s)", t.DueDate.UTC().Format("2006-01-02"))
	}
	if t.IsOverdue(now) {
		b.WriteString(" ⚠️ OVERDUE")
	}
	fmt.Fprintf(&b, "\n   Status: %s, Priority: %s", t.Status, t.Priority)
	fmt.Fprintf(&b, "\n   User ID: %d, Created: %s", t.UserID, t.CreatedAt.UTC().Format("2006-01-02"))
	return b.String()
}

func formatDetail(t *models.Todo, now time.Time) string {
	description := "No description"
	if t.Description != nil {
		description = *t.Description
	}
	due := "Not set"
	if t.DueDate != nil {
		due = t.DueDate.UTC().Format(time.RFC3339)
	}
	overdue := "No"
	if t.IsOverdue(now) {
		overdue = "Yes ⚠️"
	}
	return fmt.Sprintf("Todo #%d %s\n\nTitle: %s\nDescription: %s\nStatus: %s\nPriority: %s\nOwner: User ID %d\nCreated: %s\nUpdated: %s\nDue Date: %s\nOverdue: %s",
		t.ID, icons(t), t.Title, description, t.Status, t.Priority, t.UserID,
		t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339), due, overdue)
}

func formatResourceSummary(n int) string {
	return fmt.Sprintf("Current todos in CyberTODO system: %d items", n)
}
