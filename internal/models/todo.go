package models

import (
	"fmt"
	"time"
)

// Status is the workflow state of a todo.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label is the human-readable form used by templates.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// ParseStatus converts a raw value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status: %q", v)
	}
	return s, nil
}

// Priority is the urgency of a todo.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities; higher is more urgent. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	}
	return string(p)
}

// ParsePriority converts a raw value into a Priority.
func ParsePriority(v string) (Priority, error) {
	p := Priority(v)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %q", v)
	}
	return p, nil
}

// Todo represents a row in the todos table.
type Todo struct {
	ID          int64
	Title       string
	Description *string
	Status      Status
	Priority    Priority
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DueDate     *time.Time
	UserID      int64
}

// IsOverdue reports whether the due date has passed and the todo is not
// completed. Both sides are compared as UTC instants.
func (t *Todo) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.UTC().Before(now.UTC())
}

// Toggle flips between completed and pending. Any non-completed status,
// including in_progress, becomes completed.
func (t *Todo) Toggle(now time.Time) {
	if t.Status == StatusCompleted {
		t.Status = StatusPending
	} else {
		t.Status = StatusCompleted
	}
	t.UpdatedAt = now
}

// TodoJSON is the API representation of a Todo.
type TodoJSON struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DueDate     *time.Time `json:"due_date"`
	UserID      int64      `json:"user_id"`
	IsOverdue   bool       `json:"is_overdue"`
}

// JSON renders t for API responses as of now.
func (t *Todo) JSON(now time.Time) TodoJSON {
	return TodoJSON{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DueDate:     t.DueDate,
		UserID:      t.UserID,
		IsOverdue:   t.IsOverdue(now),
	}
}

// Order selects the sort order of a todo listing.
type Order int

const (
	// OrderCreated sorts newest first.
	OrderCreated Order = iota
	// OrderPriority sorts by priority rank descending, then newest first.
	OrderPriority
)

// TodoFilter narrows a todo listing. A nil UserID lists every user's todos.
type TodoFilter struct {
	UserID   *int64
	Status   Status
	Priority Priority
	Order    Order
	Limit    int
}

// Stats summarises a user's todos for the dashboard.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}

// TodoInput is the JSON body for POST/PUT /api/todos. Nil fields are
// left untouched on update.
type TodoInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}
