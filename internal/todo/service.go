// Package todo implements task CRUD for the web pages, the JSON API and
// the tool server.
package todo

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/forms"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/store"
)

// Scope restricts which todos an operation can see. A user scope sees
// only that user's todos; the system scope sees every todo.
type Scope struct {
	userID *int64
}

// UserScope limits operations to id's todos.
func UserScope(id int64) Scope { return Scope{userID: &id} }

// SystemScope is used by API keys that are not bound to a user.
func SystemScope() Scope { return Scope{} }

// UserID returns the scoped user, if any.
func (s Scope) UserID() (int64, bool) {
	if s.userID == nil {
		return 0, false
	}
	return *s.userID, true
}

// NewTodo holds the fields for Create. Zero Status and Priority take the
// defaults. UserID is only read in the system scope.
type NewTodo struct {
	Title       string
	Description *string
	Status      models.Status
	Priority    models.Priority
	DueDate     *time.Time
	UserID      int64
}

// Patch holds the fields for Update. Nil fields are left unchanged.
type Patch struct {
	Title        *string
	Description  *string
	Status       *models.Status
	Priority     *models.Priority
	DueDate      *time.Time
	ClearDueDate bool
}

// Service applies scoped task operations inside store transactions.
type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the scope's todos matching f. f.UserID is overwritten by
// the scope.
func (s *Service) List(ctx context.Context, scope Scope, f models.TodoFilter) ([]models.Todo, error) {
	f.UserID = scope.userID
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("Invalid status: %s", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, apperr.Validation("Invalid priority: %s", f.Priority)
	}
	todos, err := s.store.ListTodos(ctx, f)
	if err != nil {
		return nil, s.persistence("list todos", err)
	}
	return todos, nil
}

// Get returns one todo. Todos outside the scope are not found.
func (s *Service) Get(ctx context.Context, scope Scope, id int64) (*models.Todo, error) {
	t, err := s.store.GetTodo(ctx, id, scope.userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, todoNotFound(id)
	}
	if err != nil {
		return nil, s.persistence("get todo", err)
	}
	return t, nil
}

// Create validates in and inserts the todo.
func (s *Service) Create(ctx context.Context, scope Scope, in NewTodo) (*models.Todo, error) {
	title := strings.TrimSpace(in.Title)
	if err := checkTitle(title); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.StatusPending
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("Invalid status: %s", in.Status)
	}
	if !in.Priority.Valid() {
		return nil, apperr.Validation("Invalid priority: %s", in.Priority)
	}

	ownerID := in.UserID
	if id, ok := scope.UserID(); ok {
		ownerID = id
	}
	if ownerID == 0 {
		return nil, apperr.Validation("User ID is required")
	}

	now := s.now()
	t := &models.Todo{
		Title:       title,
		Description: trimmed(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     in.DueDate,
		UserID:      ownerID,
	}

	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetUserByID(ctx, ownerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("User with ID %d not found", ownerID)
			}
			return err
		}
		return repo.CreateTodo(ctx, t)
	})
	if err != nil {
		return nil, s.classify("create todo", err)
	}
	zap.L().Debug("todo created", zap.Int64("todo_id", t.ID), zap.Int64("user_id", t.UserID))
	return t, nil
}

// Update applies p to the todo and refreshes its update timestamp.
func (s *Service) Update(ctx context.Context, scope Scope, id int64, p Patch) (*models.Todo, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if err := checkTitle(title); err != nil {
			return nil, err
		}
		p.Title = &title
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, apperr.Validation("Invalid status: %s", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return nil, apperr.Validation("Invalid priority: %s", *p.Priority)
	}

	return s.mutate(ctx, scope, id, "update todo", func(t *models.Todo) {
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = trimmed(p.Description)
		}
		if p.Status != nil {
			t.Status = *p.Status
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		if p.ClearDueDate {
			t.DueDate = nil
		} else if p.DueDate != nil {
			t.DueDate = p.DueDate
		}
		t.UpdatedAt = s.now()
	})
}

// Toggle flips the todo between completed and pending.
func (s *Service) Toggle(ctx context.Context, scope Scope, id int64) (*models.Todo, error) {
	return s.mutate(ctx, scope, id, "toggle todo", func(t *models.Todo) {
		t.Toggle(s.now())
	})
}

// Delete removes the todo and returns it as it was.
func (s *Service) Delete(ctx context.Context, scope Scope, id int64) (*models.Todo, error) {
	var deleted *models.Todo
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		t, err := repo.GetTodo(ctx, id, scope.userID)
		if err != nil {
			return err
		}
		if err := repo.DeleteTodo(ctx, id, scope.userID); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, todoNotFound(id)
	}
	if err != nil {
		return nil, s.classify("delete todo", err)
	}
	return deleted, nil
}

// Stats counts the scope's todos by status, plus overdue ones.
func (s *Service) Stats(ctx context.Context, scope Scope) (models.Stats, error) {
	todos, err := s.store.ListTodos(ctx, models.TodoFilter{UserID: scope.userID})
	if err != nil {
		return models.Stats{}, s.persistence("todo stats", err)
	}
	return ComputeStats(todos, s.now()), nil
}

// ComputeStats summarises todos as of now.
func ComputeStats(todos []models.Todo, now time.Time) models.Stats {
	var st models.Stats
	for i := range todos {
		t := &todos[i]
		st.Total++
		switch t.Status {
		case models.StatusPending:
			st.Pending++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusCompleted:
			st.Completed++
		}
		if t.IsOverdue(now) {
			st.Overdue++
		}
	}
	return st
}

// Profile returns the user's profile with their todo count.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User with ID %d not found", userID)
	}
	if err != nil {
		return nil, s.persistence("get user", err)
	}
	n, err := s.store.CountTodos(ctx, userID)
	if err != nil {
		return nil, s.persistence("count todos", err)
	}
	return &models.Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		TodoCount: n,
	}, nil
}

// FindUser looks a user up by id or, when id is zero, by username.
func (s *Service) FindUser(ctx context.Context, id int64, username string) (*models.Profile, error) {
	if id == 0 {
		if username == "" {
			return nil, apperr.Validation("Either user_id or username is required")
		}
		u, err := s.store.GetUserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User with username '%s' not found", username)
		}
		if err != nil {
			return nil, s.persistence("get user", err)
		}
		id = u.ID
	}
	return s.Profile(ctx, id)
}

func (s *Service) mutate(ctx context.Context, scope Scope, id int64, op string, apply func(*models.Todo)) (*models.Todo, error) {
	var out *models.Todo
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		t, err := repo.GetTodo(ctx, id, scope.userID)
		if err != nil {
			return err
		}
		apply(t)
		if err := repo.UpdateTodo(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, todoNotFound(id)
	}
	if err != nil {
		return nil, s.classify(op, err)
	}
	return out, nil
}

// classify passes classified errors through and hides everything else
// behind a persistence error.
func (s *Service) classify(op string, err error) error {
	if apperr.KindOf(err) != 0 {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("not found")
	}
	return s.persistence(op, err)
}

func (s *Service) persistence(op string, err error) error {
	zap.L().Error(op, zap.Error(err))
	return apperr.Persistence(err)
}

func todoNotFound(id int64) error {
	return apperr.NotFound("Todo with ID %d not found", id)
}

func checkTitle(title string) error {
	if title == "" {
		return apperr.Validation("Title is required")
	}
	if utf8.RuneCountInString(title) > forms.MaxTitleLen {
		return apperr.Validation("Title must be between 1 and %d characters", forms.MaxTitleLen)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
