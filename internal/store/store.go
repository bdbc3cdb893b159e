package store

import (
	"context"
	"errors"

	"github.com/ayush/cybertodo/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible
	// to the requested owner.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("conflict")
)

// Repository holds the user and todo queries.
//
// Methods taking an ownerID restrict the lookup to that user's rows when
// ownerID is non-nil.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListTodos(ctx context.Context, f models.TodoFilter) ([]models.Todo, error)
	CountTodos(ctx context.Context, userID int64) (int, error)
	GetTodo(ctx context.Context, id int64, ownerID *int64) (*models.Todo, error)
	CreateTodo(ctx context.Context, t *models.Todo) error
	UpdateTodo(ctx context.Context, t *models.Todo) error
	DeleteTodo(ctx context.Context, id int64, ownerID *int64) error
}

// Store is a Repository with explicit scoped transactions. WithTx commits
// when fn returns nil and rolls back otherwise.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(Repository) error) error
	Close()
}
