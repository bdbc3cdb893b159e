package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ayush/cybertodo/internal/models"
)

// MemoryStore is an in-process Store for development and tests. It
// enforces the same uniqueness and cascade rules as the Postgres schema.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

type memData struct {
	users      map[int64]models.User
	todos      map[int64]models.Todo
	nextUserID int64
	nextTodoID int64
}

func newMemData() *memData {
	return &memData{
		users: make(map[int64]models.User),
		todos: make(map[int64]models.Todo),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:      make(map[int64]models.User, len(d.users)),
		todos:      make(map[int64]models.Todo, len(d.todos)),
		nextUserID: d.nextUserID,
		nextTodoID: d.nextTodoID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.todos {
		c.todos[k] = v
	}
	return c
}

// WithTx runs fn against a snapshot and publishes it only if fn succeeds.
// The store lock is held for the duration, so transactions are serial.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memRepo{d: snapshot}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) repo() (*memRepo, func()) {
	s.mu.Lock()
	return &memRepo{d: s.data}, s.mu.Unlock
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	r, unlock := s.repo()
	defer unlock()
	return r.CreateUser(ctx, u)
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.GetUserByID(ctx, id)
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.GetUserByUsername(ctx, username)
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.GetUserByEmail(ctx, email)
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	r, unlock := s.repo()
	defer unlock()
	return r.DeleteUser(ctx, id)
}

func (s *MemoryStore) ListTodos(ctx context.Context, f models.TodoFilter) ([]models.Todo, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.ListTodos(ctx, f)
}

func (s *MemoryStore) CountTodos(ctx context.Context, userID int64) (int, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.CountTodos(ctx, userID)
}

func (s *MemoryStore) GetTodo(ctx context.Context, id int64, ownerID *int64) (*models.Todo, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.GetTodo(ctx, id, ownerID)
}

func (s *MemoryStore) CreateTodo(ctx context.Context, t *models.Todo) error {
	r, unlock := s.repo()
	defer unlock()
	return r.CreateTodo(ctx, t)
}

func (s *MemoryStore) UpdateTodo(ctx context.Context, t *models.Todo) error {
	r, unlock := s.repo()
	defer unlock()
	return r.UpdateTodo(ctx, t)
}

func (s *MemoryStore) DeleteTodo(ctx context.Context, id int64, ownerID *int64) error {
	r, unlock := s.repo()
	defer unlock()
	return r.DeleteTodo(ctx, id, ownerID)
}

// memRepo operates on memData without locking; callers hold the lock.
type memRepo struct {
	d *memData
}

func (r *memRepo) CreateUser(_ context.Context, u *models.User) error {
	for _, existing := range r.d.users {
		if existing.Username == u.Username {
			return fmt.Errorf("create user: %w: users_username_key", ErrConflict)
		}
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w: users_email_key", ErrConflict)
		}
	}
	r.d.nextUserID++
	u.ID = r.d.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r *memRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memRepo) findUser(match func(models.User) bool) (*models.User, error) {
	for _, u := range r.d.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.findUser(func(u models.User) bool { return u.Username == username })
}

func (r *memRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findUser(func(u models.User) bool { return u.Email == email })
}

func (r *memRepo) DeleteUser(_ context.Context, id int64) error {
	if _, ok := r.d.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.d.users, id)
	for tid, t := range r.d.todos {
		if t.UserID == id {
			delete(r.d.todos, tid)
		}
	}
	return nil
}

func (r *memRepo) ListTodos(_ context.Context, f models.TodoFilter) ([]models.Todo, error) {
	var todos []models.Todo
	for _, t := range r.d.todos {
		if f.UserID != nil && t.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		todos = append(todos, t)
	}

	sort.Slice(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if f.Order == models.OrderPriority && a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if f.Limit > 0 && len(todos) > f.Limit {
		todos = todos[:f.Limit]
	}
	return todos, nil
}

func (r *memRepo) CountTodos(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, t := range r.d.todos {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) GetTodo(_ context.Context, id int64, ownerID *int64) (*models.Todo, error) {
	t, ok := r.d.todos[id]
	if !ok || (ownerID != nil && t.UserID != *ownerID) {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *memRepo) CreateTodo(_ context.Context, t *models.Todo) error {
	if _, ok := r.d.users[t.UserID]; !ok {
		return fmt.Errorf("create todo: %w: todos_user_id_fkey", ErrNotFound)
	}
	r.d.nextTodoID++
	t.ID = r.d.nextTodoID
	r.d.todos[t.ID] = *t
	return nil
}

func (r *memRepo) UpdateTodo(_ context.Context, t *models.Todo) error {
	existing, ok := r.d.todos[t.ID]
	if !ok || existing.UserID != t.UserID {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	r.d.todos[t.ID] = *t
	return nil
}

func (r *memRepo) DeleteTodo(_ context.Context, id int64, ownerID *int64) error {
	t, ok := r.d.todos[id]
	if !ok || (ownerID != nil && t.UserID != *ownerID) {
		return ErrNotFound
	}
	delete(r.d.todos, id)
	return nil
}
