package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/cybertodo/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore handles user and todo CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	pgRepo
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, pgRepo: pgRepo{q: pool}}
}

// Migrate creates the users and todos tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      VARCHAR(80)  UNIQUE NOT NULL,
			email         VARCHAR(120) UNIQUE NOT NULL,
			password_hash VARCHAR(256) NOT NULL,
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS todos (
			id          BIGSERIAL PRIMARY KEY,
			title       VARCHAR(200) NOT NULL,
			description TEXT,
			status      VARCHAR(20)  NOT NULL DEFAULT 'pending',
			priority    VARCHAR(20)  NOT NULL DEFAULT 'medium',
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			due_date    TIMESTAMPTZ,
			user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS todos_user_id_idx ON todos (user_id);
	`)
	return err
}

// WithTx runs fn inside a transaction bound to a fresh repository.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgRepo{q: tx})
	})
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

type pgRepo struct {
	q querier
}

func (r *pgRepo) CreateUser(ctx context.Context, u *models.User) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapErr(err))
	}
	return nil
}

const userColumns = `id, username, email, password_hash, created_at`

func (r *pgRepo) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *pgRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *pgRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, "username", username)
}

func (r *pgRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *pgRepo) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const todoColumns = `id, title, description, status, priority, created_at, updated_at, due_date, user_id`

func scanTodo(row pgx.Row) (*models.Todo, error) {
	var t models.Todo
	var status, priority string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority,
		&t.CreatedAt, &t.UpdatedAt, &t.DueDate, &t.UserID)
	if err != nil {
		return nil, err
	}
	t.Status = models.Status(status)
	t.Priority = models.Priority(priority)
	return &t, nil
}

// priorityRankSQL orders priorities by urgency rather than alphabetically.
const priorityRankSQL = `CASE priority
	WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END`

func (r *pgRepo) ListTodos(ctx context.Context, f models.TodoFilter) ([]models.Todo, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Priority != "" {
		add("priority = $%d", string(f.Priority))
	}

	sql := `SELECT ` + todoColumns + ` FROM todos`
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}
	if f.Order == models.OrderPriority {
		sql += ` ORDER BY ` + priorityRankSQL + ` DESC, created_at DESC, id DESC`
	} else {
		sql += ` ORDER BY created_at DESC, id DESC`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []models.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

func (r *pgRepo) CountTodos(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM todos WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	return n, nil
}

func (r *pgRepo) GetTodo(ctx context.Context, id int64, ownerID *int64) (*models.Todo, error) {
	sql := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	args := []any{id}
	if ownerID != nil {
		sql += ` AND user_id = $2`
		args = append(args, *ownerID)
	}
	t, err := scanTodo(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (r *pgRepo) CreateTodo(ctx context.Context, t *models.Todo) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO todos (title, description, status, priority, created_at, updated_at, due_date, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		t.Title, t.Description, string(t.Status), string(t.Priority),
		t.CreatedAt, t.UpdatedAt, t.DueDate, t.UserID,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create todo: %w", mapErr(err))
	}
	return nil
}

func (r *pgRepo) UpdateTodo(ctx context.Context, t *models.Todo) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE todos
		 SET title = $1, description = $2, status = $3, priority = $4, updated_at = $5, due_date = $6
		 WHERE id = $7 AND user_id = $8`,
		t.Title, t.Description, string(t.Status), string(t.Priority), t.UpdatedAt, t.DueDate,
		t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) DeleteTodo(ctx context.Context, id int64, ownerID *int64) error {
	sql := `DELETE FROM todos WHERE id = $1`
	args := []any{id}
	if ownerID != nil {
		sql += ` AND user_id = $2`
		args = append(args, *ownerID)
	}
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
