package todo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/store"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewService(st)
	svc.now = func() time.Time { return fixedNow }
	return svc, st
}

func createUser(t *testing.T, st store.Store, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@night.city", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func ptr[T any](v T) *T { return &v }

func TestService_CreateDefaults(t *testing.T) {
	svc, st := newTestService(t)
	u := createUser(t, st, "vee")

	td, err := svc.Create(context.Background(), UserScope(u.ID), NewTodo{Title: "  Heist  ", Description: ptr("   ")})
	require.NoError(t, err)
	assert.Equal(t, "Heist", td.Title)
	assert.Nil(t, td.Description)
	assert.Equal(t, models.StatusPending, td.Status)
	assert.Equal(t, models.PriorityMedium, td.Priority)
	assert.Equal(t, u.ID, td.UserID)
	assert.Equal(t, fixedNow, td.CreatedAt)
	assert.Equal(t, fixedNow, td.UpdatedAt)
}

func TestService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	u := createUser(t, st, "vee")

	_, err := svc.Create(ctx, UserScope(u.ID), NewTodo{Title: ""})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "Title is required", err.Error())

	_, err = svc.Create(ctx, UserScope(u.ID), NewTodo{Title: strings.Repeat("x", 201)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Create(ctx, UserScope(u.ID), NewTodo{Title: "x", Status: "done"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Create(ctx, UserScope(u.ID), NewTodo{Title: "x", Priority: "urgent"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Create(ctx, SystemScope(), NewTodo{Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "User ID is required", err.Error())
}

func TestService_CreateForMissingUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), SystemScope(), NewTodo{Title: "orphan", UserID: 999})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "User with ID 999 not found", err.Error())
}

func TestService_SystemScopeSeesAllUsers(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	vee := createUser(t, st, "vee")
	jackie := createUser(t, st, "jackie")

	_, err := svc.Create(ctx, SystemScope(), NewTodo{Title: "for vee", UserID: vee.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, SystemScope(), NewTodo{Title: "for jackie", UserID: jackie.ID})
	require.NoError(t, err)

	all, err := svc.List(ctx, SystemScope(), models.TodoFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.List(ctx, UserScope(vee.ID), models.TodoFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "for vee", mine[0].Title)
}

func TestService_UserScopeHidesForeignTodos(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	vee := createUser(t, st, "vee")
	jackie := createUser(t, st, "jackie")

	td, err := svc.Create(ctx, UserScope(vee.ID), NewTodo{Title: "secret"})
	require.NoError(t, err)

	other := UserScope(jackie.ID)
	_, err = svc.Get(ctx, other, td.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Update(ctx, other, td.ID, Patch{Title: ptr("mine now")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Toggle(ctx, other, td.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Delete(ctx, other, td.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "Todo with ID 1 not found", err.Error())

	got, err := svc.Get(ctx, UserScope(vee.ID), td.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Title)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	u := createUser(t, st, "vee")
	scope := UserScope(u.ID)
	due := time.Date(2077, 1, 1, 0, 0, 0, 0, time.UTC)

	td, err := svc.Create(ctx, scope, NewTodo{Title: "Heist", Description: ptr("plan"), DueDate: &due})
	require.NoError(t, err)

	later := fixedNow.Add(time.Hour)
	svc.now = func() time.Time { return later }

	updated, err := svc.Update(ctx, scope, td.ID, Patch{
		Status:   ptr(models.StatusInProgress),
		Priority: ptr(models.PriorityCritical),
	})
	require.NoError(t, err)
	assert.Equal(t, "Heist", updated.Title, "untouched fields keep their values")
	assert.Equal(t, "plan", *updated.Description)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, models.PriorityCritical, updated.Priority)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, fixedNow, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)

	updated, err = svc.Update(ctx, scope, td.ID, Patch{ClearDueDate: true, Description: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
	assert.Nil(t, updated.Description)

	_, err = svc.Update(ctx, scope, td.ID, Patch{Title: ptr("   ")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_Toggle(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	u := createUser(t, st, "vee")
	scope := UserScope(u.ID)

	td, err := svc.Create(ctx, scope, NewTodo{Title: "Heist", Status: models.StatusInProgress})
	require.NoError(t, err)

	td, err = svc.Toggle(ctx, scope, td.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, td.Status)

	td, err = svc.Toggle(ctx, scope, td.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, td.Status)
}

func TestService_DeleteReturnsTodo(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	u := createUser(t, st, "vee")
	scope := UserScope(u.ID)

	td, err := svc.Create(ctx, scope, NewTodo{Title: "Heist"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, scope, td.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heist", deleted.Title)

	_, err = svc.Get(ctx, scope, td.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_ListRejectsInvalidFilters(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), SystemScope(), models.TodoFilter{Status: "done"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.List(context.Background(), SystemScope(), models.TodoFilter{Priority: "urgent"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_DashboardStats(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	u := createUser(t, st, "testuser")
	scope := UserScope(u.ID)
	pastDue := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, nt := range []NewTodo{
		{Title: "Todo1", Status: models.StatusPending},
		{Title: "Todo2", Status: models.StatusInProgress},
		{Title: "Todo3", Status: models.StatusCompleted},
		{Title: "Todo4", Status: models.StatusPending, DueDate: &pastDue},
	} {
		_, err := svc.Create(ctx, scope, nt)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Total: 4, Pending: 2, InProgress: 1, Completed: 1, Overdue: 1}, stats)
}

func TestComputeStats_OverdueAcrossZones(t *testing.T) {
	naive, err := models.ParseDueDate("2023-01-01 12:00")
	require.NoError(t, err)
	aware := time.Date(2023, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	future := time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC)

	todos := []models.Todo{
		{Title: "Past due naive", Status: models.StatusPending, DueDate: naive},
		{Title: "Past due aware", Status: models.StatusPending, DueDate: &aware},
		{Title: "Future due", Status: models.StatusPending, DueDate: &future},
		{Title: "No due date", Status: models.StatusPending},
		{Title: "Completed past due", Status: models.StatusCompleted, DueDate: naive},
	}
	stats := ComputeStats(todos, fixedNow)
	assert.Equal(t, 2, stats.Overdue)
	assert.Equal(t, 5, stats.Total)
}

func TestService_ProfileAndFindUser(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	u := createUser(t, st, "vee")
	_, err := svc.Create(ctx, UserScope(u.ID), NewTodo{Title: "Heist"})
	require.NoError(t, err)

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "vee", p.Username)
	assert.Equal(t, 1, p.TodoCount)

	p, err = svc.FindUser(ctx, 0, "vee")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)

	_, err = svc.FindUser(ctx, 0, "nobody")
	assert.Equal(t, "User with username 'nobody' not found", err.Error())
	_, err = svc.FindUser(ctx, 999, "")
	assert.Equal(t, "User with ID 999 not found", err.Error())
	_, err = svc.FindUser(ctx, 0, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) ListTodos(context.Context, models.TodoFilter) ([]models.Todo, error) {
	return nil, errors.New("connection reset")
}

func TestService_PersistenceErrorsAreGeneric(t *testing.T) {
	svc := NewService(failingStore{store.NewMemoryStore()})

	_, err := svc.List(context.Background(), SystemScope(), models.TodoFilter{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.Equal(t, "internal server error", apperr.BodyOf(err).Message)
	assert.NotContains(t, err.Error(), "connection reset")
}
