package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/apikey"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/store"
	"github.com/ayush/cybertodo/internal/todo"
)

// stubKeys accepts a fixed set of raw keys.
type stubKeys map[string]*models.APIKey

func (k stubKeys) Validate(_ context.Context, raw string) (*models.APIKey, bool) {
	key, ok := k[raw]
	return key, ok
}

type fixture struct {
	srv   *Server
	db    *store.MemoryStore
	alice *models.User
	bob   *models.User
}

func newFixture(t *testing.T, defaultKey string) *fixture {
	t.Helper()
	ctx := context.Background()
	db := store.NewMemoryStore()

	alice := &models.User{Username: "alice", Email: "alice@night.city"}
	require.NoError(t, db.CreateUser(ctx, alice))
	bob := &models.User{Username: "bob", Email: "bob@night.city"}
	require.NoError(t, db.CreateUser(ctx, bob))

	keys := stubKeys{
		"system-key": {Name: "system"},
		"alice-key":  {Name: "alice", UserID: &alice.ID},
	}
	srv, err := New(todo.NewService(db), keys, defaultKey, zap.NewNop())
	require.NoError(t, err)
	return &fixture{srv: srv, db: db, alice: alice, bob: bob}
}

func (f *fixture) call(t *testing.T, name, args string, meta map[string]interface{}) *CallResult {
	t.Helper()
	res := f.srv.Call(context.Background(), name, json.RawMessage(args), meta)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	return res
}

func bearer(key string) map[string]interface{} {
	return map[string]interface{}{"authorization": "Bearer " + key}
}

func TestCall_TodoLifecycle(t *testing.T) {
	f := newFixture(t, "system-key")

	res := f.call(t, "create_todo", fmt.Sprintf(
		`{"title":"Hack the tower","user_id":%d,"priority":"critical","due_date":"2020-01-01 00:00"}`, f.alice.ID), nil)
	require.False(t, res.IsError, res.Text())
	assert.Equal(t, "✅ Successfully created todo #1: Hack the tower", res.Text())

	res = f.call(t, "list_todos", `{}`, nil)
	require.False(t, res.IsError, res.Text())
	assert.True(t, strings.HasPrefix(res.Text(), "Found 1 todo(s):\n\n"))
	assert.Contains(t, res.Text(), "#1 ⏳ 🔴 Hack the tower (Due: 2020-01-01) ⚠️ OVERDUE")
	assert.Contains(t, res.Text(), "Status: pending, Priority: critical")
	assert.Contains(t, res.Text(), fmt.Sprintf("User ID: %d, Created: ", f.alice.ID))

	res = f.call(t, "get_todo", `{"todo_id":1}`, nil)
	require.False(t, res.IsError, res.Text())
	assert.Contains(t, res.Text(), "Title: Hack the tower")
	assert.Contains(t, res.Text(), "Description: No description")
	assert.Contains(t, res.Text(), "Due Date: 2020-01-01T00:00:00Z")
	assert.Contains(t, res.Text(), "Overdue: Yes ⚠️")

	res = f.call(t, "update_todo", `{"todo_id":1,"status":"completed","due_date":"","description":"done quietly"}`, nil)
	require.False(t, res.IsError, res.Text())
	assert.Equal(t, "✅ Successfully updated todo #1: Hack the tower", res.Text())

	res = f.call(t, "get_todo", `{"todo_id":1}`, nil)
	assert.Contains(t, res.Text(), "Todo #1 ✅ 🔴")
	assert.Contains(t, res.Text(), "Description: done quietly")
	assert.Contains(t, res.Text(), "Status: completed")
	assert.Contains(t, res.Text(), "Due Date: Not set")
	assert.Contains(t, res.Text(), "Overdue: No")

	res = f.call(t, "delete_todo", `{"todo_id":1}`, nil)
	require.False(t, res.IsError, res.Text())
	assert.Equal(t, "🗑️ Successfully deleted todo #1: Hack the tower", res.Text())

	res = f.call(t, "get_todo", `{"todo_id":1}`, nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "Todo with ID 1 not found", res.Text())

	res = f.call(t, "list_todos", `{"status":"pending"}`, nil)
	assert.False(t, res.IsError)
	assert.Equal(t, "No todos found matching the specified criteria.", res.Text())
}

func TestCall_ListFiltersAndLimit(t *testing.T) {
	f := newFixture(t, "system-key")
	for i, p := range []string{"low", "high", "high"} {
		res := f.call(t, "create_todo", fmt.Sprintf(`{"title":"task %d","priority":"%s","user_id":%d}`, i, p, f.alice.ID), nil)
		require.False(t, res.IsError, res.Text())
	}

	res := f.call(t, "list_todos", `{"priority":"high"}`, nil)
	assert.True(t, strings.HasPrefix(res.Text(), "Found 2 todo(s):"))
	assert.NotContains(t, res.Text(), "task 0")

	res = f.call(t, "list_todos", `{"limit":1}`, nil)
	assert.True(t, strings.HasPrefix(res.Text(), "Found 1 todo(s):"))
	assert.Contains(t, res.Text(), "task 2", "newest first")
}

func TestCall_ToolErrorsAreText(t *testing.T) {
	f := newFixture(t, "system-key")

	cases := []struct {
		name, tool, args, want string
	}{
		{"empty title", "create_todo", `{"title":"  ","user_id":1}`, "Error creating todo: Title is required"},
		{"unknown owner", "create_todo", `{"title":"x","user_id":999}`, "User with ID 999 not found"},
		{"bad due date", "create_todo", `{"title":"x","user_id":1,"due_date":"tomorrow"}`, "Error creating todo: Invalid due_date format"},
		{"missing todo", "update_todo", `{"todo_id":42,"title":"y"}`, "Todo with ID 42 not found"},
		{"blank update title", "update_todo", `{"todo_id":42,"title":""}`, "Error updating todo: Title is required"},
		{"missing delete", "delete_todo", `{"todo_id":7}`, "Todo with ID 7 not found"},
		{"no user selector", "get_user_info", `{}`, "Error getting user info: Either user_id or username is required"},
		{"unknown username", "get_user_info", `{"username":"nobody"}`, "User with username 'nobody' not found"},
		{"unknown tool", "drop_tables", `{}`, "Unknown tool: drop_tables"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.call(t, tc.tool, tc.args, nil)
			assert.True(t, res.IsError)
			assert.True(t, strings.HasPrefix(res.Text(), tc.want), res.Text())
		})
	}
}

func TestCall_SchemaRejectsArguments(t *testing.T) {
	f := newFixture(t, "system-key")

	cases := []struct {
		tool, args string
	}{
		{"create_todo", `{"title":"x"}`},
		{"create_todo", `{"title":"x","user_id":"1"}`},
		{"create_todo", `{"title":"x","user_id":1,"status":"done"}`},
		{"list_todos", `{"limit":0}`},
		{"list_todos", `{"limit":101}`},
		{"list_todos", `{"priority":"urgent"}`},
		{"get_todo", `{}`},
		{"get_todo", `{"todo_id":1.5}`},
		{"delete_todo", `{"todo_id":0}`},
		{"update_todo", `[1,2]`},
	}
	for _, tc := range cases {
		t.Run(tc.tool+" "+tc.args, func(t *testing.T) {
			res := f.call(t, tc.tool, tc.args, nil)
			assert.True(t, res.IsError)
			assert.True(t, strings.HasPrefix(res.Text(), "Invalid arguments for "+tc.tool+": "), res.Text())
		})
	}

	res := f.call(t, "list_todos", ``, nil)
	assert.False(t, res.IsError, "missing arguments are an empty object")
}

func TestCall_Authentication(t *testing.T) {
	f := newFixture(t, "")

	res := f.call(t, "list_todos", `{}`, nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: invalid or missing API key", res.Text())

	res = f.call(t, "list_todos", `{}`, bearer("bogus"))
	assert.True(t, res.IsError)

	res = f.call(t, "list_todos", `{}`, bearer("system-key"))
	assert.False(t, res.IsError, res.Text())

	res = f.call(t, "list_todos", `{}`, map[string]interface{}{"authorization": "bearer system-key"})
	assert.False(t, res.IsError, "scheme is case-insensitive")

	res = f.call(t, "list_todos", `{}`, map[string]interface{}{"x-api-key": "alice-key"})
	assert.False(t, res.IsError, res.Text())

	res = f.call(t, "list_todos", `{}`, map[string]interface{}{"authorization": "Bearer bogus", "x-api-key": "system-key"})
	assert.True(t, res.IsError, "a bad bearer key is not rescued by x-api-key")

	// The default key does not override an explicit bad one.
	f = newFixture(t, "system-key")
	res = f.call(t, "list_todos", `{}`, bearer("bogus"))
	assert.True(t, res.IsError)
}

func TestCall_UserBoundKeyIsScoped(t *testing.T) {
	f := newFixture(t, "system-key")
	alice := bearer("alice-key")

	res := f.call(t, "create_todo", fmt.Sprintf(`{"title":"bob's","user_id":%d}`, f.bob.ID), nil)
	require.False(t, res.IsError, res.Text())
	res = f.call(t, "create_todo", fmt.Sprintf(`{"title":"claimed for bob","user_id":%d}`, f.bob.ID), alice)
	require.False(t, res.IsError, res.Text())
	assert.Equal(t, "✅ Successfully created todo #2: claimed for bob", res.Text())

	res = f.call(t, "get_todo", `{"todo_id":2}`, nil)
	assert.Contains(t, res.Text(), fmt.Sprintf("Owner: User ID %d", f.alice.ID), "owner follows the key")

	res = f.call(t, "list_todos", `{}`, alice)
	assert.True(t, strings.HasPrefix(res.Text(), "Found 1 todo(s):"))
	assert.NotContains(t, res.Text(), "bob's")

	for _, tool := range []string{"get_todo", "delete_todo"} {
		res = f.call(t, tool, `{"todo_id":1}`, alice)
		assert.True(t, res.IsError)
		assert.Equal(t, "Todo with ID 1 not found", res.Text())
	}
	res = f.call(t, "update_todo", `{"todo_id":1,"title":"mine now"}`, alice)
	assert.Equal(t, "Todo with ID 1 not found", res.Text())

	res = f.call(t, "get_user_info", fmt.Sprintf(`{"user_id":%d}`, f.bob.ID), alice)
	assert.True(t, res.IsError)
	assert.Equal(t, fmt.Sprintf("User with ID %d not found", f.bob.ID), res.Text())
	res = f.call(t, "get_user_info", `{"username":"bob"}`, alice)
	assert.Equal(t, "User with username 'bob' not found", res.Text())

	res = f.call(t, "get_user_info", `{"username":"alice"}`, alice)
	require.False(t, res.IsError, res.Text())
	assert.True(t, strings.HasPrefix(res.Text(), fmt.Sprintf("User Information:\nID: %d\nUsername: alice\nEmail: alice@night.city\n", f.alice.ID)))
	assert.True(t, strings.HasSuffix(res.Text(), "Total TODOs: 1"))

	res = f.call(t, "get_user_info", fmt.Sprintf(`{"user_id":%d}`, f.bob.ID), nil)
	require.False(t, res.IsError, res.Text())
	assert.True(t, strings.HasSuffix(res.Text(), "Total TODOs: 1"))
}

func TestCall_WithKeyManager(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryStore()
	u := &models.User{Username: "vee", Email: "vee@night.city"}
	require.NoError(t, db.CreateUser(ctx, u))

	keys := apikey.NewManager(&apikey.FileBackend{Path: filepath.Join(t.TempDir(), "api_keys.json")})
	raw, err := keys.Generate(ctx, "vee's agent", &u.ID)
	require.NoError(t, err)

	srv, err := New(todo.NewService(db), keys, "", zap.NewNop())
	require.NoError(t, err)

	res := srv.Call(ctx, "create_todo", json.RawMessage(`{"title":"from agent","user_id":99}`), bearer(raw))
	require.False(t, res.IsError, res.Text())
	assert.Equal(t, "✅ Successfully created todo #1: from agent", res.Text())

	listed, err := keys.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotNil(t, listed[0].LastUsed)

	ok, err := keys.Revoke(ctx, raw)
	require.NoError(t, err)
	require.True(t, ok)

	res = srv.Call(ctx, "list_todos", json.RawMessage(`{}`), bearer(raw))
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: invalid or missing API key", res.Text())
}
