package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/forms"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/store"
)

func newService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	sessions, _ := newSessions(t)
	st := store.NewMemoryStore()
	return NewService(st, sessions), st
}

func register(t *testing.T, svc *Service, username, email, password string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: username, Email: email, Password: password, Confirm: password,
	})
	require.NoError(t, err)
	return u
}

func TestService_Register(t *testing.T) {
	svc, st := newService(t)
	u := register(t, svc, "vee", "vee@night.city", "samurai")

	assert.NotZero(t, u.ID)
	assert.True(t, u.CheckPassword("samurai"))

	stored, err := st.GetUserByUsername(context.Background(), "vee")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func TestService_RegisterDuplicatesLeaveStoreUntouched(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	original := register(t, svc, "vee", "vee@night.city", "samurai")

	_, err := svc.Register(ctx, models.RegisterRequest{
		Username: "vee", Email: "new@night.city", Password: "another", Confirm: "another",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "Please use a different username.", forms.ErrorsFrom(err).First("username"))

	_, err = svc.Register(ctx, models.RegisterRequest{
		Username: "jackie", Email: "vee@night.city", Password: "another", Confirm: "another",
	})
	require.Error(t, err)
	assert.Equal(t, "Please use a different email address.", forms.ErrorsFrom(err).First("email"))

	_, err = st.GetUserByUsername(ctx, "jackie")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetUserByEmail(ctx, "new@night.city")
	assert.ErrorIs(t, err, store.ErrNotFound)

	stored, err := st.GetUserByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "vee@night.city", stored.Email)
	assert.True(t, stored.CheckPassword("samurai"))
}

func TestService_RegisterFieldRules(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "v", Email: "nope", Password: "123", Confirm: "321",
	})
	require.Error(t, err)

	fields := forms.ErrorsFrom(err)
	assert.True(t, fields.Has("username"))
	assert.True(t, fields.Has("email"))
	assert.True(t, fields.Has("password"))
	assert.True(t, fields.Has("password2"))
}

func TestService_LoginErrorsAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	register(t, svc, "vee", "vee@night.city", "samurai")

	_, _, errWrongPassword := svc.Login(ctx, models.LoginRequest{Username: "vee", Password: "wrong!"})
	_, _, errUnknownUser := svc.Login(ctx, models.LoginRequest{Username: "nobody", Password: "samurai"})

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownUser)
	assert.True(t, apperr.Is(errWrongPassword, apperr.KindAuth))
	assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())
	assert.Equal(t, ErrInvalidCredentials, errUnknownUser.Error())
}

func TestService_LoginAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	u := register(t, svc, "vee", "vee@night.city", "samurai")

	got, sid, err := svc.Login(ctx, models.LoginRequest{Username: "vee", Password: "samurai"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	uid, ok, err := svc.sessions.Get(ctx, sid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.ID, uid)

	svc.Logout(ctx, sid)
	_, ok, err = svc.sessions.Get(ctx, sid)
	require.NoError(t, err)
	assert.False(t, ok)

	// Logging out twice is harmless.
	svc.Logout(ctx, sid)
	svc.Logout(ctx, "")
}
