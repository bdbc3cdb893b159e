package auth

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/forms"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/store"
)

// ErrInvalidCredentials is the only message a failed login reveals.
const ErrInvalidCredentials = "Invalid username or password"

// Service implements registration, login and logout.
type Service struct {
	store    store.Store
	sessions *SessionStore
}

func NewService(st store.Store, sessions *SessionStore) *Service {
	return &Service{store: st, sessions: sessions}
}

// Register validates req and creates the user. On failure the store is
// left untouched and the error carries per-field messages.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	form := forms.NewRegistrationForm(url.Values{
		"username":  {req.Username},
		"email":     {req.Email},
		"password":  {req.Password},
		"password2": {req.Confirm},
	})

	var user *models.User
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		ok, err := form.Validate(ctx, repo)
		if err != nil {
			return apperr.Persistence(err)
		}
		if !ok {
			return form.Errors.Err()
		}

		u := &models.User{Username: form.Username, Email: form.Email}
		if err := u.SetPassword(form.Password); err != nil {
			return apperr.Persistence(err)
		}
		if err := repo.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.Validation("Please use a different username or email address.")
			}
			return apperr.Persistence(err)
		}
		user = u
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindPersistence) {
			zap.L().Error("register user", zap.String("username", req.Username), zap.Error(err))
		}
		return nil, err
	}
	zap.L().Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate checks credentials without creating a session. Unknown
// users and wrong passwords produce the same AuthError.
func (s *Service) Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	form := forms.NewLoginForm(url.Values{"username": {req.Username}, "password": {req.Password}})
	if !form.Validate() {
		return nil, form.Errors.Err()
	}

	user, err := s.store.GetUserByUsername(ctx, form.Username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Auth(ErrInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if !user.CheckPassword(form.Password) {
		return nil, apperr.Auth(ErrInvalidCredentials)
	}
	return user, nil
}

// Login authenticates and opens a session, returning its id.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	user, err := s.Authenticate(ctx, req)
	if err != nil {
		return nil, "", err
	}
	sid, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		zap.L().Error("create session", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, "", apperr.Persistence(err)
	}
	return user, sid, nil
}

// Logout drops the session. A missing session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		zap.L().Warn("delete session", zap.Error(err))
	}
}
