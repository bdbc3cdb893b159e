package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/forms"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/web"
)

// Handler holds the login, registration and logout pages.
type Handler struct {
	svc          *Service
	render       *web.Renderer
	secureCookie bool
}

func NewHandler(svc *Service, render *web.Renderer, secureCookie bool) *Handler {
	return &Handler{svc: svc, render: render, secureCookie: secureCookie}
}

type loginPage struct {
	Form *forms.LoginForm
	Next string
}

type registerPage struct {
	Form *forms.RegistrationForm
}

// LoginForm shows the login page.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render.Render(w, r, http.StatusOK, "login", web.Page{
		Title: "Sign In",
		Data:  loginPage{Form: forms.NewLoginForm(nil), Next: safeNext(r.URL.Query().Get("next"))},
	})
}

// Login authenticates the submitted credentials and opens a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := forms.NewLoginForm(r.PostForm)
	next := safeNext(r.URL.Query().Get("next"))
	page := web.Page{Title: "Sign In", Data: loginPage{Form: form, Next: next}}

	if !form.Validate() {
		h.render.Render(w, r, http.StatusBadRequest, "login", page)
		return
	}

	user, sid, err := h.svc.Login(r.Context(), models.LoginRequest{Username: form.Username, Password: form.Password})
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			page.Flashes = []web.Flash{{Category: "danger", Message: ErrInvalidCredentials}}
			h.render.Render(w, r, http.StatusUnauthorized, "login", page)
			return
		}
		page.Flashes = []web.Flash{{Category: "danger", Message: "Login failed, please try again."}}
		h.render.Render(w, r, http.StatusInternalServerError, "login", page)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})
	h.render.Flash(w, r, "success", "Welcome back, "+user.Username+"!")
	if next == "" {
		next = "/dashboard"
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// RegisterForm shows the registration page.
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render.Render(w, r, http.StatusOK, "register", web.Page{
		Title: "Register",
		Data:  registerPage{Form: forms.NewRegistrationForm(nil)},
	})
}

// Register creates the account and sends the user to the login page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := forms.NewRegistrationForm(r.PostForm)

	_, err := h.svc.Register(r.Context(), models.RegisterRequest{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Confirm:  form.Password2,
	})
	if err != nil {
		page := web.Page{Title: "Register", Data: registerPage{Form: form}}
		if fields := forms.ErrorsFrom(err); fields != nil {
			form.Errors = fields
		} else {
			page.Flashes = []web.Flash{{Category: "danger", Message: apperr.BodyOf(err).Message}}
		}
		h.render.Render(w, r, apperr.Status(err), "register", page)
		return
	}

	h.render.Flash(w, r, "success", "Registration successful! You can now log in.")
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := SessionFrom(r.Context()); sid != "" {
		h.svc.Logout(r.Context(), sid)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	h.render.Flash(w, r, "info", "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusFound)
}

// safeNext only allows local absolute paths as redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
