package forms

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/store"
)

// MaxTitleLen matches the max rule on TodoForm.Title.
const MaxTitleLen = 200

// LoginForm is the body of POST /auth/login.
type LoginForm struct {
	Username string `form:"username" validate:"notblank,min=3,max=80"`
	Password string `form:"password" validate:"notblank"`
	Errors   Errors `form:"-"`
}

var loginMessages = messages{
	"username.notblank": "Username is required",
	"username.min":      "Username must be between 3 and 80 characters",
	"username.max":      "Username must be between 3 and 80 characters",
	"password.notblank": "Password is required",
}

func NewLoginForm(v url.Values) *LoginForm {
	return &LoginForm{
		Username: strings.TrimSpace(v.Get("username")),
		Password: v.Get("password"),
		Errors:   Errors{},
	}
}

func (f *LoginForm) Validate() bool {
	checkStruct(f, loginMessages, f.Errors)
	return len(f.Errors) == 0
}

// UserLookup is what registration needs to enforce uniqueness.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// RegistrationForm is the body of POST /auth/register.
type RegistrationForm struct {
	Username  string `form:"username" validate:"notblank,min=3,max=80"`
	Email     string `form:"email" validate:"notblank,email,max=120"`
	Password  string `form:"password" validate:"notblank,min=6"`
	Password2 string `form:"password2" validate:"notblank,eqfield=Password"`
	Errors    Errors `form:"-"`
}

var registrationMessages = messages{
	"username.notblank":  "Username is required",
	"username.min":       "Username must be between 3 and 80 characters",
	"username.max":       "Username must be between 3 and 80 characters",
	"email.notblank":     "Email is required",
	"email.email":        "Please enter a valid email address",
	"email.max":          "Email must be at most 120 characters",
	"password.notblank":  "Password is required",
	"password.min":       "Password must be at least 6 characters long",
	"password2.notblank": "Please confirm your password",
	"password2.eqfield":  "Passwords must match",
}

func NewRegistrationForm(v url.Values) *RegistrationForm {
	return &RegistrationForm{
		Username:  strings.TrimSpace(v.Get("username")),
		Email:     strings.TrimSpace(v.Get("email")),
		Password:  v.Get("password"),
		Password2: v.Get("password2"),
		Errors:    Errors{},
	}
}

// Validate checks field rules and then uniqueness against users. A lookup
// failure other than not-found is returned as an error.
func (f *RegistrationForm) Validate(ctx context.Context, users UserLookup) (bool, error) {
	checkStruct(f, registrationMessages, f.Errors)

	if !f.Errors.Has("username") {
		taken, err := exists(users.GetUserByUsername(ctx, f.Username))
		if err != nil {
			return false, err
		}
		if taken {
			f.Errors.Add("username", "Please use a different username.")
		}
	}
	if !f.Errors.Has("email") {
		taken, err := exists(users.GetUserByEmail(ctx, f.Email))
		if err != nil {
			return false, err
		}
		if taken {
			f.Errors.Add("email", "Please use a different email address.")
		}
	}
	return len(f.Errors) == 0, nil
}

func exists(u *models.User, err error) (bool, error) {
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

// TodoForm is the body of POST /todo/new and POST /todo/{id}/edit.
type TodoForm struct {
	Title       string `form:"title" validate:"notblank,max=200"`
	Description string `form:"description"`
	Status      string `form:"status" validate:"oneof=pending in_progress completed"`
	Priority    string `form:"priority" validate:"oneof=low medium high critical"`
	DueDate     string `form:"due_date"`
	Errors      Errors `form:"-"`

	// Set by Validate.
	ParsedDueDate *time.Time `form:"-"`
}

var todoMessages = messages{
	"title.notblank": "Title is required",
	"title.max":      "Title must be between 1 and 200 characters",
	"status.oneof":   "Not a valid choice",
	"priority.oneof": "Not a valid choice",
}

// NewTodoForm returns an empty form with default selections.
func NewTodoForm() *TodoForm {
	return &TodoForm{
		Status:   string(models.StatusPending),
		Priority: string(models.PriorityMedium),
		Errors:   Errors{},
	}
}

// TodoFormFromValues binds a submitted form.
func TodoFormFromValues(v url.Values) *TodoForm {
	f := NewTodoForm()
	f.Title = strings.TrimSpace(v.Get("title"))
	f.Description = strings.TrimSpace(v.Get("description"))
	if s := v.Get("status"); s != "" {
		f.Status = s
	}
	if p := v.Get("priority"); p != "" {
		f.Priority = p
	}
	f.DueDate = strings.TrimSpace(v.Get("due_date"))
	return f
}

// TodoFormFromTodo pre-fills the edit form.
func TodoFormFromTodo(t *models.Todo) *TodoForm {
	f := NewTodoForm()
	f.Title = t.Title
	if t.Description != nil {
		f.Description = *t.Description
	}
	f.Status = string(t.Status)
	f.Priority = string(t.Priority)
	f.DueDate = models.FormatDueDate(t.DueDate)
	return f
}

func (f *TodoForm) Validate() bool {
	checkStruct(f, todoMessages, f.Errors)
	if f.DueDate != "" {
		due, err := models.ParseDueDate(f.DueDate)
		if err != nil {
			f.Errors.Add("due_date", err.Error())
		} else {
			f.ParsedDueDate = due
		}
	}
	return len(f.Errors) == 0
}

// DescriptionPtr returns the trimmed description, or nil when blank.
func (f *TodoForm) DescriptionPtr() *string {
	if f.Description == "" {
		return nil
	}
	d := f.Description
	return &d
}

// ErrorsFrom extracts field errors from a validation error, if any.
func ErrorsFrom(err error) Errors {
	var e *apperr.Error
	if errors.As(err, &e) && e.Fields != nil {
		return Errors(e.Fields)
	}
	return nil
}
