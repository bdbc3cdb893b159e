package todo

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/auth"
	"github.com/ayush/cybertodo/internal/forms"
	"github.com/ayush/cybertodo/internal/models"
	"github.com/ayush/cybertodo/internal/web"
)

// Handler serves the server-rendered todo pages.
type Handler struct {
	svc    *Service
	render *web.Renderer
}

func NewHandler(svc *Service, render *web.Renderer) *Handler {
	return &Handler{svc: svc, render: render}
}

type dashboardPage struct {
	Todos           []models.Todo
	Stats           models.Stats
	CurrentStatus   string
	CurrentPriority string
}

type formPage struct {
	Form   *forms.TodoForm
	Todo   *models.Todo
	Action string
}

// Index sends signed-in users to their dashboard and shows the landing
// page otherwise.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if auth.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render.Render(w, r, http.StatusOK, "index", web.Page{Title: "Home"})
}

// Dashboard lists the user's todos by priority with optional filters.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	scope := UserScope(user.ID)

	statusFilter := queryOr(r, "status", "all")
	priorityFilter := queryOr(r, "priority", "all")

	f := models.TodoFilter{Order: models.OrderPriority}
	if statusFilter != "all" {
		f.Status = models.Status(statusFilter)
	}
	if priorityFilter != "all" {
		f.Priority = models.Priority(priorityFilter)
	}

	page := web.Page{Title: "Dashboard", User: user}
	todos, err := h.svc.List(r.Context(), scope, f)
	if apperr.Is(err, apperr.KindValidation) {
		page.Flashes = append(page.Flashes, web.Flash{Category: "warning", Message: err.Error()})
		todos, err = nil, nil
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	stats, err := h.svc.Stats(r.Context(), scope)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page.Data = dashboardPage{
		Todos:           todos,
		Stats:           stats,
		CurrentStatus:   statusFilter,
		CurrentPriority: priorityFilter,
	}
	h.render.Render(w, r, http.StatusOK, "dashboard", page)
}

// NewForm shows an empty todo form.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "todo_form", web.Page{
		Title: "New TODO",
		User:  auth.UserFrom(r.Context()),
		Data:  formPage{Form: forms.NewTodoForm(), Action: "/todo/new"},
	})
}

// Create handles the new todo form.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := forms.TodoFormFromValues(r.PostForm)
	page := web.Page{Title: "New TODO", User: user, Data: formPage{Form: form, Action: "/todo/new"}}
	if !form.Validate() {
		h.render.Render(w, r, http.StatusBadRequest, "todo_form", page)
		return
	}

	_, err := h.svc.Create(r.Context(), UserScope(user.ID), NewTodo{
		Title:       form.Title,
		Description: form.DescriptionPtr(),
		Status:      models.Status(form.Status),
		Priority:    models.Priority(form.Priority),
		DueDate:     form.ParsedDueDate,
	})
	if err != nil {
		page.Flashes = []web.Flash{{Category: "danger", Message: apperr.BodyOf(err).Message}}
		h.render.Render(w, r, apperr.Status(err), "todo_form", page)
		return
	}

	h.render.Flash(w, r, "success", "TODO item created successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// EditForm shows the edit form pre-filled with the todo.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	h.render.Render(w, r, http.StatusOK, "todo_form", web.Page{
		Title: "Edit TODO",
		User:  user,
		Data:  formPage{Form: forms.TodoFormFromTodo(t), Todo: t, Action: editPath(t.ID)},
	})
}

// Update handles the edit form.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := forms.TodoFormFromValues(r.PostForm)
	page := web.Page{Title: "Edit TODO", User: user, Data: formPage{Form: form, Todo: t, Action: editPath(t.ID)}}
	if !form.Validate() {
		h.render.Render(w, r, http.StatusBadRequest, "todo_form", page)
		return
	}

	status := models.Status(form.Status)
	priority := models.Priority(form.Priority)
	description := form.Description
	_, err := h.svc.Update(r.Context(), UserScope(user.ID), t.ID, Patch{
		Title:        &form.Title,
		Description:  &description,
		Status:       &status,
		Priority:     &priority,
		DueDate:      form.ParsedDueDate,
		ClearDueDate: form.ParsedDueDate == nil,
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			h.notFound(w, r)
			return
		}
		page.Flashes = []web.Flash{{Category: "danger", Message: apperr.BodyOf(err).Message}}
		h.render.Render(w, r, apperr.Status(err), "todo_form", page)
		return
	}

	h.render.Flash(w, r, "success", "TODO item updated successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Delete removes the todo.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	id, ok := todoID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if _, err := h.svc.Delete(r.Context(), UserScope(user.ID), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render.Flash(w, r, "success", "TODO item deleted successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Toggle flips the todo between pending and completed.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	id, ok := todoID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if _, err := h.svc.Toggle(r.Context(), UserScope(user.ID), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render.Flash(w, r, "success", "TODO status updated!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Todo, bool) {
	user := auth.UserFrom(r.Context())
	id, ok := todoID(r)
	if !ok {
		h.notFound(w, r)
		return nil, false
	}
	t, err := h.svc.Get(r.Context(), UserScope(user.ID), id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return t, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.Is(err, apperr.KindNotFound) {
		h.notFound(w, r)
		return
	}
	http.Error(w, "internal server error", apperr.Status(err))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusNotFound, "not_found", web.Page{
		Title: "Not Found",
		User:  auth.UserFrom(r.Context()),
	})
}

func todoID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func editPath(id int64) string {
	return "/todo/" + strconv.FormatInt(id, 10) + "/edit"
}

func queryOr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
