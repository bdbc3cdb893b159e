package todo

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/auth"
	"github.com/ayush/cybertodo/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// APIHandler serves the JSON API under /api.
type APIHandler struct {
	svc *Service
	now func() time.Time
}

func NewAPIHandler(svc *Service) *APIHandler {
	return &APIHandler{svc: svc, now: time.Now}
}

func (h *APIHandler) scope(r *http.Request) Scope {
	return UserScope(auth.UserFrom(r.Context()).ID)
}

func (h *APIHandler) render(todos []models.Todo) []models.TodoJSON {
	now := h.now()
	out := make([]models.TodoJSON, 0, len(todos))
	for i := range todos {
		out = append(out, todos[i].JSON(now))
	}
	return out
}

// List returns the user's todos, newest first, filtered by ?status= and
// ?priority=.
func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	todos, err := h.svc.List(r.Context(), h.scope(r), models.TodoFilter{
		Status:   models.Status(q.Get("status")),
		Priority: models.Priority(q.Get("priority")),
		Order:    models.OrderCreated,
	})
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.render(todos))
}

// Create adds a todo from a JSON body.
func (h *APIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.TodoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body"))
		return
	}
	if in.Title == nil || *in.Title == "" {
		apperr.WriteJSON(w, apperr.Validation("Title is required"))
		return
	}

	nt := NewTodo{Title: *in.Title, Description: in.Description}
	var err error
	if in.Status != nil {
		if nt.Status, err = models.ParseStatus(*in.Status); err != nil {
			apperr.WriteJSON(w, apperr.Validation("%s", err.Error()))
			return
		}
	}
	if in.Priority != nil {
		if nt.Priority, err = models.ParsePriority(*in.Priority); err != nil {
			apperr.WriteJSON(w, apperr.Validation("%s", err.Error()))
			return
		}
	}
	if in.DueDate != nil {
		if nt.DueDate, err = models.ParseDueDate(*in.DueDate); err != nil {
			apperr.WriteJSON(w, err)
			return
		}
	}

	t, err := h.svc.Create(r.Context(), h.scope(r), nt)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t.JSON(h.now()))
}

// Get returns one todo.
func (h *APIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		apperr.WriteJSON(w, apperr.NotFound("TODO not found"))
		return
	}
	t, err := h.svc.Get(r.Context(), h.scope(r), id)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.JSON(h.now()))
}

// Update applies the supplied fields of a JSON body.
func (h *APIHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		apperr.WriteJSON(w, apperr.NotFound("TODO not found"))
		return
	}
	// Foreign ids are 404 even when the body is bad.
	if _, err := h.svc.Get(r.Context(), h.scope(r), id); err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	var in models.TodoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperr.WriteJSON(w, apperr.Validation("No data provided"))
		return
	}
	p, err := patchFromInput(in)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	t, err := h.svc.Update(r.Context(), h.scope(r), id, p)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.JSON(h.now()))
}

// Delete removes a todo.
func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		apperr.WriteJSON(w, apperr.NotFound("TODO not found"))
		return
	}
	if _, err := h.svc.Delete(r.Context(), h.scope(r), id); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips a todo between pending and completed.
func (h *APIHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		apperr.WriteJSON(w, apperr.NotFound("TODO not found"))
		return
	}
	t, err := h.svc.Toggle(r.Context(), h.scope(r), id)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.JSON(h.now()))
}

// Stats returns the dashboard counters.
func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), h.scope(r))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Profile returns the current user.
func (h *APIHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context(), auth.UserFrom(r.Context()).ID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// patchFromInput converts a JSON body into a Patch. An empty due_date
// clears it.
func patchFromInput(in models.TodoInput) (Patch, error) {
	p := Patch{Title: in.Title, Description: in.Description}
	if in.Status != nil {
		s, err := models.ParseStatus(*in.Status)
		if err != nil {
			return p, apperr.Validation("%s", err.Error())
		}
		p.Status = &s
	}
	if in.Priority != nil {
		pr, err := models.ParsePriority(*in.Priority)
		if err != nil {
			return p, apperr.Validation("%s", err.Error())
		}
		p.Priority = &pr
	}
	if in.DueDate != nil {
		due, err := models.ParseDueDate(*in.DueDate)
		if err != nil {
			return p, err
		}
		p.DueDate = due
		p.ClearDueDate = due == nil
	}
	return p, nil
}
