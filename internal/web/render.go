// Package web renders the server-side HTML pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data every template receives.
type Page struct {
	Title   string
	User    *models.User
	Flashes []Flash
	Data    any
}

// Renderer executes page templates wrapped in the shared layout.
type Renderer struct {
	pages   map[string]*template.Template
	flashes *Flasher
}

var funcs = template.FuncMap{
	"dueDate": models.FormatDueDate,
	"date": func(t time.Time) string {
		return t.UTC().Format("2006-01-02")
	},
	"overdue": func(t models.Todo) bool {
		return t.IsOverdue(time.Now())
	},
	"statuses":   func() []models.Status { return models.Statuses },
	"priorities": func() []models.Priority { return models.Priorities },
}

// NewRenderer parses every page under templates/ against layout.html.
func NewRenderer(flashes *Flasher) (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[strings.TrimSuffix(base, ".html")] = tmpl
	}
	return &Renderer{pages: pages, flashes: flashes}, nil
}

// Render writes page with status. Queued flashes are consumed and shown
// before p.Flashes.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, p Page) {
	tmpl, ok := rn.pages[page]
	if !ok {
		zap.L().Error("unknown template", zap.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	p.Flashes = append(rn.flashes.Pop(w, r), p.Flashes...)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		zap.L().Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Flash queues a message for the next rendered page.
func (rn *Renderer) Flash(w http.ResponseWriter, r *http.Request, category, message string) {
	rn.flashes.Add(w, r, category, message)
}
