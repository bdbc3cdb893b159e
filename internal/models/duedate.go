package models

import (
	"strings"
	"time"

	"github.com/ayush/cybertodo/internal/apperr"
)

const (
	// DueDateDisplayLayout is how due dates are shown and typed in forms.
	DueDateDisplayLayout = "2006-01-02 15:04"
	// DueDateInputLayout is what datetime-local controls submit.
	DueDateInputLayout = "2006-01-02T15:04"
)

// dueDateLayouts are tried in order; zone-less layouts are read as UTC.
// hint is the form shown in the format error.
var dueDateLayouts = []struct {
	layout string
	hint   string
}{
	{DueDateDisplayLayout, "YYYY-MM-DD HH:MM"},
	{DueDateInputLayout, "YYYY-MM-DDTHH:MM"},
	{"2006-01-02T15:04:05", "YYYY-MM-DDTHH:MM:SS"},
	{time.RFC3339, "RFC 3339"},
	{"2006-01-02 15:04:05", "YYYY-MM-DD HH:MM:SS"},
	{"2006-01-02", "YYYY-MM-DD"},
}

// ParseDueDate parses a due date in any accepted layout. An empty string
// yields nil. A value no layout accepts is a format error.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	hints := make([]string, 0, len(dueDateLayouts))
	for _, l := range dueDateLayouts {
		t, err := time.ParseInLocation(l.layout, s, time.UTC)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
		hints = append(hints, l.hint)
	}
	return nil, apperr.Format("Invalid due_date format. Use one of: %s.", strings.Join(hints, ", "))
}

// FormatDueDate renders t in the display layout, or "" for nil.
func FormatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(DueDateDisplayLayout)
}
