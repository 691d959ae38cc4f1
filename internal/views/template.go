package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	localcontext "github.com/rahul4469/birdwatcher/context"
)

// TemplateFS holds the templates/ tree. It is set once at startup.
var TemplateFS fs.FS

// Template wraps a parsed template with helper methods for rendering.
type Template struct {
	tmpl *template.Template
}

// TemplateData is the standard data structure passed to all templates.
type TemplateData struct {
	// CSRF token for forms, plus the ready made hidden input
	CSRFToken string
	CSRFField template.HTML

	// Flash messages
	Error   string
	Success string
	Info    string

	// Page-specific data
	Data interface{}

	Title       string
	Description string

	// Request info (useful for active nav highlighting)
	CurrentPath string

	Year          int
	IsDevelopment bool
}

// DefaultFuncMap returns the template functions available in all templates.
func DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"trim":     strings.TrimSpace,
		"truncate": truncate,

		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"timeAgo":        timeAgo,

		"formatNumber": formatNumber,

		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },

		"default": defaultValue,
		"seq":     seq,

		"navLinks": func() []NavLink { return navLinks },
	}
}

// NavLink is one entry of the top navigation.
type NavLink struct {
	Href  string
	Label string
}

var navLinks = []NavLink{
	{Href: "/", Label: "Home"},
	{Href: "/about", Label: "About"},
	{Href: "/gallery", Label: "Gallery"},
	{Href: "/contact", Label: "Contact"},
}

// ParseFS parses templates from TemplateFS.
// It automatically includes the base layout and any partials.
//
// Usage:
//
//	tmpl, err := views.ParseFS("pages/home.gohtml")
//	// This will parse:
//	// - templates/layouts/base.gohtml
//	// - templates/partials/*.gohtml
//	// - templates/pages/home.gohtml
func ParseFS(patterns ...string) (*Template, error) {
	if TemplateFS == nil {
		return nil, fmt.Errorf("views: TemplateFS is not set")
	}

	tmpl := template.New("").Funcs(DefaultFuncMap())

	baseContent, err := fs.ReadFile(TemplateFS, "templates/layouts/base.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}
	tmpl, err = tmpl.Parse(string(baseContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}

	// Partials define their own names with {{define "name"}}
	partialMatches, err := fs.Glob(TemplateFS, "templates/partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	for _, match := range partialMatches {
		content, err := fs.ReadFile(TemplateFS, match)
		if err != nil {
			return nil, fmt.Errorf("failed to read partial %s: %w", match, err)
		}
		tmpl, err = tmpl.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", match, err)
		}
	}

	// Pages define the "content" block rendered by the base layout
	for _, pattern := range patterns {
		content, err := fs.ReadFile(TemplateFS, "templates/"+pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", pattern, err)
		}
		tmpl, err = tmpl.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", pattern, err)
		}
	}

	return &Template{tmpl: tmpl}, nil
}

// MustParseFS is like ParseFS but panics on error.
func MustParseFS(patterns ...string) *Template {
	tmpl, err := ParseFS(patterns...)
	if err != nil {
		panic(fmt.Sprintf("failed to parse templates: %v", err))
	}
	return tmpl
}

// Execute renders the template to the given writer with the provided data.
func (t *Template) Execute(w io.Writer, data *TemplateData) error {
	return t.tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteHTTP renders the template as a 200 response.
func (t *Template) ExecuteHTTP(w http.ResponseWriter, r *http.Request, data *TemplateData) {
	t.ExecuteHTTPWithStatus(w, r, http.StatusOK, data)
}

// ExecuteHTTPWithStatus renders the template with a custom HTTP status code.
// Output is buffered so a failing template never sends a half page.
func (t *Template) ExecuteHTTPWithStatus(w http.ResponseWriter, r *http.Request, status int, data *TemplateData) {
	if data == nil {
		data = &TemplateData{}
	}
	data.CurrentPath = r.URL.Path
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}

	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		localcontext.Logger(r.Context()).Error("Template execution error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	if length <= 3 {
		return string(r[:length])
	}
	return string(r[:length-3]) + "..."
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

func timeAgo(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return formatDate(t)
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func defaultValue(value, defaultVal interface{}) interface{} {
	if value == nil || value == "" || value == 0 {
		return defaultVal
	}
	return value
}

func seq(start, end int) []int {
	if end < start {
		return nil
	}
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}
