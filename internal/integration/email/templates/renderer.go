// Package templates renders the embedded email bodies.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed *.html *.txt
var files embed.FS

// Renderer executes a template pair: name.html for the HTML part and
// name.txt for the plain text part.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	html, err := htmltemplate.ParseFS(files, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML templates: %w", err)
	}
	text, err := texttemplate.ParseFS(files, "*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

// Render returns both parts. A missing text template yields an empty text
// part; a missing HTML template is an error.
func (r *Renderer) Render(name string, data any) (html string, text string, err error) {
	var out bytes.Buffer
	if err := r.html.ExecuteTemplate(&out, name+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s.html: %w", name, err)
	}
	html = out.String()

	if r.text.Lookup(name+".txt") == nil {
		return html, "", nil
	}
	var plain strings.Builder
	if err := r.text.ExecuteTemplate(&plain, name+".txt", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s.txt: %w", name, err)
	}
	return html, plain.String(), nil
}

// PasswordResetData contains data for password reset email template.
type PasswordResetData struct {
	UserName  string
	ResetURL  string
	ExpiresIn string
}

// PlanShareData contains data for plan share email template.
type PlanShareData struct {
	SenderName    string
	SenderEmail   string
	RecipientName string
	PlanTitle     string
	PlanURL       string
	Message       string
	Narrative     string
	// NarrativeHTML is goldmark output with raw HTML disabled.
	NarrativeHTML htmltemplate.HTML
	TotalRevenue  string
	TotalProfit   string
	AverageMargin string
	BreakEven     string
	Competitors   int
	RoadmapItems  int
}
