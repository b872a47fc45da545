package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/hyperjump/artcollector/internal/models"
	"github.com/hyperjump/artcollector/internal/search"
)

// LoadingText is the message of the loading indicator.
const LoadingText = "Searching..."

//go:embed templates/*.html
var templateFS embed.FS

// PageView is everything the page template renders.
type PageView struct {
	Form  search.FormView
	State State
}

// Renderer renders the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("ui").Funcs(template.FuncMap{
		"loadingText": func() string { return LoadingText },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderPage writes the full page.
func (r *Renderer) RenderPage(w io.Writer, view PageView) error {
	return r.tmpl.ExecuteTemplate(w, "page", view)
}

// RenderResults writes the results list alone, as returned to the page script.
func (r *Renderer) RenderResults(w io.Writer, records []models.ResultRecord) error {
	return r.tmpl.ExecuteTemplate(w, "results", records)
}

// RenderLoading writes the loading indicator.
func (r *Renderer) RenderLoading(w io.Writer) error {
	return r.tmpl.ExecuteTemplate(w, "loading", nil)
}
