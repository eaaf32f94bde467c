// Package web embeds the form page served by the HTTP host.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageTemplate parses the embedded form page. The template expects a
// dataset.Choices value.
func PageTemplate() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/index.html")
}
