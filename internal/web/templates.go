package web

import (
	"embed"
	"html/template"
	"path"
	"strings"
	"time"

	"github.com/jamiewells/portfolio/internal/content"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses every embedded template, including the admin pages.
func Templates() (*template.Template, error) {
	funcs := template.FuncMap{
		"markdown": content.Markdown,
		"join":     strings.Join,
		"mul":      func(a, b int) int { return a * b },
		"add1":     func(i int) int { return i + 1 },
		"asset":    assetURL,
		"year":     func() int { return time.Now().Year() },
	}
	return template.New("_root").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// assetURL maps an image reference to its public URL under /static.
func assetURL(ref string) string {
	return path.Join("/static", "/"+strings.TrimPrefix(ref, "/"))
}
