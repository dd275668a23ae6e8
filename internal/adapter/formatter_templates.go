package adapter

import (
	"embed"
	"html/template"
	"io"
	"sync"
)

//go:embed templates/*.tmpl
var pageTemplateFS embed.FS

var (
	pageTemplates *template.Template
	pageOnce      sync.Once
	pageErr       error
)

func loadPageTemplates() (*template.Template, error) {
	pageOnce.Do(func() {
		funcMap := template.FuncMap{
			"add": func(a, b int) int { return a + b },
			"sub": func(a, b int) int { return a - b },
		}
		tmpl := template.New("pages").Funcs(funcMap)
		pageTemplates, pageErr = tmpl.ParseFS(pageTemplateFS, "templates/*.tmpl")
	})
	return pageTemplates, pageErr
}

// RenderPage executes the named page template into w.
func RenderPage(w io.Writer, name string, data any) error {
	tmpl, err := loadPageTemplates()
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, name, data)
}
