// ABOUTME: HTML status page listing registered services and their tools.
// ABOUTME: Service and tool descriptions are rendered from markdown.

package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
)

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
<title>toolgate</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a2e; }
h1 { border-bottom: 2px solid #e0e0e8; padding-bottom: .5rem; }
.service { margin: 1.5rem 0; padding: 1rem; border: 1px solid #e0e0e8; border-radius: 8px; }
.tool { margin: .5rem 0 .5rem 1rem; }
code { background: #f4f4f8; padding: .1rem .3rem; border-radius: 4px; }
.muted { color: #6a6a7a; font-size: .9rem; }
</style>
</head>
<body>
<h1>toolgate</h1>
<p class="muted">{{len .Services}} services, {{.ToolCount}} tools registered</p>
{{range .Services}}
<div class="service">
<h2>{{.Name}} <code>{{.ID}}</code></h2>
{{.Description}}
<p class="muted">{{.BaseURL}}</p>
{{range .Tools}}
<div class="tool"><code>{{.QualifiedName}}</code> — {{.Description}}</div>
{{end}}
</div>
{{end}}
</body>
</html>
`))

type statusService struct {
	ID          string
	Name        string
	Description template.HTML
	BaseURL     string
	Tools       []statusTool
}

type statusTool struct {
	QualifiedName string
	Description   string
}

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	services := s.registry.ListServices()

	data := struct {
		Services  []statusService
		ToolCount int
	}{}
	for _, svc := range services {
		entry := statusService{
			ID:          svc.ID,
			Name:        svc.Name,
			Description: renderMarkdown(svc.Description),
			BaseURL:     svc.BaseURL,
		}
		for _, tool := range svc.Tools {
			entry.Tools = append(entry.Tools, statusTool{
				QualifiedName: tool.QualifiedName(),
				Description:   tool.Description,
			})
			data.ToolCount++
		}
		data.Services = append(data.Services, entry)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTemplate.Execute(w, data); err != nil {
		s.logger.Error("rendering status page", "error", err)
	}
}

// renderMarkdown converts a markdown description to HTML, falling back to the
// raw text on conversion failure.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
