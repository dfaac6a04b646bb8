package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

// TemplateName keys the closed set of known templates. Dynamic lookup by
// arbitrary string is deliberately impossible.
type TemplateName string

const (
	TemplateChapter             TemplateName = "chapter"
	TemplateChapterIndex        TemplateName = "chapter_index"
	TemplateStoryList           TemplateName = "storylist"
	TemplateScopeStats          TemplateName = "scope_stats"
	TemplateSeries              TemplateName = "series"
	TemplatePublisher           TemplateName = "publisher"
	TemplatePublisherCategories TemplateName = "publisher_categories"
	TemplateIndex               TemplateName = "index"
	TemplateGlobalStats         TemplateName = "global_stats"
	TemplateInfo                TemplateName = "info"
	TemplateAcknowledgements    TemplateName = "acknowledgements"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Registry holds the parsed templates and is immutable after construction;
// it is shared between workers without locks.
type Registry struct {
	root *template.Template
}

// NewRegistry parses the embedded templates with the filter function table
// attached.
func NewRegistry() (*Registry, error) {
	root := template.New("zimfiction").Funcs(template.FuncMap{
		"escape":           Escape,
		"striptags":        StripTags,
		"format_date":      FormatDate,
		"format_number":    FormatNumber,
		"format_size":      FormatSize,
		"normalize_tag":    NormalizeTag,
		"render_storytext": func(s string) template.HTML { return template.HTML(RenderStoryText(s)) },
		"repair_html":      func(s string) template.HTML { return template.HTML(RepairHTML(s)) },
		"default_index": func(list []string, i int, fallback string) string {
			return DefaultIndex(list, i, fallback)
		},
	})
	root, err := root.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Registry{root: root}, nil
}

// Render expands one template into bytes.
func (r *Registry) Render(name TemplateName, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.root.ExecuteTemplate(&buf, string(name), data); err != nil {
		return nil, fmt.Errorf("render: expand template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
