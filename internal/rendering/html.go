package rendering

import (
	"bytes"
	"fmt"
	"html/template"
)

var pageTemplate = template.Must(template.New("cv").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: {{.Width}}pt {{.Height}}pt; margin: 0; }
html, body { margin: 0; padding: 0; }
.page {
  box-sizing: border-box;
  width: {{.Width}}pt;
  height: {{.Height}}pt;
  padding: {{.Margin}}pt;
  font-family: Helvetica, Arial, sans-serif;
  font-size: {{.FontSize}}pt;
  line-height: {{.LineHeight}};
  overflow: hidden;
  page-break-after: always;
}
.page:last-child { page-break-after: auto; }
.line { white-space: pre; min-height: {{.LineHeight}}em; }
</style>
</head>
<body>
{{- range .Pages}}
<div class="page">
{{- range .}}
<div class="line">{{.}}</div>
{{- end}}
</div>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Title      string
	Width      string
	Height     string
	Margin     string
	FontSize   string
	LineHeight string
	Pages      [][]string
}

func pt(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// BuildHTML lays out text as fixed-size pages. Each wrapped line is placed
// verbatim so the browser does not re-flow it.
func BuildHTML(title, text string, layout Layout) (string, error) {
	lines := WrapText(text, layout.ContentWidth, layout.FontSize)
	data := pageData{
		Title:      title,
		Width:      pt(layout.PageWidth),
		Height:     pt(layout.PageHeight),
		Margin:     pt(layout.Margin),
		FontSize:   pt(layout.FontSize),
		LineHeight: pt(layout.LineHeight),
		Pages:      Paginate(lines, layout.LinesPerPage()),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", &TemplateError{Message: "failed to execute page template", Cause: err}
	}
	return buf.String(), nil
}
