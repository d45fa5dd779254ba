// Package plotpage renders benchmark comparison pages as standalone HTML:
// a small template shell around echarts chart fragments.
package plotpage

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
)

const styleTagLen = 8 // len("</style>").

// assetsHost serves echarts.min.js for rendered pages.
const assetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Renderable is the interface for chart components; echarts charts satisfy it.
type Renderable interface {
	Render(w io.Writer) error
}

// Section is one titled chart block within a page.
type Section struct {
	Title    string
	Subtitle string
	Chart    Renderable
}

// Page is a complete visualization page.
type Page struct {
	Title       string
	Description string
	Sections    []Section
}

// NewPage creates a page with the given title and description.
func NewPage(title, description string) *Page {
	return &Page{Title: title, Description: description}
}

// Add appends sections to the page.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.AssetsHost}}echarts.min.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 1100px; color: #1f2430; }
header h1 { margin-bottom: 0.25rem; }
header p { color: #5c6370; margin-top: 0; }
section { margin: 2rem 0; padding: 1rem; border: 1px solid #e2e5ea; border-radius: 8px; }
section h2 { margin-top: 0; }
section p.subtitle { color: #5c6370; }
.echart-box { margin: 0 auto; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
</header>
{{range .Sections}}<section>
<h2>{{.Title}}</h2>
{{if .Subtitle}}<p class="subtitle">{{.Subtitle}}</p>{{end}}
{{.Chart}}
</section>
{{end}}</body>
</html>
`))

type pageData struct {
	Title       string
	Description string
	AssetsHost  string
	Sections    []sectionData
}

type sectionData struct {
	Title    string
	Subtitle string
	Chart    template.HTML
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	data := pageData{
		Title:       p.Title,
		Description: p.Description,
		AssetsHost:  assetsHost,
		Sections:    make([]sectionData, 0, len(p.Sections)),
	}

	for _, section := range p.Sections {
		chartHTML, chartErr := renderChart(section.Chart)
		if chartErr != nil {
			return fmt.Errorf("render section %s: %w", section.Title, chartErr)
		}

		data.Sections = append(data.Sections, sectionData{
			Title:    section.Title,
			Subtitle: section.Subtitle,
			Chart:    template.HTML(chartHTML),
		})
	}

	execErr := pageTemplate.Execute(w, data)
	if execErr != nil {
		return fmt.Errorf("render page: %w", execErr)
	}

	return nil
}

// renderChart renders an echarts chart and keeps only the element and script,
// dropping the full-page wrapper echarts emits.
func renderChart(chart Renderable) (string, error) {
	if chart == nil {
		return "", nil
	}

	var buf bytes.Buffer

	renderErr := chart.Render(&buf)
	if renderErr != nil {
		return "", renderErr
	}

	return extractChartContent(buf.String()), nil
}

// extractChartContent pulls the chart div and its script out of a full HTML
// page. Fragments that are not full pages pass through unchanged.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)

	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			return content
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			return content
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}
}
