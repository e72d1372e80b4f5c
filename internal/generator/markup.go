package generator

import (
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/martinramirez09/aiblog/internal/model"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var htmlParams = blackfriday.HTMLRendererParameters{
	Flags: blackfriday.SkipHTML | blackfriday.Safelink,
}

// Render converts any Markdown in the three fields to safe HTML. Raw HTML in
// the input is dropped and only safe link schemes survive.
func Render(c model.GeneratedContent) model.GeneratedContent {
	return model.GeneratedContent{
		Title:          renderField(c.Title),
		Body:           renderField(c.Body),
		SEODescription: renderField(c.SEODescription),
	}
}

func renderField(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	out := blackfriday.Run([]byte(s), blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(htmlParams)))
	return strings.TrimRight(string(out), "\n")
}

// hasText reports whether rendered HTML shows any visible text.
func hasText(rendered string) bool {
	text := html.UnescapeString(tagPattern.ReplaceAllString(rendered, ""))
	return strings.TrimSpace(text) != ""
}
