package generator

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinramirez09/aiblog/internal/logging"
	"github.com/martinramirez09/aiblog/internal/model"
)

type fakeGenerator struct {
	reply string
	err   error
	calls int
	last  string
	wait  bool
}

func (f *fakeGenerator) GenerateText(ctx context.Context, instruction string) (string, error) {
	f.calls++
	f.last = instruction
	if f.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func newNormalizer(gen TextGenerator, opts Options) *Normalizer {
	return NewNormalizer(gen, opts, logging.Discard())
}

func TestGenerateStructuredReply(t *testing.T) {
	gen := &fakeGenerator{reply: "  {\"title\":\"T\",\"body\":\"B\",\"seo_description\":\"S\"}\n"}
	n := newNormalizer(gen, Options{})

	got, err := n.Generate(context.Background(), "write about go")
	require.NoError(t, err)
	assert.Equal(t, model.GeneratedContent{Title: "T", Body: "B", SEODescription: "S"}, got)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.last, `"""write about go"""`)
}

func TestGeneratePlainTextFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: "\n Just some prose. \n"}
	n := newNormalizer(gen, Options{Language: "es"})

	got, err := n.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, model.GeneratedContent{Title: "Artículo generado", Body: "Just some prose."}, got)
}

func TestGenerateEnglishPlaceholder(t *testing.T) {
	gen := &fakeGenerator{reply: "plain"}
	n := newNormalizer(gen, Options{Language: "en"})

	got, err := n.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Generated Article", got.Title)
	assert.Contains(t, gen.last, "Return ONLY the JSON")
}

func TestGenerateEmptyPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "{}"}
	n := newNormalizer(gen, Options{})

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := n.Generate(context.Background(), prompt)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
	assert.Zero(t, gen.calls)
}

func TestGeneratePropagatesUpstreamErrors(t *testing.T) {
	gen := &fakeGenerator{err: errors.Join(ErrUnavailable, errors.New("quota"))}
	n := newNormalizer(gen, Options{})

	_, err := n.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerateTimeout(t *testing.T) {
	gen := &fakeGenerator{wait: true}
	n := newNormalizer(gen, Options{Timeout: 20 * time.Millisecond})

	_, err := n.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateRendersMarkdown(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"T","body":"**bold** <script>x</script>","seo_description":"S"}`}
	n := newNormalizer(gen, Options{RenderMarkdown: true})

	got, err := n.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "<p>T</p>", got.Title)
	assert.Equal(t, "<p>S</p>", got.SEODescription)
	assert.Contains(t, got.Body, "<strong>bold</strong>")
	assert.NotContains(t, got.Body, "<script>")
}

func TestGenerateRenderedTitleNeverBlank(t *testing.T) {
	for _, title := range []string{"<!-- Go -->", "---", "<b></b>"} {
		t.Run(title, func(t *testing.T) {
			reply := `{"title":` + strconv.Quote(title) + `,"body":"B"}`
			n := newNormalizer(&fakeGenerator{reply: reply}, Options{Language: "en", RenderMarkdown: true})

			got, err := n.Generate(context.Background(), "x")
			require.NoError(t, err)
			assert.Equal(t, "<p>Generated Article</p>", got.Title)
			assert.Equal(t, "<p>B</p>", got.Body)
		})
	}
}

func TestHasText(t *testing.T) {
	assert.False(t, hasText("<p></p>"))
	assert.False(t, hasText("<hr>"))
	assert.False(t, hasText("<p>&nbsp;</p>"))
	assert.True(t, hasText("<p><em>Go</em></p>"))
	assert.True(t, hasText("<p>&amp;</p>"))
}

func TestParseContent(t *testing.T) {
	raw := `{"title":"T","body":"B","seo_description":"S"}`
	tests := []struct {
		name string
		raw  string
		want model.GeneratedContent
	}{
		{"complete", raw, model.GeneratedContent{Title: "T", Body: "B", SEODescription: "S"}},
		{"missing title", `{"body":"B"}`, model.GeneratedContent{Title: "Artículo generado", Body: "B"}},
		{"empty title", `{"title":"  ","body":"B","seo_description":"S"}`, model.GeneratedContent{Title: "Artículo generado", Body: "B", SEODescription: "S"}},
		{"null fields", `{"title":null,"body":null,"seo_description":null}`, model.GeneratedContent{Title: "Artículo generado", Body: `{"title":null,"body":null,"seo_description":null}`}},
		{"missing body keeps raw", `{"title":"T"}`, model.GeneratedContent{Title: "T", Body: `{"title":"T"}`}},
		{"extra keys ignored", `{"title":"T","body":"B","seo_description":"S","tags":["a"]}`, model.GeneratedContent{Title: "T", Body: "B", SEODescription: "S"}},
		{"json fence", "```json\n" + raw + "\n```", model.GeneratedContent{Title: "T", Body: "B", SEODescription: "S"}},
		{"bare fence", "```\n" + raw + "\n```", model.GeneratedContent{Title: "T", Body: "B", SEODescription: "S"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContent(tt.raw, "es")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseContentRejects(t *testing.T) {
	for name, raw := range map[string]string{
		"plain text":       "hello there",
		"array":            `["title","body"]`,
		"string":           `"just a string"`,
		"number":           `42`,
		"null":             `null`,
		"numeric title":    `{"title":5,"body":"B"}`,
		"object body":      `{"title":"T","body":{"text":"B"}}`,
		"truncated object": `{"title":"T","body":"B"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseContent(raw, "es")
			assert.ErrorIs(t, err, ErrUnstructured)
		})
	}
}

func TestNormalizedOutputAlwaysComplete(t *testing.T) {
	replies := []string{
		"",
		"prose",
		`{}`,
		`{"title":""}`,
		`{"title":7}`,
		`[1,2]`,
		"```json\n{\"body\":\"B\"}\n```",
		strings.Repeat("x", 10000),
	}
	for _, reply := range replies {
		gen := &fakeGenerator{reply: reply}
		got, err := newNormalizer(gen, Options{}).Generate(context.Background(), "p")
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(got.Title), "reply %q", reply)
	}
}

func TestBuildInstructionKeepsPromptVerbatim(t *testing.T) {
	prompt := "tips {{prompt}} \"quoted\" ñandú"
	out := BuildInstruction(prompt, "es")
	assert.Contains(t, out, `"""`+prompt+`"""`)
	assert.Contains(t, out, "title, body, seo_description")
	assert.Equal(t, BuildInstruction("p", "es"), BuildInstruction("p", "fr"))
}

func TestRenderPlainText(t *testing.T) {
	got := Render(model.GeneratedContent{Title: "hello", Body: "hello", SEODescription: ""})
	assert.Equal(t, "<p>hello</p>", got.Title)
	assert.Equal(t, "<p>hello</p>", got.Body)
	assert.Equal(t, "", got.SEODescription)
}

func TestRenderDropsUnsafeLinks(t *testing.T) {
	got := Render(model.GeneratedContent{Title: "t", Body: "[x](javascript:void) [y](https://example.com)"})
	assert.NotContains(t, got.Body, "javascript:")
	assert.Contains(t, got.Body, `href="https://example.com"`)
}
