// Package generator turns a user prompt into a blog post. It asks the
// upstream model for a strict JSON object and normalizes whatever comes back
// into a GeneratedContent, falling back to the raw text when the reply is not
// usable JSON.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/martinramirez09/aiblog/internal/model"
)

var (
	ErrEmptyPrompt  = errors.New("prompt must not be empty")
	ErrUpstream     = errors.New("upstream generation failed")
	ErrUnavailable  = errors.New("upstream generation unavailable")
	ErrUnstructured = errors.New("reply is not a structured post")
)

// TextGenerator sends one instruction to a text model and returns its reply.
type TextGenerator interface {
	GenerateText(ctx context.Context, instruction string) (string, error)
}

type Options struct {
	Language       string
	RenderMarkdown bool
	// Timeout bounds a single upstream call. Zero means no extra bound.
	Timeout time.Duration
}

type Normalizer struct {
	gen    TextGenerator
	opts   Options
	log    logrus.FieldLogger
	render func(model.GeneratedContent) model.GeneratedContent
}

func NewNormalizer(gen TextGenerator, opts Options, log logrus.FieldLogger) *Normalizer {
	opts.Language = normalizeLanguage(opts.Language)
	n := &Normalizer{gen: gen, opts: opts, log: log}
	if opts.RenderMarkdown {
		n.render = Render
	}
	return n
}

// Generate produces post content for prompt. Replies that cannot be parsed
// are not errors: they become the body of a placeholder-titled post.
func (n *Normalizer) Generate(ctx context.Context, prompt string) (model.GeneratedContent, error) {
	if strings.TrimSpace(prompt) == "" {
		return model.GeneratedContent{}, ErrEmptyPrompt
	}

	if n.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := n.gen.GenerateText(ctx, BuildInstruction(prompt, n.opts.Language))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return model.GeneratedContent{}, err
	}
	raw := strings.TrimSpace(reply)

	content, err := ParseContent(raw, n.opts.Language)
	if err != nil {
		n.log.WithError(err).WithField("reply_bytes", len(raw)).Warn("unstructured model reply, using fallback")
		content = FallbackContent(raw, n.opts.Language)
	}
	if n.render != nil {
		content = n.render(content)
		if !hasText(content.Title) {
			content.Title = n.render(model.GeneratedContent{Title: Placeholder(n.opts.Language)}).Title
		}
	}

	n.log.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"structured":  err == nil,
	}).Debug("post generated")
	return content, nil
}
