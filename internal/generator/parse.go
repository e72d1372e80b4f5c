package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martinramirez09/aiblog/internal/model"
)

// ParseContent reads raw as a JSON object with title, body and
// seo_description. Missing or null fields take defaults: the placeholder
// title, raw itself as body, and an empty description.
func ParseContent(raw, lang string) (model.GeneratedContent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFence(raw)), &fields); err != nil {
		return model.GeneratedContent{}, fmt.Errorf("%w: %v", ErrUnstructured, err)
	}
	if fields == nil {
		return model.GeneratedContent{}, fmt.Errorf("%w: not an object", ErrUnstructured)
	}

	title, err := stringField(fields, "title", Placeholder(lang))
	if err != nil {
		return model.GeneratedContent{}, err
	}
	body, err := stringField(fields, "body", raw)
	if err != nil {
		return model.GeneratedContent{}, err
	}
	seo, err := stringField(fields, "seo_description", "")
	if err != nil {
		return model.GeneratedContent{}, err
	}

	if strings.TrimSpace(title) == "" {
		title = Placeholder(lang)
	}
	return model.GeneratedContent{Title: title, Body: body, SEODescription: seo}, nil
}

// FallbackContent keeps the whole reply as the body.
func FallbackContent(raw, lang string) model.GeneratedContent {
	return model.GeneratedContent{Title: Placeholder(lang), Body: raw}
}

func stringField(fields map[string]json.RawMessage, key, def string) (string, error) {
	v, ok := fields[key]
	if !ok || string(v) == "null" {
		return def, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", ErrUnstructured, key)
	}
	return s, nil
}

// stripFence removes one Markdown code fence wrapping the whole reply.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// drop the info string (```json)
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[\"") {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
