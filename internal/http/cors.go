package httpapp

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// newCORS allows credentialed requests from a fixed origin list. Any method
// and header are accepted, as a browser client needs for JSON and form posts.
// A "*" entry admits every origin but still echoes it back, since browsers
// refuse a literal wildcard on credentialed responses.
func newCORS(origins []string) *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	}

	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o == "*" {
			opts.AllowOriginFunc = func(string) bool { return true }
			break
		}
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	if opts.AllowOriginFunc == nil {
		opts.AllowedOrigins = allowed
	}
	return cors.New(opts)
}
