package httpapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/martinramirez09/aiblog/internal/auth"
	"github.com/martinramirez09/aiblog/internal/generator"
	"github.com/martinramirez09/aiblog/internal/logging"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// writeServiceError maps domain errors onto status codes. Anything it does not
// recognize is logged and reported as a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context(), s.log).WithError(err)

	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, "password: must be at most 72 bytes")
	case errors.Is(err, generator.ErrEmptyPrompt):
		writeError(w, http.StatusBadRequest, "prompt: must not be blank")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "Incorrect email or password")
	case errors.Is(err, auth.ErrInvalidToken):
		writeUnauthorized(w, "Could not validate credentials")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("generation timed out")
		writeError(w, http.StatusGatewayTimeout, "AI generation timed out")
	case errors.Is(err, generator.ErrUnavailable):
		log.Warn("generation unavailable")
		writeError(w, http.StatusServiceUnavailable, "AI generation is temporarily unavailable")
	case errors.Is(err, generator.ErrUpstream):
		log.Error("generation failed")
		writeError(w, http.StatusBadGateway, "AI generation failed")
	default:
		log.Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detail)
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	secs := int((retry + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
