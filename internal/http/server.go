package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/martinramirez09/aiblog/internal/auth"
	"github.com/martinramirez09/aiblog/internal/config"
	"github.com/martinramirez09/aiblog/internal/logging"
	"github.com/martinramirez09/aiblog/internal/model"
	"github.com/martinramirez09/aiblog/internal/rate"
	"github.com/martinramirez09/aiblog/internal/store"
)

const maxBodyBytes = 1 << 20

// PostGenerator produces normalized post content for a prompt.
type PostGenerator interface {
	Generate(ctx context.Context, prompt string) (model.GeneratedContent, error)
}

type Server struct {
	store   store.Store
	auth    *auth.Service
	gen     PostGenerator
	limiter rate.Limiter
	cfg     config.Config
	log     logrus.FieldLogger
}

func NewServer(st store.Store, authSvc *auth.Service, gen PostGenerator, limiter rate.Limiter, cfg config.Config, log logrus.FieldLogger) *Server {
	return &Server{store: st, auth: authSvc, gen: gen, limiter: limiter, cfg: cfg, log: log}
}

// Handler wraps the router with request logging and CORS.
func (s *Server) Handler() http.Handler {
	return logging.Middleware(s.log, newCORS(s.cfg.CORSOrigins).Handler(s))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "/":
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "AI-Blog API is running"})
	case "/register":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleRegister(w, r)
	case "/token":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleToken(w, r)
	case "/generate-post":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleGeneratePost(w, r)
	case "/posts":
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		s.handleListPosts(w, r)
	case "/ready":
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		s.handleReady(w, r)
	default:
		if id, ok := strings.CutPrefix(r.URL.Path, "/posts/"); ok && id != "" && !strings.Contains(id, "/") {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			s.handleGetPost(w, r, id)
			return
		}
		notFound(w)
	}
}

type authorResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type postResponse struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	SEODescription *string   `json:"seo_description"`
	CreatedAt      time.Time `json:"created_at"`
	AuthorID       int64     `json:"author_id"`
}

func newPostResponse(p model.Post) postResponse {
	return postResponse{
		ID:             p.ID,
		Title:          p.Title,
		Body:           p.Body,
		SEODescription: p.SEODescription,
		CreatedAt:      p.CreatedAt.UTC(),
		AuthorID:       p.AuthorID,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	author, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authorResponse{ID: author.ID, Email: author.Email})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "ip:"+clientIP(r), "token", s.cfg.RateLimits.LoginPerMinute) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req := tokenRequest{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleGeneratePost authenticates before reading the prompt so an
// unauthenticated caller never reaches the upstream model.
func (s *Server) handleGeneratePost(w http.ResponseWriter, r *http.Request) {
	author, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.allowRateLimit(w, r, fmt.Sprintf("author:%d", author.ID), "generate", s.cfg.RateLimits.GeneratePerMinute) {
		return
	}

	content, err := s.gen.Generate(r.Context(), req.Prompt)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	post := model.NewPost(content, author.ID)
	if _, err := s.store.CreatePost(r.Context(), &post); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("store post: %w", err))
		return
	}
	logging.FromContext(r.Context(), s.log).WithFields(logrus.Fields{
		"post_id":   post.ID,
		"author_id": author.ID,
	}).Info("post created")
	writeJSON(w, http.StatusOK, newPostResponse(post))
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("list posts: %w", err))
		return
	}
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, newPostResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		notFound(w)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		s.writeServiceError(w, r, fmt.Errorf("get post: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, newPostResponse(post))
}

// handleReady reports whether the database answers, for load balancer
// readiness checks. /health stays a pure liveness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		logging.FromContext(r.Context(), s.log).WithError(err).Warn("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, subject, action string, limit int) bool {
	if limit <= 0 {
		return true
	}
	key := action + ":" + subject
	if ok, retry := s.limiter.Allow(r.Context(), key, limit, time.Minute); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (model.Author, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, bearer, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(bearer) == "" {
		writeUnauthorized(w, "Not authenticated")
		return model.Author{}, false
	}
	author, err := s.auth.CurrentAuthor(r.Context(), strings.TrimSpace(bearer))
	if err != nil {
		s.writeServiceError(w, r, err)
		return model.Author{}, false
	}
	return author, true
}

// clientIP keys limits on the transport peer. X-Forwarded-For is client
// controlled and is ignored.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func readJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return errors.New("request body too large")
		default:
			return errors.New("request body is not valid JSON")
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
