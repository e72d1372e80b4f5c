// Package client provides a Go client for the aiblog API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrAlreadyRegistered = errors.New("email already registered")
	ErrUnauthorized      = errors.New("unauthorized")
)

// APIError is a non-2xx reply carrying the server's detail message.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Detail)
}

// Client is an aiblog API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	TokenExp   time.Time
}

// Author is the public view of a registered author.
type Author struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Post is a stored blog post.
type Post struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	SEODescription *string   `json:"seo_description"`
	CreatedAt      time.Time `json:"created_at"`
	AuthorID       int64     `json:"author_id"`
}

// New creates a client. Generation can take up to a minute upstream, so the
// HTTP timeout is generous.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Health checks the server is up.
func (c *Client) Health() error {
	resp, err := c.doRequest(http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
	}
	if err := decodeResponse(resp, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", result.Status)
	}
	return nil
}

// Register creates a new author.
func (c *Client) Register(email, password string) (*Author, error) {
	resp, err := c.doRequest(http.MethodPost, "/register", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var author Author
	if err := decodeResponse(resp, http.StatusCreated, &author); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && apiErr.Detail == "Email already registered" {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	return &author, nil
}

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(email, password string) error {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := decodeResponse(resp, http.StatusOK, &result); err != nil {
		return err
	}

	c.Token = result.AccessToken
	c.TokenExp, _ = TokenExpiry(result.AccessToken)
	return nil
}

// RegisterAndLogin registers (if needed) and logs in.
func (c *Client) RegisterAndLogin(email, password string) error {
	if _, err := c.Register(email, password); err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return fmt.Errorf("register: %w", err)
	}
	return c.Login(email, password)
}

// IsAuthenticated returns true if the client has an unexpired token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != "" && time.Now().Before(c.TokenExp)
}

// GeneratePost asks the server to write and store a post for prompt.
func (c *Client) GeneratePost(prompt string) (*Post, error) {
	resp, err := c.doRequest(http.MethodPost, "/generate-post", map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var post Post
	if err := decodeResponse(resp, http.StatusOK, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts returns every post, newest first.
func (c *Client) ListPosts() ([]Post, error) {
	resp, err := c.doRequest(http.MethodGet, "/posts", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var posts []Post
	if err := decodeResponse(resp, http.StatusOK, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost fetches one post by id.
func (c *Client) GetPost(id int64) (*Post, error) {
	resp, err := c.doRequest(http.MethodGet, fmt.Sprintf("/posts/%d", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var post Post
	if err := decodeResponse(resp, http.StatusOK, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// TokenExpiry reads the exp claim without checking the signature. It is for
// display and refresh decisions only, never for authorization.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

// doRequest performs an HTTP request, authenticated when a token is set.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

func decodeResponse(resp *http.Response, want int, dest any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Detail == "" {
			e.Detail = strings.TrimSpace(string(body))
		}
		apiErr := &APIError{Status: resp.StatusCode, Detail: e.Detail}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Detail)
		}
		return apiErr
	}
	return json.Unmarshal(body, dest)
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

// NewTestHelper creates a new test helper for the given base URL.
func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers email (if needed) and returns a logged
// in client.
func (h *TestHelper) CreateAuthenticatedClient(email, password string) (*Client, error) {
	c := New(h.BaseURL)
	if err := c.RegisterAndLogin(email, password); err != nil {
		return nil, err
	}
	return c, nil
}

// GetToken returns an access token for email, registering it first if needed.
func (h *TestHelper) GetToken(email, password string) (string, error) {
	c, err := h.CreateAuthenticatedClient(email, password)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
