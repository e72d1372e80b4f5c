// Package auth covers author credentials and bearer tokens: bcrypt password
// hashing, JWT issue/verify and the register/login/current-author flows built
// on top of them.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/martinramirez09/aiblog/internal/model"
	"github.com/martinramirez09/aiblog/internal/store"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
)

type Service struct {
	authors store.AuthorStore
	tokens  *TokenManager
	log     logrus.FieldLogger
}

func NewService(authors store.AuthorStore, tokens *TokenManager, log logrus.FieldLogger) *Service {
	return &Service{authors: authors, tokens: tokens, log: log}
}

func (s *Service) Tokens() *TokenManager { return s.tokens }

// Register creates an author. A duplicate email is rejected whether it is
// seen by the lookup or by the unique constraint on insert.
func (s *Service) Register(ctx context.Context, email, password string) (model.Author, error) {
	email = strings.TrimSpace(email)

	if _, err := s.authors.GetAuthorByEmail(ctx, email); err == nil {
		return model.Author{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.Author{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return model.Author{}, err
	}

	author := model.Author{Email: email, PasswordHash: hash}
	if _, err := s.authors.CreateAuthor(ctx, &author); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return model.Author{}, ErrEmailTaken
		}
		return model.Author{}, err
	}
	s.log.WithField("author_id", author.ID).Info("author registered")
	return author, nil
}

// Authenticate returns the author only when the email exists and the password
// matches. It fails closed on store errors.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Author, bool) {
	author, err := s.authors.GetAuthorByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.WithError(err).Error("author lookup failed")
		}
		burnCompare(password)
		return nil, false
	}
	if !CheckPassword(author.PasswordHash, password) {
		return nil, false
	}
	return &author, true
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	author, ok := s.Authenticate(ctx, email, password)
	if !ok {
		return "", ErrInvalidCredentials
	}
	token, _, err := s.tokens.Issue(author.Email, 0)
	if err != nil {
		return "", err
	}
	return token, nil
}

// CurrentAuthor resolves a bearer token to its author. The token subject is
// the author's email.
func (s *Service) CurrentAuthor(ctx context.Context, bearer string) (model.Author, error) {
	claims, err := s.tokens.Verify(bearer)
	if err != nil {
		return model.Author{}, err
	}

	author, err := s.authors.GetAuthorByEmail(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.WithError(err).Error("token subject lookup failed")
		}
		return model.Author{}, ErrInvalidToken
	}
	return author, nil
}
