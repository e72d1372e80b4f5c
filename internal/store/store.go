package store

import (
	"context"
	"errors"

	"github.com/martinramirez09/aiblog/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

type Store interface {
	AuthorStore
	PostStore
	Ping(ctx context.Context) error
	Close() error
}

type AuthorStore interface {
	CreateAuthor(ctx context.Context, author *model.Author) (int64, error)
	GetAuthorByEmail(ctx context.Context, email string) (model.Author, error)
}

// PostStore persists generated posts. CreatePost stamps CreatedAt when it is
// zero; ListPosts returns every post, newest first, ties broken by id.
type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (int64, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	ListPosts(ctx context.Context) ([]model.Post, error)
}
