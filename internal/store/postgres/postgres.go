// Package postgres implements store.Store on PostgreSQL through a pgx
// connection pool. Every query checks a connection out of the pool and
// returns it when the query (or row scan) completes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/martinramirez09/aiblog/internal/model"
	"github.com/martinramirez09/aiblog/internal/store"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

type Options struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
}

func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS authors (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS posts (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	seo_description TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	author_id BIGINT NOT NULL REFERENCES authors(id)
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC, id DESC);
`,
}

// applySchema runs pending migrations inside one transaction guarded by an
// advisory lock, so concurrent replicas starting together apply each
// migration once.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(727274)`); err != nil {
		return fmt.Errorf("postgres: lock schema: %w", err)
	}
	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}

	var currentVersion int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := tx.Exec(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) CreateAuthor(ctx context.Context, author *model.Author) (int64, error) {
	if author.CreatedAt.IsZero() {
		author.CreatedAt = time.Now()
	}
	author.CreatedAt = author.CreatedAt.UTC().Truncate(time.Microsecond)
	err := s.pool.QueryRow(ctx, `
INSERT INTO authors (email, hashed_password, created_at)
VALUES ($1, $2, $3)
RETURNING id
`, author.Email, author.PasswordHash, author.CreatedAt).Scan(&author.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrDuplicateEmail
		}
		return 0, err
	}
	return author.ID, nil
}

func (s *Store) GetAuthorByEmail(ctx context.Context, email string) (model.Author, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, email, hashed_password, created_at
FROM authors
WHERE email = $1
`, email)
	return scanAuthor(row)
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.CreatedAt = post.CreatedAt.UTC().Truncate(time.Microsecond)
	err := s.pool.QueryRow(ctx, `
INSERT INTO posts (title, body, seo_description, created_at, author_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, post.Title, post.Body, post.SEODescription, post.CreatedAt, post.AuthorID).Scan(&post.ID)
	if err != nil {
		return 0, err
	}
	return post.ID, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, title, body, seo_description, created_at, author_id
FROM posts
WHERE id = $1
`, id)
	return scanPost(row)
}

func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, title, body, seo_description, created_at, author_id
FROM posts
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func scanAuthor(row pgx.Row) (model.Author, error) {
	var a model.Author
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Author{}, store.ErrNotFound
		}
		return model.Author{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.SEODescription, &p.CreatedAt, &p.AuthorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
