package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/martinramirez09/aiblog/internal/model"
	"github.com/martinramirez09/aiblog/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragmas(path))
	if err != nil {
		return nil, err
	}
	if isMemory(path) {
		// every connection to a private in-memory database sees its own copy
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// withPragmas applies pragmas through the DSN so they hold on every pooled
// connection.
func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func isMemory(path string) bool {
	return path == ":memory:" ||
		strings.HasPrefix(path, "file::memory:") ||
		strings.Contains(path, "mode=memory")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS authors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	seo_description TEXT,
	created_at INTEGER NOT NULL,
	author_id INTEGER NOT NULL,
	FOREIGN KEY(author_id) REFERENCES authors(id)
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC, id DESC);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateAuthor(ctx context.Context, author *model.Author) (int64, error) {
	if author.CreatedAt.IsZero() {
		author.CreatedAt = time.Now()
	}
	// stored as unix milliseconds
	author.CreatedAt = author.CreatedAt.UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx, `
INSERT INTO authors (email, hashed_password, created_at)
VALUES (?, ?, ?)
`, author.Email, author.PasswordHash, author.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrDuplicateEmail
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	author.ID = id
	return id, nil
}

func (s *Store) GetAuthorByEmail(ctx context.Context, email string) (model.Author, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, email, hashed_password, created_at
FROM authors
WHERE email = ?
`, email)
	return scanAuthor(row)
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	// stored as unix milliseconds
	post.CreatedAt = post.CreatedAt.UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx, `
INSERT INTO posts (title, body, seo_description, created_at, author_id)
VALUES (?, ?, ?, ?, ?)
`, post.Title, post.Body, nullableString(post.SEODescription), post.CreatedAt.UnixMilli(), post.AuthorID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	post.ID = id
	return id, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, body, seo_description, created_at, author_id
FROM posts
WHERE id = ?
`, id)
	return scanPost(row)
}

func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
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

func scanAuthor(scanner interface{ Scan(dest ...any) error }) (model.Author, error) {
	var a model.Author
	var created int64
	if err := scanner.Scan(&a.ID, &a.Email, &a.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Author{}, store.ErrNotFound
		}
		return model.Author{}, err
	}
	a.CreatedAt = time.UnixMilli(created).UTC()
	return a, nil
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var seo sql.NullString
	var created int64
	if err := scanner.Scan(&p.ID, &p.Title, &p.Body, &seo, &created, &p.AuthorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	if seo.Valid {
		p.SEODescription = &seo.String
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	return p, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
