package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/martinramirez09/aiblog/internal/model"
	"github.com/martinramirez09/aiblog/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func createAuthor(t *testing.T, st *Store, email string) model.Author {
	t.Helper()
	author := model.Author{Email: email, PasswordHash: "hash"}
	if _, err := st.CreateAuthor(context.Background(), &author); err != nil {
		t.Fatalf("create author: %v", err)
	}
	return author
}

func TestAuthorLifecycle(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	author := createAuthor(t, st, "writer@example.com")
	if author.ID == 0 {
		t.Fatalf("expected id")
	}
	if author.CreatedAt.IsZero() {
		t.Fatalf("expected created_at stamped")
	}

	got, err := st.GetAuthorByEmail(context.Background(), "writer@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != author.ID || got.PasswordHash != "hash" {
		t.Fatalf("unexpected author: %+v", got)
	}

	if _, err := st.GetAuthorByEmail(context.Background(), "nobody@example.com"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	first := createAuthor(t, st, "dup@example.com")

	second := model.Author{Email: "dup@example.com", PasswordHash: "other"}
	if _, err := st.CreateAuthor(context.Background(), &second); err != store.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	got, err := st.GetAuthorByEmail(context.Background(), "dup@example.com")
	if err != nil {
		t.Fatalf("get author: %v", err)
	}
	if got.ID != first.ID || got.PasswordHash != "hash" {
		t.Fatalf("first author changed: %+v", got)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	author := createAuthor(t, st, "order@example.com")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []int64
	for i := 1; i <= 3; i++ {
		post := model.Post{
			Title:     fmt.Sprintf("P%d", i),
			Body:      "body",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			AuthorID:  author.ID,
		}
		id, err := st.CreatePost(context.Background(), &post)
		if err != nil {
			t.Fatalf("create post: %v", err)
		}
		ids = append(ids, id)
	}

	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	for i, want := range []string{"P3", "P2", "P1"} {
		if posts[i].Title != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, posts[i].Title)
		}
	}
	if posts[0].ID != ids[2] {
		t.Fatalf("expected newest id %d first, got %d", ids[2], posts[0].ID)
	}
}

func TestListPostsTieBrokenByID(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	author := createAuthor(t, st, "tie@example.com")
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, title := range []string{"first", "second"} {
		post := model.Post{Title: title, Body: "b", CreatedAt: at, AuthorID: author.ID}
		if _, err := st.CreatePost(context.Background(), &post); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if posts[0].Title != "second" || posts[1].Title != "first" {
		t.Fatalf("unexpected order: %s, %s", posts[0].Title, posts[1].Title)
	}
}

func TestPostFields(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	author := createAuthor(t, st, "fields@example.com")
	post := model.NewPost(model.GeneratedContent{Title: "T", Body: "B", SEODescription: "S"}, author.ID)
	id, err := st.CreatePost(context.Background(), &post)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.CreatedAt.IsZero() {
		t.Fatalf("expected server-side timestamp")
	}

	got, err := st.GetPost(context.Background(), id)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Title != "T" || got.Body != "B" || got.AuthorID != author.ID {
		t.Fatalf("unexpected post: %+v", got)
	}
	if got.SEODescription == nil || *got.SEODescription != "S" {
		t.Fatalf("unexpected seo description: %v", got.SEODescription)
	}

	bare := model.Post{Title: "no seo", Body: "b", AuthorID: author.ID}
	bareID, err := st.CreatePost(context.Background(), &bare)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	got, err = st.GetPost(context.Background(), bareID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.SEODescription != nil {
		t.Fatalf("expected NULL seo description, got %q", *got.SEODescription)
	}

	if _, err := st.GetPost(context.Background(), 9999); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostRequiresAuthor(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	post := model.Post{Title: "orphan", Body: "b", AuthorID: 42}
	if _, err := st.CreatePost(context.Background(), &post); err == nil {
		t.Fatalf("expected foreign key error")
	}
}

func TestListPostsEmpty(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", posts)
	}
}

func TestPostKeepsLongFields(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	author := createAuthor(t, st, "long@example.com")
	title := strings.Repeat("t", 600)
	seo := strings.Repeat("s", 2000)
	post := model.NewPost(model.GeneratedContent{Title: title, Body: "b", SEODescription: seo}, author.ID)
	if _, err := st.CreatePost(context.Background(), &post); err != nil {
		t.Fatalf("create post: %v", err)
	}

	got, err := st.GetPost(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Title != title || got.SEODescription == nil || *got.SEODescription != seo {
		t.Fatalf("long fields were not stored intact")
	}
}

func TestCreatedAtMatchesStoredValue(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	author := createAuthor(t, st, "clock@example.com")
	post := model.Post{
		Title:     "precise",
		Body:      "b",
		CreatedAt: time.Date(2025, 3, 4, 5, 6, 7, 123456789, time.UTC),
		AuthorID:  author.ID,
	}
	if _, err := st.CreatePost(context.Background(), &post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	got, err := st.GetPost(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if !got.CreatedAt.Equal(post.CreatedAt) {
		t.Fatalf("created_at %v after insert, %v when read back", post.CreatedAt, got.CreatedAt)
	}

	stamped := model.Post{Title: "now", Body: "b", AuthorID: author.ID}
	if _, err := st.CreatePost(context.Background(), &stamped); err != nil {
		t.Fatalf("create post: %v", err)
	}
	got, err = st.GetPost(context.Background(), stamped.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if !got.CreatedAt.Equal(stamped.CreatedAt) {
		t.Fatalf("created_at %v after insert, %v when read back", stamped.CreatedAt, got.CreatedAt)
	}
}

func TestPrivateMemoryDatabaseConcurrentUse(t *testing.T) {
	driver, source, err := store.ParseDSN(":memory:")
	if err != nil || driver != store.DriverSQLite {
		t.Fatalf("ParseDSN: %v, %v", driver, err)
	}
	st, err := Open(source)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	author := createAuthor(t, st, "mem@example.com")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			post := model.Post{Title: fmt.Sprintf("p%d", i), Body: "b", AuthorID: author.ID}
			if _, err := st.CreatePost(context.Background(), &post); err != nil {
				errs <- err
				return
			}
			if _, err := st.ListPosts(context.Background()); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent use: %v", err)
	}

	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 8 {
		t.Fatalf("expected 8 posts, got %d", len(posts))
	}
}
