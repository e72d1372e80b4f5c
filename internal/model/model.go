package model

import "time"

type Author struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Post struct {
	ID             int64
	Title          string
	Body           string
	SEODescription *string
	CreatedAt      time.Time
	AuthorID       int64
}

// GeneratedContent is the normalized reply of the text generator before it is
// stored as a Post. Title is never empty.
type GeneratedContent struct {
	Title          string
	Body           string
	SEODescription string
}

// NewPost maps generated content onto a post owned by authorID.
func NewPost(content GeneratedContent, authorID int64) Post {
	seo := content.SEODescription
	return Post{
		Title:          content.Title,
		Body:           content.Body,
		SEODescription: &seo,
		AuthorID:       authorID,
	}
}
