// Package model defines the entities exchanged with the site API and cached by stores.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Session is the client's view of the admin login state.
type Session struct {
	LoggedIn  bool
	AdminName string
}

// Page is one page of a server-paginated listing.
type Page[T any] struct {
	Items         []T `json:"content"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	Number        int `json:"number"` // zero-based page index
	Size          int `json:"size"`
}

// Password is a write-only secret. It is serialized into request bodies but
// never rendered by fmt or loggers.
type Password string

func (Password) String() string   { return "***" }
func (Password) GoString() string { return `"***"` }

// Post is a Q&A board entry. List responses omit Content and UpdatedAt.
type Post struct {
	ID           int64     `json:"id"`
	AuthorName   string    `json:"authorName"`
	Title        string    `json:"title"`
	Content      string    `json:"content,omitempty"`
	ViewCount    int       `json:"viewCount"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    Timestamp `json:"createdAt"`
	UpdatedAt    Timestamp `json:"updatedAt"`
}

// PostDraft is the payload for creating or editing a post.
type PostDraft struct {
	AuthorName string   `json:"authorName"`
	Password   Password `json:"password"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
}

// Comment is a reply under a post; replies to replies nest in Children.
type Comment struct {
	ID         int64     `json:"id"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	IsAdmin    bool      `json:"isAdmin"`
	CreatedAt  Timestamp `json:"createdAt"`
	Children   []Comment `json:"children"`
}

// CommentDraft is the payload for creating a comment. Admin sessions may omit Password.
type CommentDraft struct {
	AuthorName string   `json:"authorName"`
	Password   Password `json:"password,omitempty"`
	Content    string   `json:"content"`
	ParentID   *int64   `json:"parentId,omitempty"`
}

// Category groups reference documents.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// CategoryDraft is the payload for creating or renaming a category.
type CategoryDraft struct {
	Name      string `json:"name"`
	SortOrder *int   `json:"sortOrder,omitempty"`
}

// Attachment is a file stored alongside a reference.
type Attachment struct {
	ID        int64  `json:"id"`
	FileName  string `json:"fileName"`
	SortOrder int    `json:"sortOrder"`
}

// Reference is a downloadable document in the reference library.
type Reference struct {
	ID            int64        `json:"id"`
	CategoryID    int64        `json:"categoryId"`
	CategoryName  string       `json:"categoryName"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	FileName      string       `json:"fileName"`
	ThumbnailPath string       `json:"thumbnailPath"`
	DownloadCount int          `json:"downloadCount"`
	CreatedAt     Timestamp    `json:"createdAt"`
	Files         []Attachment `json:"files"`
	Images        []Attachment `json:"images"`
}

// Admin is an administrator account as listed by /admin/list.
type Admin struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
}

// AdminDraft is the payload for registering a new administrator.
type AdminDraft struct {
	Username string   `json:"username"`
	Password Password `json:"password"`
	Name     string   `json:"name"`
}

// Timestamp accepts the server's zone-less local date-times as well as RFC 3339.
type Timestamp struct{ time.Time }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON parses any of the accepted layouts; null and "" leave the zero time.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		v, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			t.Time = v
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON writes the server's local layout; the zero time becomes null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}
