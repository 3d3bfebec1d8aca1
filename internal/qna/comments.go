package qna

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/and161185/sm-portal/internal/collection"
	"github.com/and161185/sm-portal/internal/gateway"
	"github.com/and161185/sm-portal/internal/model"
)

// Thread is the cached comment tree of one post.
type Thread struct {
	PostID   int64
	Comments []model.Comment
}

// CommentStore caches the comments of the open post. Mutations are
// addressed by comment id alone.
type CommentStore struct {
	gw     doer
	thread *collection.Latest[Thread]
}

// NewCommentStore constructs an empty store.
func NewCommentStore(gw doer) *CommentStore {
	return &CommentStore{gw: gw, thread: collection.NewLatest(Thread{})}
}

// Thread returns the cached comments.
func (s *CommentStore) Thread() Thread { return s.thread.Get() }

// Subscribe observes thread replacements.
func (s *CommentStore) Subscribe(fn func(Thread)) (cancel func()) { return s.thread.Subscribe(fn) }

// Fetch replaces the cached thread with the comments of postID. A fetch for
// another post issued later takes precedence over this one.
func (s *CommentStore) Fetch(ctx context.Context, postID int64) ([]model.Comment, error) {
	seq := s.thread.Begin()
	var out []model.Comment
	r := gateway.Request{Method: http.MethodGet, Path: postPath(postID) + "/comments"}
	if err := s.gw.Do(ctx, r, &out); err != nil {
		return nil, fmt.Errorf("fetch comments of post %d: %w", postID, err)
	}
	if out == nil {
		out = []model.Comment{}
	}
	s.thread.Commit(seq, Thread{PostID: postID, Comments: out})
	return out, nil
}

// Create adds a comment, or a reply when d.ParentID is set. The thread is
// not updated; Fetch again to see it.
func (s *CommentStore) Create(ctx context.Context, postID int64, d model.CommentDraft) (model.Comment, error) {
	var out model.Comment
	r := gateway.Request{Method: http.MethodPost, Path: postPath(postID) + "/comments", Body: d}
	if err := s.gw.Do(ctx, r, &out); err != nil {
		return model.Comment{}, fmt.Errorf("create comment on post %d: %w", postID, err)
	}
	return out, nil
}

// CheckPassword asks the server whether pw unlocks comment id.
func (s *CommentStore) CheckPassword(ctx context.Context, id int64, pw model.Password) (bool, error) {
	var out validReply
	r := gateway.Request{Method: http.MethodPost, Path: commentPath(id) + "/check-password", Body: passwordBody{pw}}
	if err := s.gw.Do(ctx, r, &out); err != nil {
		return false, fmt.Errorf("check comment %d password: %w", id, err)
	}
	return out.Valid, nil
}

// Update replaces the content of comment id.
func (s *CommentStore) Update(ctx context.Context, id int64, pw model.Password, content string) (model.Comment, error) {
	body := struct {
		Password model.Password `json:"password"`
		Content  string         `json:"content"`
	}{pw, content}
	var out model.Comment
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPut, Path: commentPath(id), Body: body}, &out); err != nil {
		return model.Comment{}, fmt.Errorf("update comment %d: %w", id, err)
	}
	return out, nil
}

// Delete removes comment id together with its replies.
func (s *CommentStore) Delete(ctx context.Context, id int64, pw model.Password) error {
	r := gateway.Request{Method: http.MethodDelete, Path: commentPath(id), Body: passwordBody{pw}}
	if err := s.gw.Do(ctx, r, nil); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}

func commentPath(id int64) string { return "/qna/comments/" + strconv.FormatInt(id, 10) }
