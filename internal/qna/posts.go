// Package qna holds the client stores for the Q&A board: posts and their
// comment threads. Anonymous posts and comments are edited with a per-item
// password: callers verify it with CheckPassword, then submit the mutation
// with the same password, which the server validates again.
package qna

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/sm-portal/internal/collection"
	"github.com/and161185/sm-portal/internal/gateway"
	"github.com/and161185/sm-portal/internal/model"
)

// Default page sizes used by the board.
const (
	DefaultPageSize       = 10
	DefaultSearchPageSize = 15
)

type doer interface {
	Do(ctx context.Context, r gateway.Request, out any) error
}

type passwordBody struct {
	Password model.Password `json:"password"`
}

type validReply struct {
	Valid bool `json:"valid"`
}

// PostStore caches the board listing and the currently open post.
type PostStore struct {
	gw    doer
	cache *collection.Cache[model.Post]
}

// NewPostStore constructs an empty store.
func NewPostStore(gw doer) *PostStore {
	return &PostStore{gw: gw, cache: collection.NewCache[model.Post]()}
}

// Page returns the cached listing.
func (s *PostStore) Page() model.Page[model.Post] { return s.cache.Page() }

// Current returns the open post, if any.
func (s *PostStore) Current() (model.Post, bool) { return s.cache.Current() }

// SubscribePage observes listing changes.
func (s *PostStore) SubscribePage(fn func(model.Page[model.Post])) (cancel func()) {
	return s.cache.SubscribePage(fn)
}

// SubscribeCurrent observes the open post.
func (s *PostStore) SubscribeCurrent(fn func(model.Post)) (cancel func()) {
	return s.cache.SubscribeCurrent(fn)
}

func pageQuery(page, size int) url.Values {
	return url.Values{"page": {strconv.Itoa(page)}, "size": {strconv.Itoa(size)}}
}

// List loads one page of the board, newest first.
func (s *PostStore) List(ctx context.Context, page, size int) (model.Page[model.Post], error) {
	if err := collection.ValidatePage(page, size); err != nil {
		return model.Page[model.Post]{}, err
	}
	return s.cache.Load(ctx, func(ctx context.Context) (model.Page[model.Post], error) {
		var out model.Page[model.Post]
		r := gateway.Request{Method: http.MethodGet, Path: "/qna", Query: pageQuery(page, size)}
		if err := s.gw.Do(ctx, r, &out); err != nil {
			return out, fmt.Errorf("list posts: %w", err)
		}
		return out, nil
	})
}

// Search loads one page of posts matching keyword. It shares the listing
// slot with List: whichever was issued last wins.
func (s *PostStore) Search(ctx context.Context, keyword string, page, size int) (model.Page[model.Post], error) {
	if err := collection.ValidatePage(page, size); err != nil {
		return model.Page[model.Post]{}, err
	}
	return s.cache.Load(ctx, func(ctx context.Context) (model.Page[model.Post], error) {
		var out model.Page[model.Post]
		q := pageQuery(page, size)
		q.Set("keyword", keyword)
		r := gateway.Request{Method: http.MethodGet, Path: "/qna/search", Query: q}
		if err := s.gw.Do(ctx, r, &out); err != nil {
			return out, fmt.Errorf("search posts: %w", err)
		}
		return out, nil
	})
}

// Get opens a post. The listing is left alone.
func (s *PostStore) Get(ctx context.Context, id int64) (model.Post, error) {
	return s.cache.LoadCurrent(ctx, func(ctx context.Context) (model.Post, error) {
		var out model.Post
		if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: postPath(id)}, &out); err != nil {
			return out, fmt.Errorf("get post %d: %w", id, err)
		}
		return out, nil
	})
}

// Create submits a new post. It is not added to the cached listing;
// re-list to see it.
func (s *PostStore) Create(ctx context.Context, d model.PostDraft) (model.Post, error) {
	var out model.Post
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/qna", Body: d}, &out); err != nil {
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}
	return out, nil
}

// CheckPassword asks the server whether pw unlocks post id. It mutates nothing.
func (s *PostStore) CheckPassword(ctx context.Context, id int64, pw model.Password) (bool, error) {
	var out validReply
	r := gateway.Request{Method: http.MethodPost, Path: postPath(id) + "/check-password", Body: passwordBody{pw}}
	if err := s.gw.Do(ctx, r, &out); err != nil {
		return false, fmt.Errorf("check post %d password: %w", id, err)
	}
	return out.Valid, nil
}

// Update edits post id; d.Password authorizes the change.
func (s *PostStore) Update(ctx context.Context, id int64, d model.PostDraft) (model.Post, error) {
	var out model.Post
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPut, Path: postPath(id), Body: d}, &out); err != nil {
		return model.Post{}, fmt.Errorf("update post %d: %w", id, err)
	}
	return out, nil
}

// Delete removes post id. A wrong password fails with errs.ErrForbidden, a
// missing post with errs.ErrNotFound.
func (s *PostStore) Delete(ctx context.Context, id int64, pw model.Password) error {
	r := gateway.Request{Method: http.MethodDelete, Path: postPath(id), Body: passwordBody{pw}}
	if err := s.gw.Do(ctx, r, nil); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

func postPath(id int64) string { return "/qna/" + strconv.FormatInt(id, 10) }
