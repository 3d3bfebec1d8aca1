package fakeapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/and161185/sm-portal/internal/crypto"
	"github.com/and161185/sm-portal/internal/model"
)

type postInput struct {
	AuthorName string `json:"authorName"`
	Password   string `json:"password"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

func (in postInput) validate() string {
	switch {
	case strings.TrimSpace(in.AuthorName) == "":
		return "author name is required"
	case in.Password == "":
		return "password is required"
	case strings.TrimSpace(in.Title) == "":
		return "title is required"
	case strings.TrimSpace(in.Content) == "":
		return "content is required"
	}
	return ""
}

type passwordInput struct {
	Password string `json:"password"`
}

// listItem strips the fields list responses omit; callers hold s.mu.
func (s *Server) listItem(p *postRec) model.Post {
	out := p.Post
	out.Content = ""
	out.UpdatedAt = model.Timestamp{}
	out.CommentCount = s.commentCount(p.ID)
	return out
}

func (s *Server) commentCount(postID int64) int {
	n := 0
	for _, c := range s.comments {
		if c.postID == postID {
			n++
		}
	}
	return n
}

func (s *Server) postPage(w http.ResponseWriter, r *http.Request, defSize int, keep func(*postRec) bool) {
	page, size, ok := pageParams(w, r, defSize)
	if !ok {
		return
	}
	s.mu.Lock()
	all := make([]model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			all = append(all, s.listItem(p))
		}
	}
	s.mu.Unlock()
	sortedByIDDesc(all, func(p model.Post) int64 { return p.ID })
	writeJSON(w, http.StatusOK, paginate(all, page, size))
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	s.postPage(w, r, defaultListSize, func(*postRec) bool { return true })
}

func (s *Server) searchPosts(w http.ResponseWriter, r *http.Request) {
	kw := r.URL.Query().Get("keyword")
	s.postPage(w, r, defaultSearchSize, func(p *postRec) bool {
		return strings.Contains(p.Title, kw) || strings.Contains(p.Content, kw)
	})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	p := s.posts[id]
	var out model.Post
	if p != nil {
		p.ViewCount++
		out = p.Post
		out.CommentCount = s.commentCount(id)
	}
	s.mu.Unlock()
	if p == nil {
		writeMessage(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var in postInput
	if !decode(w, r, &in) {
		return
	}
	if msg := in.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	secret, err := crypto.NewSecret(in.Password)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal")
		return
	}
	s.mu.Lock()
	now := model.Timestamp{Time: s.now()}
	p := &postRec{
		Post: model.Post{
			ID:         s.id(),
			AuthorName: in.AuthorName,
			Title:      in.Title,
			Content:    in.Content,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		secret: secret,
	}
	s.posts[p.ID] = p
	out := p.Post
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// postSecret returns the stored secret of a post, or false when absent.
func (s *Server) postSecret(id int64) (crypto.Secret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return crypto.Secret{}, false
	}
	return p.secret, true
}

func (s *Server) checkPostPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in passwordInput
	if !decode(w, r, &in) {
		return
	}
	if in.Password == "" {
		writeMessage(w, http.StatusBadRequest, "password is required")
		return
	}
	secret, found := s.postSecret(id)
	if !found {
		writeMessage(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": secret.Matches(in.Password)})
}

// authorizePost answers 404/403 itself and reports whether the mutation may proceed.
func (s *Server) authorizePost(w http.ResponseWriter, r *http.Request, id int64, password string) bool {
	secret, found := s.postSecret(id)
	if !found {
		writeMessage(w, http.StatusNotFound, "post not found")
		return false
	}
	if _, admin := AdminFromCtx(r.Context()); admin {
		return true
	}
	if !secret.Matches(password) {
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in postInput
	if !decode(w, r, &in) {
		return
	}
	if msg := in.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	if !s.authorizePost(w, r, id, in.Password) {
		return
	}
	s.mu.Lock()
	p := s.posts[id]
	var out model.Post
	if p != nil {
		p.Title, p.Content, p.AuthorName = in.Title, in.Content, in.AuthorName
		p.UpdatedAt = model.Timestamp{Time: s.now()}
		out = p.Post
		out.CommentCount = s.commentCount(id)
	}
	s.mu.Unlock()
	if p == nil {
		writeMessage(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in passwordInput
	if !decode(w, r, &in) {
		return
	}
	if !s.authorizePost(w, r, id, in.Password) {
		return
	}
	s.mu.Lock()
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.postID == id {
			delete(s.comments, cid)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// commentTree builds the nested view of a post's comments; callers hold s.mu.
func (s *Server) commentTree(postID, parentID int64) []model.Comment {
	out := []model.Comment{}
	for _, c := range s.comments {
		if c.postID == postID && c.parentID == parentID {
			out = append(out, model.Comment{
				ID:         c.id,
				AuthorName: c.author,
				Content:    c.content,
				IsAdmin:    c.isAdmin,
				CreatedAt:  model.Timestamp{Time: c.created},
				Children:   s.commentTree(postID, c.id),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	_, exists := s.posts[postID]
	tree := s.commentTree(postID, 0)
	s.mu.Unlock()
	if !exists {
		writeMessage(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		AuthorName string `json:"authorName"`
		Password   string `json:"password"`
		Content    string `json:"content"`
		ParentID   *int64 `json:"parentId"`
	}
	if !decode(w, r, &in) {
		return
	}
	_, isAdmin := AdminFromCtx(r.Context())
	switch {
	case strings.TrimSpace(in.AuthorName) == "":
		writeMessage(w, http.StatusBadRequest, "author name is required")
		return
	case strings.TrimSpace(in.Content) == "":
		writeMessage(w, http.StatusBadRequest, "content is required")
		return
	case in.Password == "" && !isAdmin:
		writeMessage(w, http.StatusBadRequest, "password is required")
		return
	}
	var secret crypto.Secret
	if in.Password != "" {
		var err error
		if secret, err = crypto.NewSecret(in.Password); err != nil {
			writeMessage(w, http.StatusInternalServerError, "internal")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		writeMessage(w, http.StatusNotFound, "post not found")
		return
	}
	var parentID int64
	if in.ParentID != nil {
		parent, ok := s.comments[*in.ParentID]
		if !ok || parent.postID != postID {
			writeMessage(w, http.StatusBadRequest, "invalid parent comment")
			return
		}
		parentID = parent.id
	}
	c := &commentRec{
		id:       s.id(),
		postID:   postID,
		parentID: parentID,
		author:   in.AuthorName,
		content:  in.Content,
		isAdmin:  isAdmin,
		created:  s.now(),
		secret:   secret,
	}
	s.comments[c.id] = c
	writeJSON(w, http.StatusOK, model.Comment{
		ID:         c.id,
		AuthorName: c.author,
		Content:    c.content,
		IsAdmin:    c.isAdmin,
		CreatedAt:  model.Timestamp{Time: c.created},
		Children:   []model.Comment{},
	})
}

func (s *Server) commentSecret(id int64) (crypto.Secret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return crypto.Secret{}, false
	}
	return c.secret, true
}

func (s *Server) checkCommentPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in passwordInput
	if !decode(w, r, &in) {
		return
	}
	if in.Password == "" {
		writeMessage(w, http.StatusBadRequest, "password is required")
		return
	}
	secret, found := s.commentSecret(id)
	if !found {
		writeMessage(w, http.StatusNotFound, "comment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": secret.Matches(in.Password)})
}

func (s *Server) authorizeComment(w http.ResponseWriter, r *http.Request, id int64, password string) bool {
	secret, found := s.commentSecret(id)
	if !found {
		writeMessage(w, http.StatusNotFound, "comment not found")
		return false
	}
	if _, admin := AdminFromCtx(r.Context()); admin {
		return true
	}
	if !secret.Matches(password) {
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Password string `json:"password"`
		Content  string `json:"content"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeMessage(w, http.StatusBadRequest, "content is required")
		return
	}
	if !s.authorizeComment(w, r, id, in.Password) {
		return
	}
	s.mu.Lock()
	c := s.comments[id]
	var out model.Comment
	if c != nil {
		c.content = in.Content
		out = model.Comment{
			ID:         c.id,
			AuthorName: c.author,
			Content:    c.content,
			IsAdmin:    c.isAdmin,
			CreatedAt:  model.Timestamp{Time: c.created},
			Children:   s.commentTree(c.postID, c.id),
		}
	}
	s.mu.Unlock()
	if c == nil {
		writeMessage(w, http.StatusNotFound, "comment not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in passwordInput
	if !decode(w, r, &in) {
		return
	}
	if !s.authorizeComment(w, r, id, in.Password) {
		return
	}
	s.mu.Lock()
	s.dropComment(id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// dropComment removes a comment and its replies; callers hold s.mu.
func (s *Server) dropComment(id int64) {
	delete(s.comments, id)
	for cid, c := range s.comments {
		if c.parentID == id {
			s.dropComment(cid)
		}
	}
}
