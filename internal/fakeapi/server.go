// Package fakeapi is an in-memory implementation of the site API used by the
// development server and by package tests. It mirrors the production contract:
// admin endpoints answer 401 without a session, password-gated mutations
// answer 403 on a wrong password (admins bypass the check), unknown ids 404,
// malformed payloads 400 with {"message": ...}.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/sm-portal/internal/crypto"
	"github.com/and161185/sm-portal/internal/limiter"
	"github.com/and161185/sm-portal/internal/model"
)

// Page size defaults of the production controllers.
const (
	defaultListSize   = 10
	defaultSearchSize = 15
)

type adminRec struct {
	model.Admin
	secret crypto.Secret
}

type postRec struct {
	model.Post
	secret crypto.Secret
}

type commentRec struct {
	id       int64
	postID   int64
	parentID int64
	author   string
	content  string
	isAdmin  bool
	created  time.Time
	secret   crypto.Secret
}

type refRec struct {
	model.Reference
	content []byte
}

// Options configures a Server.
type Options struct {
	Logger  *zap.Logger
	Limiter limiter.Limiter
	Now     func() time.Time
}

// Server holds all site state in memory.
type Server struct {
	mu sync.Mutex

	admins         map[int64]*adminRec
	sessions       map[string]int64 // session id -> admin id
	sessionByAdmin map[int64]string
	posts          map[int64]*postRec
	comments       map[int64]*commentRec
	categories     map[int64]*model.Category
	refs           map[int64]*refRec
	nextID         int64

	log *zap.Logger
	lim limiter.Limiter
	now func() time.Time
}

// New constructs an empty Server.
func New(opts Options) *Server {
	s := &Server{
		admins:         map[int64]*adminRec{},
		sessions:       map[string]int64{},
		sessionByAdmin: map[int64]string{},
		posts:          map[int64]*postRec{},
		comments:       map[int64]*commentRec{},
		categories:     map[int64]*model.Category{},
		refs:           map[int64]*refRec{},
		log:            opts.Logger,
		lim:            opts.Limiter,
		now:            opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.lim == nil {
		s.lim = limiter.NewMemory(15*time.Minute, 5, 15*time.Minute)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Handler returns the API router mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.log), logging(s.log), s.sessionCtx)

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/logout", s.logout)
			r.Get("/check", s.check)
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/list", s.listAdmins)
				r.Post("/register", s.registerAdmin)
				r.Delete("/{id}", s.deleteAdmin)
				r.Put("/password", s.changePassword)
				r.Put("/profile", s.updateProfile)
			})
		})

		r.Route("/qna", func(r chi.Router) {
			r.Get("/", s.listPosts)
			r.Post("/", s.createPost)
			r.Get("/search", s.searchPosts)
			r.Post("/comments/{id}/check-password", s.checkCommentPassword)
			r.Put("/comments/{id}", s.updateComment)
			r.Delete("/comments/{id}", s.deleteComment)
			r.Get("/{id}", s.getPost)
			r.Put("/{id}", s.updatePost)
			r.Delete("/{id}", s.deletePost)
			r.Post("/{id}/check-password", s.checkPostPassword)
			r.Get("/{id}/comments", s.listComments)
			r.Post("/{id}/comments", s.createComment)
		})

		r.Route("/reference-categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/", s.createCategory)
				r.Put("/{id}", s.updateCategory)
				r.Delete("/{id}", s.deleteCategory)
			})
		})

		r.Route("/references", func(r chi.Router) {
			r.Get("/", s.listReferences)
			r.Get("/category/{id}", s.listReferencesByCategory)
			r.Get("/{id}", s.getReference)
			r.Get("/{id}/download", s.downloadReference)
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/", s.createReference)
				r.Delete("/{id}", s.deleteReference)
			})
		})
	})
	return r
}

// ExpireSessions drops every server-side session, as a timeout would.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = map[string]int64{}
	s.sessionByAdmin = map[int64]string{}
}

// id allocates the next identifier; callers hold s.mu.
func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// pageParams reads Spring-style page/size query parameters.
func pageParams(w http.ResponseWriter, r *http.Request, defSize int) (page, size int, ok bool) {
	page, size = 0, defSize
	q := r.URL.Query()
	var err error
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 0 {
			writeMessage(w, http.StatusBadRequest, "invalid page")
			return 0, 0, false
		}
	}
	if v := q.Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil || size <= 0 {
			writeMessage(w, http.StatusBadRequest, "invalid size")
			return 0, 0, false
		}
	}
	return page, size, true
}

func paginate[T any](all []T, page, size int) model.Page[T] {
	p := model.Page[T]{
		Items:         []T{},
		TotalElements: len(all),
		TotalPages:    (len(all) + size - 1) / size,
		Number:        page,
		Size:          size,
	}
	from := page * size
	if from >= len(all) {
		return p
	}
	to := min(from+size, len(all))
	p.Items = append(p.Items, all[from:to]...)
	return p
}

func sortedByIDDesc[T any](items []T, id func(T) int64) []T {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) > id(items[j]) })
	return items
}
