package fakeapi

import (
	"context"
	"net/http"
)

type ctxKey string

const adminKey ctxKey = "sm.admin"

// SessionCookie is the name of the session cookie issued on login.
const SessionCookie = "JSESSIONID"

// WithAdmin stores the authenticated admin id in context.
func WithAdmin(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, adminKey, id)
}

// AdminFromCtx fetches the admin id from context.
func AdminFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(adminKey).(int64)
	return id, ok
}

// sessionCtx resolves the session cookie into an admin id, if any.
func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(SessionCookie); err == nil {
			s.mu.Lock()
			id, ok := s.sessions[c.Value]
			s.mu.Unlock()
			if ok {
				r = r.WithContext(WithAdmin(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin answers 401 when no admin session is attached.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AdminFromCtx(r.Context()); !ok {
			writeMessage(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
