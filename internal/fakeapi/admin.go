package fakeapi

import (
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/sm-portal/internal/crypto"
	"github.com/and161185/sm-portal/internal/errs"
	"github.com/and161185/sm-portal/internal/limiter"
	"github.com/and161185/sm-portal/internal/model"
)

// AddAdmin registers an administrator directly, bypassing the API.
func (s *Server) AddAdmin(username, password, name string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, errs.Validation("empty username/password")
	}
	secret, err := crypto.NewSecret(password)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Username == username {
			return 0, errs.ErrConflict
		}
	}
	if name == "" {
		name = username
	}
	id := s.id()
	s.admins[id] = &adminRec{
		Admin:  model.Admin{ID: id, Username: username, Name: name, CreatedAt: model.Timestamp{Time: s.now()}},
		secret: secret,
	}
	return id, nil
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Username == "" || in.Password == "" {
		writeMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}

	ctx := r.Context()
	ipHash := limiter.HashIP(remoteIP(r))
	allowed, _, err := s.lim.Allow(ctx, in.Username, ipHash)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal")
		return
	}
	if !allowed {
		writeMessage(w, http.StatusTooManyRequests, "too many attempts")
		return
	}

	s.mu.Lock()
	var found *adminRec
	var secret crypto.Secret
	for _, a := range s.admins {
		if a.Username == in.Username {
			found, secret = a, a.secret
			break
		}
	}
	s.mu.Unlock()

	if found == nil || !secret.Matches(in.Password) {
		if blocked, _, ferr := s.lim.Failure(ctx, in.Username, ipHash); ferr == nil && blocked {
			writeMessage(w, http.StatusTooManyRequests, "too many attempts")
			return
		}
		// unknown user and wrong password look the same
		writeMessage(w, http.StatusBadRequest, "invalid username or password")
		return
	}
	_ = s.lim.Success(ctx, in.Username, ipHash)

	sid := uuid.Must(uuid.NewV4()).String()
	s.mu.Lock()
	// one live session per admin: a new login invalidates the previous one
	if old, ok := s.sessionByAdmin[found.ID]; ok {
		delete(s.sessions, old)
	}
	s.sessions[sid] = found.ID
	s.sessionByAdmin[found.ID] = sid
	name := found.Name
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sid, Path: "/", HttpOnly: true})
	s.log.Info("admin login", zap.Int64("admin_id", found.ID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "login ok", "name": name})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		if id, ok := s.sessions[c.Value]; ok {
			delete(s.sessionByAdmin, id)
			delete(s.sessions, c.Value)
		}
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeMessage(w, http.StatusOK, "logout ok")
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	id, ok := AdminFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"loggedIn": false})
		return
	}
	s.mu.Lock()
	a := s.admins[id]
	s.mu.Unlock()
	if a == nil {
		writeJSON(w, http.StatusOK, map[string]any{"loggedIn": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loggedIn": true, "name": a.Name})
}

func (s *Server) listAdmins(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]model.Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a.Admin)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decode(w, r, &in) {
		return
	}
	id, err := s.AddAdmin(in.Username, in.Password, in.Name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"message": "registered", "id": id})
	case errors.Is(err, errs.ErrConflict):
		writeMessage(w, http.StatusConflict, "username already exists")
	case errors.Is(err, errs.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "internal")
	}
}

func (s *Server) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	me, _ := AdminFromCtx(r.Context())
	if me == id {
		writeMessage(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[id]; !ok {
		writeMessage(w, http.StatusNotFound, "admin not found")
		return
	}
	delete(s.admins, id)
	if sid, ok := s.sessionByAdmin[id]; ok {
		delete(s.sessions, sid)
		delete(s.sessionByAdmin, id)
	}
	writeMessage(w, http.StatusOK, "deleted")
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.NewPassword == "" {
		writeMessage(w, http.StatusBadRequest, "new password is required")
		return
	}
	me, _ := AdminFromCtx(r.Context())

	s.mu.Lock()
	a := s.admins[me]
	var current crypto.Secret
	if a != nil {
		current = a.secret
	}
	s.mu.Unlock()
	if a == nil {
		writeMessage(w, http.StatusUnauthorized, "login required")
		return
	}
	if !current.Matches(in.CurrentPassword) {
		writeMessage(w, http.StatusBadRequest, "current password does not match")
		return
	}
	secret, err := crypto.NewSecret(in.NewPassword)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal")
		return
	}
	s.mu.Lock()
	a.secret = secret
	s.mu.Unlock()
	writeMessage(w, http.StatusOK, "password changed")
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	me, _ := AdminFromCtx(r.Context())
	s.mu.Lock()
	if a := s.admins[me]; a != nil {
		a.Name = in.Name
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "profile updated", "name": in.Name})
}
