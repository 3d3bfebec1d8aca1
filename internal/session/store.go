// Package session owns the client's admin login state.
package session

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/sm-portal/internal/gateway"
	"github.com/and161185/sm-portal/internal/model"
	"github.com/and161185/sm-portal/internal/reactive"
)

type doer interface {
	Do(ctx context.Context, r gateway.Request, out any) error
}

// LoginResult is the server's reply to a successful login.
type LoginResult struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// Store is the single source of truth for login state. It implements
// gateway.SessionSink.
type Store struct {
	gw    doer
	log   *zap.Logger
	state *reactive.Value[model.Session]
}

var _ gateway.SessionSink = (*Store)(nil)

// NewStore constructs a logged-out store.
func NewStore(gw doer, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{gw: gw, log: log, state: reactive.NewValue(model.Session{})}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() model.Session { return s.state.Get() }

// IsActive reports whether the client is logged in.
func (s *Store) IsActive() bool { return s.state.Get().LoggedIn }

// Subscribe observes session changes.
func (s *Store) Subscribe(fn func(model.Session)) (cancel func()) { return s.state.Subscribe(fn) }

// Clear resets local state only. It must not call the server: the gateway
// invokes it from its 401 handler.
func (s *Store) Clear() { s.state.Set(model.Session{}) }

// Restore seeds the state from a persisted snapshot without any I/O.
func (s *Store) Restore(snap model.Session) {
	if !snap.LoggedIn {
		snap.AdminName = ""
	}
	s.state.Set(snap)
}

// Check probes the server session. Every failure is treated as logged out.
func (s *Store) Check(ctx context.Context) model.Session {
	var out struct {
		LoggedIn bool   `json:"loggedIn"`
		Name     string `json:"name"`
	}
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/admin/check"}, &out); err != nil {
		s.log.Debug("session check failed", zap.Error(err))
		s.Clear()
		return model.Session{}
	}
	next := model.Session{LoggedIn: out.LoggedIn}
	if out.LoggedIn {
		next.AdminName = out.Name
	}
	s.state.Set(next)
	return next
}

// Login authenticates and stores the returned display name.
func (s *Store) Login(ctx context.Context, username string, password model.Password) (LoginResult, error) {
	var out LoginResult
	body := struct {
		Username string         `json:"username"`
		Password model.Password `json:"password"`
	}{username, password}
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/admin/login", Body: body}, &out); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	s.state.Set(model.Session{LoggedIn: true, AdminName: out.Name})
	return out, nil
}

// Logout invalidates the server session. Local state is cleared only when
// the server call succeeds.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/admin/logout"}, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.Clear()
	return nil
}

// ChangePassword changes the logged-in admin's password.
func (s *Store) ChangePassword(ctx context.Context, current, next model.Password) error {
	body := struct {
		CurrentPassword model.Password `json:"currentPassword"`
		NewPassword     model.Password `json:"newPassword"`
	}{current, next}
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPut, Path: "/admin/password", Body: body}, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// ListAdmins returns all administrator accounts.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var out []model.Admin
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/admin/list"}, &out); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return out, nil
}

// RegisterAdmin creates an administrator account and returns its id.
func (s *Store) RegisterAdmin(ctx context.Context, d model.AdminDraft) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/admin/register", Body: d}, &out); err != nil {
		return 0, fmt.Errorf("register admin: %w", err)
	}
	return out.ID, nil
}

// DeleteAdmin removes an administrator account.
func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/admin/%d", id)
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: path}, nil); err != nil {
		return fmt.Errorf("delete admin %d: %w", id, err)
	}
	return nil
}

// UpdateProfile renames the logged-in admin and refreshes the cached display name.
func (s *Store) UpdateProfile(ctx context.Context, name string) error {
	var out struct {
		Name string `json:"name"`
	}
	body := struct {
		Name string `json:"name"`
	}{name}
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPut, Path: "/admin/profile", Body: body}, &out); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	s.state.Update(func(cur model.Session) model.Session {
		if cur.LoggedIn {
			cur.AdminName = out.Name
		}
		return cur
	})
	return nil
}
