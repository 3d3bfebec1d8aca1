package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"

	"github.com/and161185/sm-portal/internal/config"
	"github.com/and161185/sm-portal/internal/model"
	"github.com/and161185/sm-portal/internal/session"
)

// ---- saved session ----

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type stateFile struct {
	BaseURL   string        `json:"base_url"`
	Cookies   []savedCookie `json:"cookies"`
	LoggedIn  bool          `json:"logged_in"`
	AdminName string        `json:"admin_name,omitempty"`
}

func statePath() string { return filepath.Join(config.Dir(), "cookies.json") }

func saveState(path, baseURL string, jar *cookiejar.Jar, snap model.Session) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	sf := stateFile{BaseURL: baseURL, LoggedIn: snap.LoggedIn, AdminName: snap.AdminName}
	for _, c := range jar.Cookies(u) {
		sf.Cookies = append(sf.Cookies, savedCookie{Name: c.Name, Value: c.Value})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sf)
}

// restoreState loads cookies into jar and the snapshot into s. State saved
// for a different base URL is ignored.
func restoreState(path, baseURL string, jar *cookiejar.Jar, s *session.Store) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var sf stateFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return err
	}
	if sf.BaseURL != baseURL {
		return errors.New("saved session belongs to another server")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(sf.Cookies))
	for _, c := range sf.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(u, cookies)
	s.Restore(model.Session{LoggedIn: sf.LoggedIn, AdminName: sf.AdminName})
	return nil
}
