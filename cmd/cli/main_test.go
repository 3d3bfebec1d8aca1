package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sm-portal/internal/config"
	"github.com/and161185/sm-portal/internal/errs"
	"github.com/and161185/sm-portal/internal/fakeapi"
	"github.com/and161185/sm-portal/internal/model"
	"github.com/and161185/sm-portal/internal/notify"
	"github.com/and161185/sm-portal/internal/session"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "smportal")
}

func Test_statePath(t *testing.T) {
	base := withTmpConfig(t)
	if got := statePath(); got != filepath.Join(base, "cookies.json") {
		t.Fatalf("statePath=%q", got)
	}
}

func Test_state_SaveRestore(t *testing.T) {
	path := filepath.Join(withTmpConfig(t), "cookies.json")
	const base = "http://127.0.0.1:9999/api"
	u, _ := url.Parse(base)

	jar, _ := cookiejar.New(nil)
	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "abc", Path: "/"}})
	if err := saveState(path, base, jar, model.Session{LoggedIn: true, AdminName: "Root"}); err != nil {
		t.Fatalf("saveState: %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("state file mode: %v %v", fi, err)
	}

	jar2, _ := cookiejar.New(nil)
	s := session.NewStore(nil, zaptest.NewLogger(t))
	if err := restoreState(path, base, jar2, s); err != nil {
		t.Fatalf("restoreState: %v", err)
	}
	if got := s.Snapshot(); !got.LoggedIn || got.AdminName != "Root" {
		t.Fatalf("snapshot=%+v", got)
	}
	if c := jar2.Cookies(u); len(c) != 1 || c[0].Value != "abc" {
		t.Fatalf("cookies=%v", c)
	}

	// another server's session is not restored
	s2 := session.NewStore(nil, nil)
	if err := restoreState(path, "http://other.example/api", jar2, s2); err == nil {
		t.Fatalf("want error for foreign base url")
	}
	if s2.IsActive() {
		t.Fatalf("foreign state must not log in")
	}
}

func Test_readAll_File_And_Stdin(t *testing.T) {
	t.Parallel()

	tmp := filepath.Join(t.TempDir(), "f.txt")
	_ = os.WriteFile(tmp, []byte("hello"), 0o600)
	b, err := readAll(nil, tmp)
	if err != nil || string(b) != "hello" {
		t.Fatalf("readAll(file): %q %v", b, err)
	}

	b, err = readAll(strings.NewReader("from-stdin"), "-")
	if err != nil || string(b) != "from-stdin" {
		t.Fatalf("readAll(stdin): %q %v", b, err)
	}
}

func Test_printJSON_WritesPretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printJSON(&buf, map[string]any{"a": 1})

	var m map[string]any
	if json.Unmarshal(buf.Bytes(), &m) != nil || m["a"] != float64(1) {
		t.Fatalf("printJSON produced invalid json: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  ")) {
		t.Fatalf("printJSON should indent")
	}
}

func Test_describe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{&errs.HTTPError{Status: 401}, "login required"},
		{fmt.Errorf("delete post 3: %w", &errs.HTTPError{Status: 404, Message: "no such post"}), "not found: no such post"},
		{&errs.HTTPError{Status: 400, Message: "bad title"}, "rejected: bad title"},
		{errs.Validation("invalid id %q", "x"), `validation: invalid id "x"`},
		{&errs.HTTPError{Status: 429}, "too many attempts"},
		{errors.New("boom"), "boom"},
	}
	for _, c := range cases {
		if got := describe(c.err); !strings.HasPrefix(got, c.want) {
			t.Fatalf("describe(%v)=%q, want prefix %q", c.err, got, c.want)
		}
	}
}

func Test_safeName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a.pdf", safeName("../../a.pdf", 1))
	require.Equal(t, "자료 v2.zip", safeName("자료 v2.zip", 1))
	require.Equal(t, "reference-7", safeName("", 7))
}

func Test_parseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("42")
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
	for _, s := range []string{"", "0", "-1", "x"} {
		_, err := parseID(s)
		require.ErrorIs(t, err, errs.ErrValidation, s)
	}
}

// cli runs one invocation against base in non-interactive mode.
func cli(t *testing.T, base string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--base-url", base, "--non-interactive"}, args...)
	err := run(context.Background(), args, strings.NewReader(""), &out, &errOut)
	return out.String(), err
}

func Test_run_EndToEnd(t *testing.T) {
	withTmpConfig(t)

	api := fakeapi.New(fakeapi.Options{Logger: zaptest.NewLogger(t)})
	_, err := api.AddAdmin("root", "secret", "Root")
	require.NoError(t, err)
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	base := ts.URL + "/api"

	out, err := cli(t, base, "version")
	require.NoError(t, err)
	require.Contains(t, out, "smportal dev")

	out, err = cli(t, base, "whoami")
	require.NoError(t, err)
	require.Equal(t, "not logged in\n", out)

	_, err = cli(t, base, "login", "-u", "root")
	require.ErrorIs(t, err, errs.ErrValidation, "password cannot be prompted")

	out, err = cli(t, base, "login", "-u", "root", "-p", "secret")
	require.NoError(t, err)
	require.Equal(t, "logged in as Root\n", out)

	// a fresh process picks the session up from disk
	out, err = cli(t, base, "whoami")
	require.NoError(t, err)
	require.Equal(t, "Root\n", out)

	out, err = cli(t, base, "qna", "post", "--author", "kim", "--title", "hello", "--content", "body", "-p", "pw")
	require.NoError(t, err)
	postID := strings.TrimSpace(out)
	_, err = strconv.ParseInt(postID, 10, 64)
	require.NoError(t, err)

	out, err = cli(t, base, "qna", "list")
	require.NoError(t, err)
	var page model.Page[model.Post]
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "hello", page.Items[0].Title)

	out, err = cli(t, base, "status")
	require.NoError(t, err)
	var rep statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Equal(t, statusReport{LoggedIn: true, AdminName: "Root", Posts: 1}, rep)

	// the server forgets the session; the next admin call notices
	api.ExpireSessions()
	_, err = cli(t, base, "admins", "list")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	b, err := os.ReadFile(statePath())
	require.NoError(t, err)
	var sf stateFile
	require.NoError(t, json.Unmarshal(b, &sf))
	require.False(t, sf.LoggedIn)
	require.Empty(t, sf.AdminName)

	// anonymous owners must prove the password before mutating
	_, err = cli(t, base, "qna", "rm", postID, "-p", "wrong")
	require.ErrorIs(t, err, errs.ErrForbidden)
	out, err = cli(t, base, "qna", "rm", postID, "-p", "pw")
	require.NoError(t, err)
	require.Equal(t, "deleted\n", out)

	_, err = cli(t, base, "qna", "show", postID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func Test_run_InvalidConfig(t *testing.T) {
	withTmpConfig(t)

	_, err := cli(t, "not a url", "whoami")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func Test_notifier_UsesCommandStreams(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	in := strings.NewReader("\n")
	a := &app{stdin: in, stdout: &out, cfg: config.DefaultConfig(), log: zaptest.NewLogger(t)}

	multi, ok := a.notifier().(notify.Multi)
	require.True(t, ok)
	require.Len(t, multi, 2)
	require.IsType(t, notify.Log{}, multi[0])
	p, ok := multi[1].(*notify.Prompt)
	require.True(t, ok)

	_, err := io.WriteString(p.Stdout, "notice")
	require.NoError(t, err)
	require.Equal(t, "notice", out.String())
	b, err := io.ReadAll(p.Stdin)
	require.NoError(t, err)
	require.Equal(t, "\n", string(b))

	a.cfg.Interactive = false
	require.IsType(t, notify.Log{}, a.notifier())
}
