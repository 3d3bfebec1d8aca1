package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sm-portal/internal/errs"
)

func newTestGateway(t *testing.T, h http.Handler) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := New(Options{BaseURL: srv.URL + "/api", HTTPClient: srv.Client(), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return g, srv
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "/api", "::nope"} {
		_, err := New(Options{BaseURL: u})
		require.Error(t, err, u)
	}
}

func TestDo_SendsJSONAndQuery(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/qna/search", r.URL.Path)
		assert.Equal(t, "go", r.URL.Query().Get("keyword"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))

		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["x"]})
	}))

	var out struct{ Echo string }
	err := g.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/qna/search",
		Query:  url.Values{"keyword": {"go"}},
		Body:   map[string]string{"x": "hello"},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "hello", out.Echo)
}

func TestDo_NoContentAndNilOut(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	var out struct{ A int }
	require.NoError(t, g.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/qna/1"}, &out))
	require.NoError(t, g.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/qna/1"}, nil))
}

func TestDo_MapsHTTPErrors(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/bad":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message":"title required"}`)
		case "/api/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	err := g.Do(ctx, Request{Method: http.MethodPost, Path: "/bad"}, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
	var he *errs.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, "title required", he.Message)

	require.ErrorIs(t, g.Do(ctx, Request{Method: http.MethodPut, Path: "/forbidden"}, nil), errs.ErrForbidden)
	require.ErrorIs(t, g.Do(ctx, Request{Method: http.MethodGet, Path: "/missing"}, nil), errs.ErrNotFound)
}

func TestDo_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	g, err := New(Options{BaseURL: base + "/api"})
	require.NoError(t, err)
	err = g.Do(context.Background(), Request{Method: http.MethodGet, Path: "/qna"}, nil)
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestDo_MultipartForm(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Manual", r.FormValue("title"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "manual.pdf", hdr.Filename)
		assert.Equal(t, "PDFDATA", string(b))
		_, _ = io.WriteString(w, `{"id":3}`)
	}))

	var out struct{ ID int64 }
	err := g.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/references",
		Form: &Form{
			Fields: url.Values{"title": {"Manual"}, "categoryId": {"1"}},
			Files:  []FormFile{{Field: "file", FileName: "manual.pdf", Content: strings.NewReader("PDFDATA")}},
		},
	}, &out)
	require.NoError(t, err)
	require.EqualValues(t, 3, out.ID)
}

func TestOpen_ParsesDisposition(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename*=UTF-8''%EC%9E%90%EB%A3%8C%20v2.zip`)
		_, _ = io.WriteString(w, "ZIP")
	}))

	d, err := g.Open(context.Background(), "/references/4/download")
	require.NoError(t, err)
	defer d.Body.Close()
	b, _ := io.ReadAll(d.Body)
	require.Equal(t, "ZIP", string(b))
	require.Equal(t, "자료 v2.zip", d.FileName)
	require.Equal(t, "application/octet-stream", d.ContentType)
}

func TestURL_IsPure(t *testing.T) {
	t.Parallel()

	g, err := New(Options{BaseURL: "http://example.test/api/"})
	require.NoError(t, err)
	require.Equal(t, "http://example.test/api/references/5/download", g.URL("/references/5/download"))
	require.Equal(t, g.URL("references/5/download"), g.URL("/references/5/download"))
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var trace []string
	mk := func(name string) Interceptor {
		return func(ctx context.Context, req *http.Request, next Invoker) (*http.Response, error) {
			trace = append(trace, name+">")
			resp, err := next(ctx, req)
			trace = append(trace, "<"+name)
			return resp, err
		}
	}
	final := func(context.Context, *http.Request) (*http.Response, error) {
		trace = append(trace, "rt")
		return &http.Response{StatusCode: 200}, nil
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Chain(final, mk("a"), mk("b"))(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, []string{"a>", "b>", "rt", "<b", "<a"}, trace)
}
