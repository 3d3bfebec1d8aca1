// Package gateway is the single HTTP entry point used by every store.
//
// All requests share one cookie-carrying http.Client and one interceptor
// chain. The chain owns the session-expiry protocol: the first 401 observed
// while a session is active clears it and raises exactly one notice, however
// many requests fail at the same time.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/sm-portal/internal/errs"
)

// maxErrorBody caps how much of a failed reply is read for its message.
const maxErrorBody = 64 << 10

// Request describes one API call relative to the gateway's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any   // JSON-encoded when non-nil
	Form   *Form // multipart/form-data; takes precedence over Body
}

// Form is a multipart payload.
type Form struct {
	Fields url.Values
	Files  []FormFile
}

// FormFile is one file part of a Form.
type FormFile struct {
	Field    string
	FileName string
	Content  io.Reader
}

// Download is an open file response. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	FileName    string
	ContentType string
}

// Options configures a Gateway.
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:8080/api".
	BaseURL string
	// HTTPClient should carry a cookie jar; it is copied, not modified.
	HTTPClient *http.Client
	// Timeout is a transport-level limit per request; zero keeps the client's value.
	Timeout  time.Duration
	Logger   *zap.Logger
	Notifier Notifier
	// Interceptors run inside the built-in ones, in order.
	Interceptors []Interceptor
}

// Gateway issues API requests with ambient session credentials.
type Gateway struct {
	base   string
	client *http.Client
	log    *zap.Logger
	expiry *expiryGuard
	invoke Invoker
}

// New validates options and assembles the interceptor chain.
func New(opts Options) (*Gateway, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", opts.BaseURL)
	}
	client := &http.Client{}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		client = &c
	}
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	g := &Gateway{
		base:   strings.TrimRight(u.String(), "/"),
		client: client,
		log:    log,
		expiry: &expiryGuard{notifier: opts.Notifier, log: log},
	}
	ics := []Interceptor{g.expiry.intercept, RequestID(), Logging(log)}
	ics = append(ics, opts.Interceptors...)
	g.invoke = Chain(g.roundTrip, ics...)
	return g, nil
}

// BindSession attaches the session capability the expiry protocol clears.
// It is called once at startup, after the session store has been built on top of g.
func (g *Gateway) BindSession(s SessionSink) { g.expiry.bind(s) }

// URL returns the absolute URL for an API path. It performs no I/O.
func (g *Gateway) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.base + path
}

// Do performs r and decodes a JSON reply into out (when out is non-nil).
func (g *Gateway) Do(ctx context.Context, r Request, out any) error {
	req, err := g.newRequest(ctx, r)
	if err != nil {
		return err
	}
	resp, err := g.invoke(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", r.Method, r.Path, err)
	}
	return nil
}

// Open performs a streaming GET, typically for file downloads.
func (g *Gateway) Open(ctx context.Context, path string) (*Download, error) {
	req, err := g.newRequest(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	resp, err := g.invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	d := &Download{
		Body:        resp.Body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			d.FileName = params["filename"]
		}
	}
	return d, nil
}

func (g *Gateway) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	target := g.URL(r.Path)
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.Form != nil:
		buf := &bytes.Buffer{}
		ct, err := encodeForm(buf, r.Form)
		if err != nil {
			return nil, fmt.Errorf("encode form %s: %w", r.Path, err)
		}
		body, contentType = buf, ct
	case r.Body != nil:
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body %s: %w", r.Path, err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", r.Method, r.Path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func encodeForm(w io.Writer, f *Form) (string, error) {
	mw := multipart.NewWriter(w)
	for k, vs := range f.Fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				return "", err
			}
		}
	}
	for _, file := range f.Files {
		part, err := mw.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

// roundTrip is the innermost Invoker: it maps transport failures to
// errs.ErrNetwork and non-2xx replies to *errs.HTTPError.
func (g *Gateway) roundTrip(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", errs.ErrNetwork, req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	he := &errs.HTTPError{Status: resp.StatusCode, Method: req.Method, Path: req.URL.Path}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &msg) == nil {
		he.Message = msg.Message
	}
	return nil, he
}
