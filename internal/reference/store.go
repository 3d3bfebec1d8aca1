// Package reference is the client store for the document library:
// categories and the reference documents filed under them.
package reference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/and161185/sm-portal/internal/collection"
	"github.com/and161185/sm-portal/internal/errs"
	"github.com/and161185/sm-portal/internal/gateway"
	"github.com/and161185/sm-portal/internal/model"
)

// DefaultPageSize is the library's listing size.
const DefaultPageSize = 10

type doer interface {
	Do(ctx context.Context, r gateway.Request, out any) error
	Open(ctx context.Context, path string) (*gateway.Download, error)
	URL(path string) string
}

// File is an upload part.
type File struct {
	Name    string
	Content io.Reader
}

// Upload is the payload for filing a new reference.
type Upload struct {
	CategoryID  int64
	Title       string
	Description string
	File        File
	Thumbnail   *File
}

func (u Upload) form() (*gateway.Form, error) {
	switch {
	case u.CategoryID <= 0:
		return nil, errs.Validation("category is required")
	case strings.TrimSpace(u.Title) == "":
		return nil, errs.Validation("title is required")
	case u.File.Name == "" || u.File.Content == nil:
		return nil, errs.Validation("file is required")
	}
	f := &gateway.Form{
		Fields: url.Values{
			"categoryId":  {strconv.FormatInt(u.CategoryID, 10)},
			"title":       {u.Title},
			"description": {u.Description},
		},
		Files: []gateway.FormFile{{Field: "file", FileName: u.File.Name, Content: u.File.Content}},
	}
	if u.Thumbnail != nil {
		f.Files = append(f.Files, gateway.FormFile{Field: "thumbnail", FileName: u.Thumbnail.Name, Content: u.Thumbnail.Content})
	}
	return f, nil
}

// ProgressFunc reports bytes written so far and the expected total (-1 when unknown).
type ProgressFunc func(written, total int64)

// Store caches the category list, one page of references and the open reference.
type Store struct {
	gw         doer
	cache      *collection.Cache[model.Reference]
	categories *collection.Latest[[]model.Category]
}

// NewStore constructs an empty store.
func NewStore(gw doer) *Store {
	return &Store{
		gw:         gw,
		cache:      collection.NewCache[model.Reference](),
		categories: collection.NewLatest([]model.Category{}),
	}
}

// Page returns the cached listing.
func (s *Store) Page() model.Page[model.Reference] { return s.cache.Page() }

// Current returns the open reference, if any.
func (s *Store) Current() (model.Reference, bool) { return s.cache.Current() }

// CachedCategories returns the last fetched category list.
func (s *Store) CachedCategories() []model.Category { return s.categories.Get() }

// SubscribePage observes listing changes.
func (s *Store) SubscribePage(fn func(model.Page[model.Reference])) (cancel func()) {
	return s.cache.SubscribePage(fn)
}

// SubscribeCategories observes the category list.
func (s *Store) SubscribeCategories(fn func([]model.Category)) (cancel func()) {
	return s.categories.Subscribe(fn)
}

// Categories fetches every category in display order.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	seq := s.categories.Begin()
	var out []model.Category
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/reference-categories"}, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if out == nil {
		out = []model.Category{}
	}
	s.categories.Commit(seq, out)
	return out, nil
}

// CreateCategory adds a category. The cached list is refreshed only by Categories.
func (s *Store) CreateCategory(ctx context.Context, d model.CategoryDraft) (model.Category, error) {
	if strings.TrimSpace(d.Name) == "" {
		return model.Category{}, errs.Validation("category name is required")
	}
	var out model.Category
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/reference-categories", Body: d}, &out); err != nil {
		return model.Category{}, fmt.Errorf("create category: %w", err)
	}
	return out, nil
}

// UpdateCategory renames or reorders category id.
func (s *Store) UpdateCategory(ctx context.Context, id int64, d model.CategoryDraft) (model.Category, error) {
	if strings.TrimSpace(d.Name) == "" {
		return model.Category{}, errs.Validation("category name is required")
	}
	var out model.Category
	r := gateway.Request{Method: http.MethodPut, Path: categoryPath(id), Body: d}
	if err := s.gw.Do(ctx, r, &out); err != nil {
		return model.Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return out, nil
}

// DeleteCategory removes an empty category; one that still files references
// fails with errs.ErrConflict.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: categoryPath(id)}, nil); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, path string, page, size int) (model.Page[model.Reference], error) {
	if err := collection.ValidatePage(page, size); err != nil {
		return model.Page[model.Reference]{}, err
	}
	return s.cache.Load(ctx, func(ctx context.Context) (model.Page[model.Reference], error) {
		var out model.Page[model.Reference]
		q := url.Values{"page": {strconv.Itoa(page)}, "size": {strconv.Itoa(size)}}
		if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: path, Query: q}, &out); err != nil {
			return out, fmt.Errorf("list references: %w", err)
		}
		return out, nil
	})
}

// List loads one page of all references, newest first.
func (s *Store) List(ctx context.Context, page, size int) (model.Page[model.Reference], error) {
	return s.load(ctx, "/references", page, size)
}

// ListByCategory loads one page of the references in category catID. It
// shares the listing slot with List.
func (s *Store) ListByCategory(ctx context.Context, catID int64, page, size int) (model.Page[model.Reference], error) {
	return s.load(ctx, "/references/category/"+strconv.FormatInt(catID, 10), page, size)
}

// Get opens a reference. The listing is left alone.
func (s *Store) Get(ctx context.Context, id int64) (model.Reference, error) {
	return s.cache.LoadCurrent(ctx, func(ctx context.Context) (model.Reference, error) {
		var out model.Reference
		if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: referencePath(id)}, &out); err != nil {
			return out, fmt.Errorf("get reference %d: %w", id, err)
		}
		return out, nil
	})
}

// Create uploads a new reference as multipart form data.
func (s *Store) Create(ctx context.Context, u Upload) (model.Reference, error) {
	form, err := u.form()
	if err != nil {
		return model.Reference{}, err
	}
	var out model.Reference
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/references", Form: form}, &out); err != nil {
		return model.Reference{}, fmt.Errorf("create reference: %w", err)
	}
	return out, nil
}

// Delete removes reference id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: referencePath(id)}, nil); err != nil {
		return fmt.Errorf("delete reference %d: %w", id, err)
	}
	return nil
}

// DownloadURL returns the download link for reference id. It performs no
// I/O and does not check that the reference exists.
func (s *Store) DownloadURL(id int64) string {
	return s.gw.URL(referencePath(id) + "/download")
}

// Download streams the file of reference id into w and returns the
// server-provided file name and the byte count.
func (s *Store) Download(ctx context.Context, id int64, w io.Writer, progress ProgressFunc) (string, int64, error) {
	d, err := s.gw.Open(ctx, referencePath(id)+"/download")
	if err != nil {
		return "", 0, fmt.Errorf("download reference %d: %w", id, err)
	}
	defer d.Body.Close()

	if progress != nil {
		w = &progressWriter{w: w, total: d.Size, fn: progress}
	}
	n, err := io.Copy(w, d.Body)
	if err != nil {
		return d.FileName, n, fmt.Errorf("download reference %d: %w", id, err)
	}
	return d.FileName, n, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written, p.total)
	return n, err
}

func categoryPath(id int64) string  { return "/reference-categories/" + strconv.FormatInt(id, 10) }
func referencePath(id int64) string { return "/references/" + strconv.FormatInt(id, 10) }
