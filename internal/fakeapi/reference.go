package fakeapi

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/and161185/sm-portal/internal/model"
)

const maxUpload = 32 << 20

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

type categoryInput struct {
	Name      string `json:"name"`
	SortOrder *int   `json:"sortOrder"`
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeMessage(w, http.StatusBadRequest, "category name is required")
		return
	}
	s.mu.Lock()
	c := &model.Category{ID: s.id(), Name: in.Name}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	} else {
		c.SortOrder = len(s.categories)
	}
	s.categories[c.ID] = c
	out := *c
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in categoryInput
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeMessage(w, http.StatusBadRequest, "category name is required")
		return
	}
	s.mu.Lock()
	c := s.categories[id]
	var out model.Category
	if c != nil {
		c.Name = in.Name
		if in.SortOrder != nil {
			c.SortOrder = *in.SortOrder
		}
		for _, ref := range s.refs {
			if ref.CategoryID == id {
				ref.CategoryName = in.Name
			}
		}
		out = *c
	}
	s.mu.Unlock()
	if c == nil {
		writeMessage(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		writeMessage(w, http.StatusNotFound, "category not found")
		return
	}
	for _, ref := range s.refs {
		if ref.CategoryID == id {
			writeMessage(w, http.StatusConflict, "category still has references")
			return
		}
	}
	delete(s.categories, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) referencePage(w http.ResponseWriter, r *http.Request, keep func(*refRec) bool) {
	page, size, ok := pageParams(w, r, defaultListSize)
	if !ok {
		return
	}
	s.mu.Lock()
	all := make([]model.Reference, 0, len(s.refs))
	for _, ref := range s.refs {
		if keep(ref) {
			all = append(all, ref.Reference)
		}
	}
	s.mu.Unlock()
	sortedByIDDesc(all, func(r model.Reference) int64 { return r.ID })
	writeJSON(w, http.StatusOK, paginate(all, page, size))
}

func (s *Server) listReferences(w http.ResponseWriter, r *http.Request) {
	s.referencePage(w, r, func(*refRec) bool { return true })
}

func (s *Server) listReferencesByCategory(w http.ResponseWriter, r *http.Request) {
	catID, ok := pathID(w, r)
	if !ok {
		return
	}
	s.referencePage(w, r, func(ref *refRec) bool { return ref.CategoryID == catID })
}

func (s *Server) getReference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	ref := s.refs[id]
	var out model.Reference
	if ref != nil {
		out = ref.Reference
	}
	s.mu.Unlock()
	if ref == nil {
		writeMessage(w, http.StatusNotFound, "reference not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createReference(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeMessage(w, http.StatusBadRequest, "multipart form expected")
		return
	}
	catID, err := strconv.ParseInt(r.FormValue("categoryId"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "category is required")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeMessage(w, http.StatusBadRequest, "title is required")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "unreadable file")
		return
	}
	var thumb string
	if tf, th, err := r.FormFile("thumbnail"); err == nil {
		_ = tf.Close()
		thumb = "/uploads/thumbnails/" + path.Base(th.Filename)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.categories[catID]
	if !ok {
		writeMessage(w, http.StatusBadRequest, "unknown category")
		return
	}
	id := s.id()
	ref := &refRec{
		Reference: model.Reference{
			ID:            id,
			CategoryID:    cat.ID,
			CategoryName:  cat.Name,
			Title:         title,
			Description:   r.FormValue("description"),
			FileName:      hdr.Filename,
			ThumbnailPath: thumb,
			CreatedAt:     model.Timestamp{Time: s.now()},
			Files:         []model.Attachment{{ID: s.id(), FileName: hdr.Filename}},
			Images:        []model.Attachment{},
		},
		content: content,
	}
	s.refs[id] = ref
	writeJSON(w, http.StatusOK, ref.Reference)
}

func (s *Server) deleteReference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[id]; !ok {
		writeMessage(w, http.StatusNotFound, "reference not found")
		return
	}
	delete(s.refs, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) downloadReference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	ref := s.refs[id]
	var (
		content []byte
		name    string
	)
	if ref != nil {
		ref.DownloadCount++
		content, name = ref.content, ref.FileName
	}
	s.mu.Unlock()
	if ref == nil {
		writeMessage(w, http.StatusNotFound, "reference not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	_, _ = w.Write(content)
}
