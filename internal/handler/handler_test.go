package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/diogopython/Nuvemhost/internal/middleware"
	"github.com/diogopython/Nuvemhost/internal/model"
	"github.com/diogopython/Nuvemhost/internal/service"
)

// asUser authenticates every request as user 1 ("alice").
func asUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		middleware.SetUser(c, 1, "alice", "hash-1")
		return next(c)
	}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type fakeProjects struct {
	mu        sync.Mutex
	projects  map[string]*model.Project
	uploadErr error
	deleteErr error
	uploaded  []byte
	gotName   string
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{projects: map[string]*model.Project{
		"p1": {ID: "p1", UserID: 1, Name: "Site", FolderPath: "p1", UploadedAt: time.Unix(1700000000, 0).UTC()},
		"p2": {ID: "p2", UserID: 2, Name: "Other", FolderPath: "p2"},
	}}
}

func (f *fakeProjects) Upload(_ context.Context, owner uint64, name string, r io.ReaderAt, size int64) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	f.uploaded = buf
	f.gotName = name
	p := &model.Project{ID: "new", UserID: owner, Name: name, FolderPath: "new"}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeProjects) Get(_ context.Context, id string, owner uint64) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok || p.UserID != owner {
		return nil, service.ErrNotFound
	}
	return p, nil
}

func (f *fakeProjects) List(_ context.Context, owner uint64) ([]*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Project
	for _, p := range f.projects {
		if p.UserID == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) Delete(_ context.Context, id string, owner uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	p, ok := f.projects[id]
	if !ok || p.UserID != owner {
		return service.ErrNotFound
	}
	delete(f.projects, id)
	return nil
}

// fakeFiles serves one project ("p1") with a fixed set of files.
type fakeFiles struct {
	content map[string]string
}

func (f *fakeFiles) Tree(_ context.Context, id string, owner uint64) ([]model.FileEntry, error) {
	if id != "p1" || owner != 1 {
		return nil, service.ErrNotFound
	}
	return []model.FileEntry{{Path: "img/logo.png"}, {Path: "index.html", Editable: true}}, nil
}

func (f *fakeFiles) List(_ context.Context, id string, owner uint64) ([]string, error) {
	if id != "p1" || owner != 1 {
		return nil, service.ErrNotFound
	}
	return []string{"index.html"}, nil
}

func (f *fakeFiles) Read(_ context.Context, id string, owner uint64, rel string) (string, error) {
	if id != "p1" || owner != 1 {
		return "", service.ErrNotFound
	}
	if filepath.Ext(rel) == ".png" {
		return "", service.ErrForbidden
	}
	s, ok := f.content[rel]
	if !ok {
		return "", service.ErrNotFound
	}
	return s, nil
}

func (f *fakeFiles) Write(_ context.Context, id string, owner uint64, rel, content string) error {
	if id != "p1" || owner != 1 {
		return service.ErrNotFound
	}
	if filepath.Ext(rel) == ".png" {
		return service.ErrForbidden
	}
	f.content[rel] = content
	return nil
}

// fakeSites serves files from a directory for the slug "site".
type fakeSites struct {
	dir string
}

func (f fakeSites) Serve(_ context.Context, slug, rel string) (*service.Asset, error) {
	if slug != "site" {
		return nil, service.ErrNotFound
	}
	if rel == "" {
		rel = "index.html"
	}
	if rel == "../etc/passwd" {
		return nil, service.ErrForbidden
	}
	fh, err := os.Open(filepath.Join(f.dir, rel))
	if err != nil {
		return nil, service.ErrNotFound
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, err
	}
	return &service.Asset{
		File:        fh,
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: service.ContentType(rel),
	}, nil
}

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	return dir
}
