package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diogopython/Nuvemhost/internal/archive"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/model"
	"github.com/diogopython/Nuvemhost/internal/repository"
)

// memStore is an in-memory ProjectStore with the same error contract as the
// MySQL repository.
type memStore struct {
	mu        sync.Mutex
	projects  map[string]*model.Project
	err       error // returned by every call when set
	createErr error
	deleteErr error
	lookups   int
}

func newMemStore() *memStore { return &memStore{projects: map[string]*model.Project{}} }

func (m *memStore) Create(_ context.Context, p *model.Project, max int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.createErr != nil {
		return m.createErr
	}
	n := 0
	for _, q := range m.projects {
		if q.UserID == p.UserID {
			n++
		}
	}
	if n >= max {
		return repository.ErrQuotaExceeded
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memStore) GetByIDAndOwner(_ context.Context, id string, owner uint64) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.projects[id]
	if !ok || p.UserID != owner {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetByFolder(_ context.Context, folder string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.projects {
		if p.FolderPath == folder {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListByOwner(_ context.Context, owner uint64) ([]*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*model.Project
	for _, p := range m.projects {
		if p.UserID == owner {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string, owner uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.deleteErr != nil {
		return m.deleteErr
	}
	p, ok := m.projects[id]
	if !ok || p.UserID != owner {
		return repository.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *memStore) CountByOwner(_ context.Context, owner uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, p := range m.projects {
		if p.UserID == owner {
			n++
		}
	}
	return n, nil
}

type memRetainer struct {
	put, deleted []string
	putErr       error
}

func (r *memRetainer) Put(_ context.Context, id string, _ io.ReaderAt, _ int64) error {
	if r.putErr != nil {
		return r.putErr
	}
	r.put = append(r.put, id)
	return nil
}

func (r *memRetainer) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

// untouchedReader fails the test if the archive is read at all.
type untouchedReader struct{ t *testing.T }

func (u untouchedReader) ReadAt([]byte, int64) (int, error) {
	u.t.Fatal("archive was read")
	return 0, io.EOF
}

func zipOf(t *testing.T, files map[string]string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

var (
	servable = []string{"html", "css", "js", "png", "txt", "json"}
	editable = []string{"html", "css", "js", "txt", "json"}
)

func testPolicy() archive.Policy {
	return archive.NewPolicy(servable, 100, 1<<20, 1<<20)
}

func newProjectService(t *testing.T, store ProjectStore, retainer ArchiveRetainer) *ProjectService {
	t.Helper()
	svc, err := NewProjectService(store, t.TempDir(), testPolicy(), retainer, logging.Discard())
	require.NoError(t, err)
	return svc
}

// upload is a shortcut for a successful upload of files.
func upload(t *testing.T, svc *ProjectService, owner uint64, files map[string]string) *model.Project {
	t.Helper()
	zr := zipOf(t, files)
	p, err := svc.Upload(context.Background(), owner, "site", zr, zr.Size())
	require.NoError(t, err)
	return p
}
