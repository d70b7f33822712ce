// Package service implements project upload, public serving and editing on
// top of the repositories and the archive/guard packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/diogopython/Nuvemhost/internal/archive"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/model"
)

// MaxProjectNameLen bounds project names, counted in characters.
const MaxProjectNameLen = 100

// ProjectStore is the persistence the services need. *repository.ProjectRepo
// implements it.
type ProjectStore interface {
	Create(ctx context.Context, p *model.Project, maxPerOwner int) error
	GetByIDAndOwner(ctx context.Context, id string, owner uint64) (*model.Project, error)
	GetByFolder(ctx context.Context, folder string) (*model.Project, error)
	ListByOwner(ctx context.Context, owner uint64) ([]*model.Project, error)
	Delete(ctx context.Context, id string, owner uint64) error
	CountByOwner(ctx context.Context, owner uint64) (int, error)
}

// ArchiveRetainer keeps a copy of the uploaded archive. Optional.
type ArchiveRetainer interface {
	Put(ctx context.Context, projectID string, r io.ReaderAt, size int64) error
	Delete(ctx context.Context, projectID string) error
}

// ProjectService creates, lists and deletes projects. Every project owns one
// directory directly below root, named after its id.
type ProjectService struct {
	store    ProjectStore
	root     string
	policy   archive.Policy
	retainer ArchiveRetainer
	log      logging.Logger
	now      func() time.Time
}

// NewProjectService creates the upload root if needed. retainer may be nil.
func NewProjectService(store ProjectStore, root string, policy archive.Policy, retainer ArchiveRetainer, log logging.Logger) (*ProjectService, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &ProjectService{
		store:    store,
		root:     abs,
		policy:   policy,
		retainer: retainer,
		log:      log,
		now:      time.Now,
	}, nil
}

// Root returns the absolute upload root.
func (s *ProjectService) Root() string { return s.root }

// Upload validates name, extracts the archive into a fresh folder and records
// the project. Nothing is left on disk when it fails.
func (s *ProjectService) Upload(ctx context.Context, owner uint64, name string, r io.ReaderAt, size int64) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxProjectNameLen || !utf8.ValidString(name) {
		return nil, ErrInvalidName
	}

	n, err := s.store.CountByOwner(ctx, owner)
	if err != nil {
		return nil, storeErr(err)
	}
	if n >= model.MaxProjectsPerUser {
		return nil, ErrQuotaExceeded
	}

	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project folder: %w", err)
	}
	retained := false
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Error(ctx, "remove project folder failed", "project_id", id, "err", err)
		}
		if retained {
			if err := s.retainer.Delete(context.WithoutCancel(ctx), id); err != nil {
				s.log.Warn(ctx, "remove retained archive failed", "project_id", id, "err", err)
			}
		}
	}

	res, err := archive.Ingest(r, size, dir, s.policy)
	if err != nil {
		cleanup()
		return nil, err
	}

	if s.retainer != nil {
		if err := s.retainer.Put(ctx, id, r, size); err != nil {
			s.log.Warn(ctx, "archive retention failed", "project_id", id, "err", err)
		} else {
			retained = true
		}
	}

	p := &model.Project{
		ID:         id,
		UserID:     owner,
		Name:       name,
		FolderPath: id,
		UploadedAt: s.now().UTC().Truncate(time.Second),
	}
	if err := s.store.Create(ctx, p, model.MaxProjectsPerUser); err != nil {
		cleanup()
		return nil, storeErr(err)
	}

	s.log.Info(ctx, "project uploaded",
		"project_id", id, "user_id", owner, "files", len(res.Files), "skipped", len(res.Skipped))
	return p, nil
}

// Get returns one of owner's projects.
func (s *ProjectService) Get(ctx context.Context, id string, owner uint64) (*model.Project, error) {
	p, err := s.store.GetByIDAndOwner(ctx, id, owner)
	if err != nil {
		return nil, storeErr(err)
	}
	return p, nil
}

// List returns owner's projects, newest first.
func (s *ProjectService) List(ctx context.Context, owner uint64) ([]*model.Project, error) {
	ps, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, storeErr(err)
	}
	return ps, nil
}

// Delete removes the project row and its folder. The folder is first moved
// aside so a failed row delete can put it back.
func (s *ProjectService) Delete(ctx context.Context, id string, owner uint64) error {
	p, err := s.store.GetByIDAndOwner(ctx, id, owner)
	if err != nil {
		return storeErr(err)
	}
	dir, err := projectDir(s.root, p)
	if err != nil {
		s.log.Error(ctx, "project folder path is invalid", "project_id", id, "folder", p.FolderPath)
		return ErrCorrupt
	}

	trash := filepath.Join(s.root, ".trash-"+uuid.NewString())
	moved := true
	if err := os.Rename(dir, trash); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("detach project folder: %w", err)
		}
		s.log.Error(ctx, "project folder missing on delete", "project_id", id, "folder", dir)
		moved = false
	}

	if err := s.store.Delete(ctx, id, owner); err != nil {
		if moved {
			if rerr := os.Rename(trash, dir); rerr != nil {
				s.log.Error(ctx, "restore project folder failed",
					"project_id", id, "folder", dir, "trash", trash, "err", rerr)
				return ErrCorrupt
			}
		}
		return storeErr(err)
	}

	if moved {
		if err := os.RemoveAll(trash); err != nil {
			s.log.Warn(ctx, "purge deleted project folder failed", "project_id", id, "trash", trash, "err", err)
		}
	}
	if s.retainer != nil {
		if err := s.retainer.Delete(ctx, id); err != nil {
			s.log.Warn(ctx, "remove retained archive failed", "project_id", id, "err", err)
		}
	}
	s.log.Info(ctx, "project deleted", "project_id", id, "user_id", owner)
	return nil
}

// projectDir returns the absolute folder of p. FolderPath must be a single
// path segment.
func projectDir(root string, p *model.Project) (string, error) {
	fp := p.FolderPath
	if fp == "" || fp == "." || fp == ".." || strings.ContainsAny(fp, `/\`) || strings.ContainsRune(fp, 0) {
		return "", ErrCorrupt
	}
	return filepath.Join(root, fp), nil
}
