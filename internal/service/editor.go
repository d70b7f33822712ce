package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/diogopython/Nuvemhost/internal/guard"
	"github.com/diogopython/Nuvemhost/internal/model"
)

// EditorService lets owners list, read and overwrite the text files of a
// project. All paths go through the editable-file guard.
type EditorService struct {
	store      ProjectStore
	root       string
	guard      *guard.Guard
	maxContent int64
}

// NewEditorService returns an EditorService. maxContent bounds the size of
// a saved file; zero means no bound.
func NewEditorService(store ProjectStore, root string, g *guard.Guard, maxContent int64) *EditorService {
	return &EditorService{store: store, root: root, guard: g, maxContent: maxContent}
}

func (s *EditorService) projectRoot(ctx context.Context, id string, owner uint64) (string, error) {
	p, err := s.store.GetByIDAndOwner(ctx, id, owner)
	if err != nil {
		return "", storeErr(err)
	}
	return projectDir(s.root, p)
}

// Tree walks the project folder and returns every regular file, flagged
// editable or not. Symlinks are ignored.
func (s *EditorService) Tree(ctx context.Context, id string, owner uint64) ([]model.FileEntry, error) {
	root, err := s.projectRoot(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	var out []model.FileEntry
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := guard.SlashRel(root, p)
		if err != nil {
			return err
		}
		out = append(out, model.FileEntry{Path: rel, Editable: s.guard.Allows(rel)})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("walk project: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// List returns the sorted editable files of a project.
func (s *EditorService) List(ctx context.Context, id string, owner uint64) ([]string, error) {
	tree, err := s.Tree(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, f := range tree {
		if f.Editable {
			out = append(out, f.Path)
		}
	}
	return out, nil
}

func (s *EditorService) resolve(ctx context.Context, id string, owner uint64, rel string) (string, error) {
	root, err := s.projectRoot(ctx, id, owner)
	if err != nil {
		return "", err
	}
	abs, err := s.guard.Resolve(root, rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		if errors.Is(err, guard.ErrPathEscape) || errors.Is(err, guard.ErrDisallowedType) {
			return "", fmt.Errorf("%w: %v", ErrForbidden, err)
		}
		return "", err
	}
	return abs, nil
}

// Read returns the content of a text file.
func (s *EditorService) Read(ctx context.Context, id string, owner uint64, rel string) (string, error) {
	abs, err := s.resolve(ctx, id, owner, rel)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrNotText
	}
	return string(b), nil
}

// Write replaces the content of rel. The new bytes go to a temporary file in
// the same directory which is synced and renamed over the target, so readers
// see either the old or the new file. The parent directory must exist.
func (s *EditorService) Write(ctx context.Context, id string, owner uint64, rel, content string) error {
	if s.maxContent > 0 && int64(len(content)) > s.maxContent {
		return ErrContentTooLarge
	}
	if !utf8.ValidString(content) {
		return ErrNotText
	}
	abs, err := s.resolve(ctx, id, owner, rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ErrNotFound
	}
	if info, err := os.Lstat(abs); err == nil {
		if info.IsDir() {
			return ErrNotFound
		}
		if !info.Mode().IsRegular() {
			return ErrForbidden
		}
	}

	tmp, err := os.CreateTemp(dir, ".save-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	tmpName = ""
	return nil
}
