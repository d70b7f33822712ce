package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diogopython/Nuvemhost/internal/guard"
	"github.com/diogopython/Nuvemhost/internal/model"
)

// ProjectLookup finds a project by its public slug.
type ProjectLookup interface {
	GetByFolder(ctx context.Context, folder string) (*model.Project, error)
}

// Asset is an open file ready to be streamed. The caller closes File.
type Asset struct {
	File        *os.File
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// SiteService serves extracted project files to anonymous visitors.
type SiteService struct {
	lookup ProjectLookup
	root   string
	guard  *guard.Guard
}

func NewSiteService(lookup ProjectLookup, root string, g *guard.Guard) *SiteService {
	return &SiteService{lookup: lookup, root: root, guard: g}
}

// Serve opens the file rel of the project published under slug. An empty
// rel or one ending in "/" means the directory's index.html.
func (s *SiteService) Serve(ctx context.Context, slug, rel string) (*Asset, error) {
	if _, err := uuid.Parse(slug); err != nil {
		return nil, ErrNotFound
	}
	p, err := s.lookup.GetByFolder(ctx, slug)
	if err != nil {
		return nil, storeErr(err)
	}
	root, err := projectDir(s.root, p)
	if err != nil {
		return nil, err
	}

	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}
	abs, err := s.resolve(root, rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		abs, err = s.resolve(root, path.Join(rel, "index.html"))
		if err != nil {
			return nil, err
		}
		info, err = os.Stat(abs)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !s.guard.Allows(abs) {
		return nil, ErrForbidden
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}

	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// the file may have been swapped since Stat
	if info, err = f.Stat(); err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}
	return &Asset{
		File:        f,
		Name:        filepath.Base(abs),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: ContentType(abs),
	}, nil
}

// resolve does the containment check only. The extension is checked after
// directories have been mapped to their index.html. A request for a missing
// file of a disallowed type is still forbidden.
func (s *SiteService) resolve(root, rel string) (string, error) {
	abs, err := guard.Within(root, rel)
	if err != nil {
		if errors.Is(err, guard.ErrPathEscape) {
			return "", fmt.Errorf("%w: %v", ErrForbidden, err)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) && !s.guard.Allows(abs) {
		return "", ErrForbidden
	}
	return abs, nil
}

// ContentType picks a MIME type from the file extension, falling back to a
// built-in table on systems with sparse mime databases. Unknown types are
// served as application/octet-stream.
func ContentType(name string) string {
	ext := model.Ext(name)
	if ext == "" {
		return "application/octet-stream"
	}
	if ct, ok := fallbackTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// fallbackTypes wins over the system table for the core web types, which
// some mime databases map to legacy values (text/x-js and friends).
var fallbackTypes = map[string]string{
	"html":        "text/html; charset=utf-8",
	"htm":         "text/html; charset=utf-8",
	"css":         "text/css; charset=utf-8",
	"js":          "text/javascript; charset=utf-8",
	"mjs":         "text/javascript; charset=utf-8",
	"json":        "application/json",
	"map":         "application/json",
	"webmanifest": "application/manifest+json",
	"txt":         "text/plain; charset=utf-8",
	"md":          "text/markdown; charset=utf-8",
	"xml":         "application/xml",
	"svg":         "image/svg+xml",
	"ico":         "image/x-icon",
	"png":         "image/png",
	"jpg":         "image/jpeg",
	"jpeg":        "image/jpeg",
	"gif":         "image/gif",
	"webp":        "image/webp",
	"woff":        "font/woff",
	"woff2":       "font/woff2",
	"ttf":         "font/ttf",
	"otf":         "font/otf",
	"mp3":         "audio/mpeg",
	"mp4":         "video/mp4",
	"webm":        "video/webm",
	"pdf":         "application/pdf",
}
