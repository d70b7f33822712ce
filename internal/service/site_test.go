package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogopython/Nuvemhost/internal/guard"
)

func newSite(t *testing.T) (*SiteService, *ProjectService, *memStore, string) {
	t.Helper()
	store := newMemStore()
	ps := newProjectService(t, store, nil)
	p := upload(t, ps, 1, map[string]string{
		"index.html":      "<h1>home</h1>",
		"docs/index.html": "<h1>docs</h1>",
		"css/site.css":    "body{}",
		"app.js":          "1",
		"notes.txt":       "plain",
	})
	return NewSiteService(store, ps.Root(), guard.New(servable)), ps, store, p.ID
}

func readAsset(t *testing.T, a *Asset) string {
	t.Helper()
	defer a.File.Close()
	b, err := io.ReadAll(a.File)
	require.NoError(t, err)
	return string(b)
}

func TestServe(t *testing.T) {
	site, _, _, slug := newSite(t)
	ctx := context.Background()

	cases := []struct {
		rel, body, ctype string
	}{
		{"", "<h1>home</h1>", "text/html; charset=utf-8"},
		{"index.html", "<h1>home</h1>", "text/html; charset=utf-8"},
		{"docs/", "<h1>docs</h1>", "text/html; charset=utf-8"},
		{"docs", "<h1>docs</h1>", "text/html; charset=utf-8"},
		{"css/site.css", "body{}", "text/css; charset=utf-8"},
		{"app.js", "1", "text/javascript; charset=utf-8"},
		{"notes.txt", "plain", "text/plain; charset=utf-8"},
	}
	for _, tc := range cases {
		t.Run(tc.rel, func(t *testing.T) {
			a, err := site.Serve(ctx, slug, tc.rel)
			require.NoError(t, err)
			assert.Equal(t, tc.ctype, a.ContentType)
			assert.Equal(t, int64(len(tc.body)), a.Size)
			assert.Equal(t, tc.body, readAsset(t, a))
		})
	}
}

func TestServeForbidden(t *testing.T) {
	site, ps, _, slug := newSite(t)
	ctx := context.Background()

	outside := filepath.Join(ps.Root(), "..", "secret.html")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	for _, rel := range []string{
		"../secret.html",
		"../../secret.html",
		"%2e%2e/secret.html",
		"..%5csecret.html",
		"/etc/passwd",
		"app.php",
		"missing.exe",
	} {
		t.Run(rel, func(t *testing.T) {
			_, err := site.Serve(ctx, slug, rel)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestServeForbidsDisallowedExistingFile(t *testing.T) {
	site, ps, _, slug := newSite(t)
	require.NoError(t, os.WriteFile(filepath.Join(ps.Root(), slug, "shell.sh"), []byte("#!/bin/sh"), 0o644))

	_, err := site.Serve(context.Background(), slug, "shell.sh")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestServeNotFound(t *testing.T) {
	site, _, store, slug := newSite(t)
	ctx := context.Background()

	_, err := site.Serve(ctx, slug, "missing.html")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = site.Serve(ctx, slug, "css/")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = site.Serve(ctx, uuid.NewString(), "index.html")
	assert.ErrorIs(t, err, ErrNotFound)

	before := store.lookups
	for _, slug := range []string{"", "abc", "../etc", slug + "x", "%"} {
		_, err = site.Serve(ctx, slug, "index.html")
		assert.ErrorIs(t, err, ErrNotFound, slug)
	}
	assert.Equal(t, before, store.lookups, "malformed slugs never reach the store")
}

func TestServeSymlinkOut(t *testing.T) {
	site, ps, _, slug := newSite(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "x.html"), []byte("x"), 0o644))
	if err := os.Symlink(filepath.Join(outside, "x.html"), filepath.Join(ps.Root(), slug, "leak.html")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := site.Serve(context.Background(), slug, "leak.html")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("a/b/logo.PNG"))
	assert.Equal(t, "image/svg+xml", ContentType("icon.svg"))
	assert.Equal(t, "application/octet-stream", ContentType("LICENSE"))
	assert.Equal(t, "application/octet-stream", ContentType("blob.unknownext"))
}

func TestDeletedProjectIsGone(t *testing.T) {
	site, ps, _, slug := newSite(t)
	ctx := context.Background()

	a, err := site.Serve(ctx, slug, "")
	require.NoError(t, err)
	a.File.Close()

	require.NoError(t, ps.Delete(ctx, slug, 1))

	_, err = site.Serve(ctx, slug, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = site.Serve(ctx, slug, "css/site.css")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ps.Get(ctx, slug, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
