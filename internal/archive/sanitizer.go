// Package archive extracts uploaded site archives into a project folder.
//
// Archives are untrusted. Entries that could land outside the destination,
// special files and files whose extension is not allowed are skipped rather
// than failing the whole upload; size limits and corrupt data fail it.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/diogopython/Nuvemhost/internal/model"
)

var (
	ErrBadArchive   = errors.New("invalid or corrupt archive")
	ErrNoEntryPoint = errors.New("archive contains no html entry point")
)

// Policy holds extraction limits and the project-file allow-list.
type Policy struct {
	Allowed       map[string]bool // extensions without dot, lower-cased
	MaxFiles      int             // maximum number of entries in the archive
	MaxTotalBytes int64           // maximum total uncompressed bytes written
	MaxFileBytes  int64           // maximum size per file
}

// NewPolicy builds a Policy from a plain extension list.
func NewPolicy(exts []string, maxFiles int, maxTotal, maxFile int64) Policy {
	return Policy{
		Allowed:       model.ExtSet(exts),
		MaxFiles:      maxFiles,
		MaxTotalBytes: maxTotal,
		MaxFileBytes:  maxFile,
	}
}

// Result reports what Ingest did. Paths are slash separated and relative to
// the destination.
type Result struct {
	Files   []string
	Skipped []string
}

// Ingest extracts the ZIP archive read from r into dest, which must already
// exist. On error dest may hold a partial tree; the caller removes it.
func Ingest(r io.ReaderAt, size int64, dest string, p Policy) (Result, error) {
	var res Result

	zr, err := zip.NewReader(r, size)
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		// unsafe names are filtered entry by entry below
		err = nil
	}
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrBadArchive, err)
	}
	if p.MaxFiles > 0 && len(zr.File) > p.MaxFiles {
		return res, fmt.Errorf("%w: too many entries (%d)", ErrBadArchive, len(zr.File))
	}

	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return res, err
	}

	var total int64
	for _, f := range zr.File {
		rel, ok := entryPath(f.Name)
		if !ok {
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}
		target := filepath.Join(destAbs, filepath.FromSlash(rel))
		if !below(destAbs, target) {
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}

		mode := f.Mode()
		if mode.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return res, fmt.Errorf("%w: %s: %v", ErrBadArchive, f.Name, err)
			}
			continue
		}
		if !mode.IsRegular() {
			// symlinks, devices, pipes, sockets
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}
		if !p.Allowed[model.Ext(rel)] {
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}
		if p.MaxFileBytes > 0 && f.UncompressedSize64 > uint64(p.MaxFileBytes) {
			return res, fmt.Errorf("%w: entry too big: %s", ErrBadArchive, f.Name)
		}
		if info, err := os.Lstat(target); err == nil && info.IsDir() {
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}

		limit := int64(-1)
		if p.MaxFileBytes > 0 {
			limit = p.MaxFileBytes
		}
		if p.MaxTotalBytes > 0 {
			remaining := p.MaxTotalBytes - total
			if limit < 0 || remaining < limit {
				limit = remaining
			}
		}
		n, err := extractFile(f, target, limit)
		total += n
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, rel)
	}

	sort.Strings(res.Files)
	if !hasEntryPoint(res.Files) {
		return res, ErrNoEntryPoint
	}
	return res, nil
}

// entryPath normalizes a recorded entry name. It refuses absolute names,
// drive letters, NUL bytes and any ".." segment.
func entryPath(name string) (string, bool) {
	n := strings.ReplaceAll(name, "\\", "/")
	if n == "" || strings.ContainsRune(n, 0) || strings.HasPrefix(n, "/") {
		return "", false
	}
	if len(n) >= 2 && n[1] == ':' {
		return "", false
	}
	for _, seg := range strings.Split(n, "/") {
		if seg == ".." {
			return "", false
		}
	}
	rel := path.Clean(n)
	if rel == "." {
		return "", false
	}
	return rel, true
}

// below reports whether target is a strict descendant of root.
func below(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

var errTooBig = errors.New("size limit exceeded")

func extractFile(f *zip.File, target string, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadArchive, f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, copyErr := copyCapped(out, rc, limit)
	if cerr := out.Close(); copyErr == nil && cerr != nil {
		copyErr = cerr
	}
	if copyErr != nil {
		var pathErr *fs.PathError
		if errors.As(copyErr, &pathErr) {
			// write side failed; not the archive's fault
			return n, copyErr
		}
		return n, fmt.Errorf("%w: %s: %v", ErrBadArchive, f.Name, copyErr)
	}
	return n, nil
}

// copyCapped copies at most max bytes; a negative max means no limit.
func copyCapped(dst io.Writer, src io.Reader, max int64) (int64, error) {
	if max < 0 {
		return io.Copy(dst, src)
	}
	lr := &io.LimitedReader{R: src, N: max + 1}
	n, err := io.Copy(dst, lr)
	if err != nil {
		return n, err
	}
	if n > max {
		return n, errTooBig
	}
	return n, nil
}

func hasEntryPoint(files []string) bool {
	for _, f := range files {
		if model.Ext(f) == "html" {
			return true
		}
	}
	return false
}
