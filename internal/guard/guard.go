// Package guard resolves user supplied paths inside a project tree.
//
// Every public or editor request names a file relative to a project folder.
// Resolve turns that name into an absolute path that is guaranteed to be
// inside the folder and to carry an allowed extension.
package guard

import (
	"errors"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/diogopython/Nuvemhost/internal/model"
)

var (
	ErrPathEscape     = errors.New("path escapes project root")
	ErrDisallowedType = errors.New("file type not allowed")
)

// maxDecodeRounds bounds how many layers of percent-encoding are peeled off
// while looking for hidden traversal. A name still changing after that many
// rounds is rejected.
const maxDecodeRounds = 4

// Guard checks paths against a project root and an extension allow-list.
type Guard struct {
	exts map[string]bool
}

// New returns a Guard accepting the given extensions (case-insensitive,
// leading dot optional). An empty string entry admits extensionless files.
func New(exts []string) *Guard {
	return &Guard{exts: model.ExtSet(exts)}
}

// Allows reports whether the extension of name is on the allow-list.
func (g *Guard) Allows(name string) bool {
	return g.exts[model.Ext(name)]
}

// Resolve returns the absolute path of requested inside root. It fails with
// ErrPathEscape when the path could leave root and with ErrDisallowedType
// when the extension is not allowed. The target does not need to exist.
func (g *Guard) Resolve(root, requested string) (string, error) {
	abs, err := Within(root, requested)
	if err != nil {
		return "", err
	}
	if !g.Allows(abs) {
		return "", ErrDisallowedType
	}
	return abs, nil
}

// Within performs the containment half of Resolve without the extension
// check. An empty request resolves to root itself.
func Within(root, requested string) (string, error) {
	p := strings.ReplaceAll(requested, "\\", "/")
	if err := checkEncoded(p); err != nil {
		return "", err
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	target := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(p)))
	if !contains(rootAbs, target) {
		return "", ErrPathEscape
	}

	// Symlinks inside the tree could point anywhere. Compare real paths of
	// the deepest existing ancestor against the real root.
	realRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", err
	}
	existing := target
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		if existing == rootAbs {
			return target, nil
		}
		existing = filepath.Dir(existing)
	}
	real, err := filepath.EvalSymlinks(existing)
	if err != nil {
		// dangling link
		return "", ErrPathEscape
	}
	if !contains(realRoot, real) {
		return "", ErrPathEscape
	}
	return target, nil
}

// checkEncoded rejects NUL bytes, absolute paths and ".." segments in p and
// in every percent-decoded form of it.
func checkEncoded(p string) error {
	stage := p
	for i := 0; ; i++ {
		if unsafeStage(stage) {
			return ErrPathEscape
		}
		dec, err := url.PathUnescape(stage)
		if err != nil {
			// a literal '%' that is not an escape; nothing more to peel
			return nil
		}
		dec = strings.ReplaceAll(dec, "\\", "/")
		if dec == stage {
			return nil
		}
		if i == maxDecodeRounds {
			return ErrPathEscape
		}
		stage = dec
	}
}

func unsafeStage(p string) bool {
	if strings.ContainsRune(p, 0) {
		return true
	}
	if strings.HasPrefix(p, "/") || hasDriveLetter(p) {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// contains reports whether target equals root or lies below it.
func contains(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SlashRel converts an absolute path under root back to the slash separated
// form used in URLs and listings.
func SlashRel(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	return path.Clean(filepath.ToSlash(rel)), nil
}
