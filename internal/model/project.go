package model

import (
	"path"
	"strings"
	"time"
)

// MaxProjectsPerUser is the hard quota of live projects per owner.
const MaxProjectsPerUser = 3

// Project mirrors a row of the `projects` table. FolderPath is a single path
// segment generated by the server (equal to ID) and doubles as the public
// slug under /project/<slug>/.
type Project struct {
	ID         string    // projects.id (UUID)
	UserID     uint64    // projects.user_id
	Name       string    // projects.project_name
	FolderPath string    // projects.folder_path, relative to the upload root
	UploadedAt time.Time // projects.upload_date
}

// FileEntry describes one file of an extracted project tree. It is derived
// by walking the project folder and never persisted.
type FileEntry struct {
	Path     string `json:"path"`     // slash separated, relative to the project root
	Editable bool   `json:"editable"` // extension is in the editable allow-list
}

// Ext returns the lower-cased extension of name without the leading dot, or
// "" when the name has none. Both the archive sanitizer and the tree guard
// compare allow-lists against this form.
func Ext(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// ExtSet builds a lookup set from a list of extensions. Entries are
// lower-cased and a leading dot is dropped so ".HTML" and "html" are equal.
func ExtSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		set[e] = true
	}
	return set
}
