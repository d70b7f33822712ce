package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/model"
	"github.com/diogopython/Nuvemhost/internal/service"
)

// ProjectManager is satisfied by *service.ProjectService.
type ProjectManager interface {
	Upload(ctx context.Context, owner uint64, name string, r io.ReaderAt, size int64) (*model.Project, error)
	Get(ctx context.Context, id string, owner uint64) (*model.Project, error)
	List(ctx context.Context, owner uint64) ([]*model.Project, error)
	Delete(ctx context.Context, id string, owner uint64) error
}

// FileTree is the part of *service.EditorService the edit page needs.
type FileTree interface {
	Tree(ctx context.Context, id string, owner uint64) ([]model.FileEntry, error)
	List(ctx context.Context, id string, owner uint64) ([]string, error)
}

// ProjectHandler serves the dashboard and the project lifecycle endpoints.
type ProjectHandler struct {
	Projects   ProjectManager
	Files      FileTree
	UploadExts map[string]bool
	MaxBytes   int64
	Log        logging.Logger
}

func NewProjectHandler(p ProjectManager, f FileTree, uploadExts []string, maxBytes int64, log logging.Logger) *ProjectHandler {
	return &ProjectHandler{Projects: p, Files: f, UploadExts: model.ExtSet(uploadExts), MaxBytes: maxBytes, Log: log}
}

type projectResp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toProjectResp(p *model.Project) projectResp {
	return projectResp{ID: p.ID, Name: p.Name, URL: "/project/" + p.FolderPath + "/", UploadedAt: p.UploadedAt}
}

// Dashboard lists the caller's projects, newest first.
func (h *ProjectHandler) Dashboard(c echo.Context) error {
	uid, _ := currentUser(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ps, err := h.Projects.List(ctx, uid)
	if err != nil {
		h.Log.Error(ctx, "dashboard: list projects failed", "user_id", uid, "err", err)
		return fail(c, err)
	}
	out := make([]projectResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProjectResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"username":      username(c),
		"projects":      out,
		"project_count": len(out),
		"max_projects":  model.MaxProjectsPerUser,
		"flashes":       flashes(c),
	})
}

// UploadPage describes the upload form.
func (h *ProjectHandler) UploadPage(c echo.Context) error {
	exts := make([]string, 0, len(h.UploadExts))
	for e := range h.UploadExts {
		exts = append(exts, e)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"page":       "upload",
		"fields":     []string{"project_name", "project_file"},
		"extensions": exts,
		"max_bytes":  h.MaxBytes,
		"flashes":    flashes(c),
	})
}

// Upload accepts a multipart form with project_name and project_file and
// publishes the archive as a new project.
func (h *ProjectHandler) Upload(c echo.Context) error {
	uid, _ := currentUser(c)
	name := c.FormValue("project_name")
	if name == "" {
		return badRequest(c, "Project name is required.")
	}
	fh, err := c.FormFile("project_file")
	if err != nil || fh.Filename == "" {
		return badRequest(c, "No file selected.")
	}
	if !h.UploadExts[model.Ext(fh.Filename)] {
		return badRequest(c, "Only ZIP files are allowed.")
	}
	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "No file selected.")
	}
	defer src.Close()

	// extraction is local I/O; only the store calls inside carry deadlines
	ctx := c.Request().Context()
	p, err := h.Projects.Upload(ctx, uid, name, src, fh.Size)
	if err != nil {
		code, _ := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.Log.Error(ctx, "upload failed", "user_id", uid, "err", err)
		}
		return fail(c, err)
	}
	flash(c, "success", "Project uploaded successfully!")
	if c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return c.JSON(http.StatusCreated, toProjectResp(p))
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// EditProject returns the project's file tree and the files the editor may
// open.
func (h *ProjectHandler) EditProject(c echo.Context) error {
	uid, _ := currentUser(c)
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Projects.Get(ctx, id, uid)
	if errors.Is(err, service.ErrNotFound) {
		flash(c, "danger", "Project not found.")
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	if err != nil {
		return fail(c, err)
	}
	tree, err := h.Files.Tree(ctx, id, uid)
	if err != nil {
		return fail(c, err)
	}
	files, err := h.Files.List(ctx, id, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"project_id":   p.ID,
		"project_name": p.Name,
		"url":          "/project/" + p.FolderPath + "/",
		"files":        files,
		"tree":         tree,
		"flashes":      flashes(c),
	})
}

// DeleteProject removes a project and its files, then returns to the
// dashboard with a flash message.
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	uid, _ := currentUser(c)
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Projects.Delete(ctx, id, uid); {
	case err == nil:
		flash(c, "success", "Project deleted successfully.")
	case errors.Is(err, service.ErrNotFound):
		flash(c, "danger", "Project not found.")
	default:
		h.Log.Error(ctx, "delete project failed", "project_id", id, "user_id", uid, "err", err)
		flash(c, "danger", "Error deleting project.")
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}
