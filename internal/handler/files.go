package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/logging"
)

// FileEditor is satisfied by *service.EditorService.
type FileEditor interface {
	Read(ctx context.Context, id string, owner uint64, rel string) (string, error)
	Write(ctx context.Context, id string, owner uint64, rel, content string) error
}

// FileHandler exposes the editor's read and save endpoints.
type FileHandler struct {
	Editor FileEditor
	Log    logging.Logger
}

func NewFileHandler(e FileEditor, log logging.Logger) *FileHandler {
	return &FileHandler{Editor: e, Log: log}
}

type saveReq struct {
	Content *string `json:"content"`
}

// filePath returns the wildcard part of the route, decoded once.
func filePath(c echo.Context) (string, bool) {
	rel, err := wildcard(c)
	if err != nil || rel == "" {
		return "", false
	}
	return rel, true
}

// GetContent returns {content} for an editable text file.
func (h *FileHandler) GetContent(c echo.Context) error {
	uid, _ := currentUser(c)
	rel, ok := filePath(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid file path"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	content, err := h.Editor.Read(ctx, c.Param("id"), uid, rel)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"content": content})
}

// SaveContent replaces an editable text file with the JSON body's content.
func (h *FileHandler) SaveContent(c echo.Context) error {
	uid, _ := currentUser(c)
	rel, ok := filePath(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid file path"})
	}
	var req saveReq
	if err := c.Bind(&req); err != nil || req.Content == nil {
		return badRequest(c, "content is required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Editor.Write(ctx, c.Param("id"), uid, rel, *req.Content); err != nil {
		code, _ := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.Log.Error(ctx, "save file failed", "project_id", c.Param("id"), "path", rel, "err", err)
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
