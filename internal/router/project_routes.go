package router

import (
	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/handler"
	"github.com/diogopython/Nuvemhost/internal/middleware"
)

// RegisterProjects registers the authenticated dashboard, upload, editor
// and delete endpoints. Uploads and saves are rate limited.
func RegisterProjects(e *echo.Echo, p *handler.ProjectHandler, f *handler.FileHandler, limit echo.MiddlewareFunc) {
	auth := middleware.RequireAuth()

	e.GET("/dashboard", p.Dashboard, auth)
	e.GET("/upload", p.UploadPage, auth)
	e.POST("/upload", p.Upload, auth, limit)
	e.GET("/edit_project/:id", p.EditProject, auth)
	e.GET("/delete_project/:id", p.DeleteProject, auth)
	e.POST("/delete_project/:id", p.DeleteProject, auth)

	e.GET("/get_file_content/:id/*", f.GetContent, auth)
	e.POST("/save_file_content/:id/*", f.SaveContent, auth, limit)
}

// RegisterPublic registers the anonymous site serving routes.
func RegisterPublic(e *echo.Echo, h *handler.PublicHandler) {
	e.GET("/project/:id", h.Redirect)
	e.GET("/project/:id/", h.Serve)
	e.GET("/project/:id/*", h.Serve)
}
