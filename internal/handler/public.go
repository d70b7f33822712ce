package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/service"
)

// SiteServer is satisfied by *service.SiteService.
type SiteServer interface {
	Serve(ctx context.Context, slug, rel string) (*service.Asset, error)
}

// PublicHandler serves published sites to anonymous visitors.
type PublicHandler struct {
	Sites SiteServer
}

func NewPublicHandler(s SiteServer) *PublicHandler { return &PublicHandler{Sites: s} }

// Redirect adds the trailing slash so relative links inside the site
// resolve against the project root.
func (h *PublicHandler) Redirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/project/"+url.PathEscape(c.Param("id"))+"/")
}

// Serve streams one file of a published project. Range and conditional
// requests are handled by http.ServeContent.
func (h *PublicHandler) Serve(c echo.Context) error {
	rel, err := wildcard(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": service.ErrForbidden.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	asset, err := h.Sites.Serve(ctx, c.Param("id"), rel)
	cancel()
	if err != nil {
		return fail(c, err)
	}
	defer asset.File.Close()

	hdr := c.Response().Header()
	hdr.Set(echo.HeaderContentType, asset.ContentType)
	hdr.Set(echo.HeaderXContentTypeOptions, "nosniff")
	http.ServeContent(c.Response(), c.Request(), asset.Name, asset.ModTime, asset.File)
	return nil
}
