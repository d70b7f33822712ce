package handler

import (
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/middleware"
)

func currentUser(c echo.Context) (uint64, bool) { return middleware.UserID(c) }

func username(c echo.Context) string { return middleware.Username(c) }

func flashes(c echo.Context) []middleware.Flash { return middleware.GetFlashes(c) }

func flash(c echo.Context, category, msg string) { middleware.SetFlash(c, category, msg) }

// wildcard returns the "*" route param decoded exactly once. Echo routes on
// URL.Path, which is already decoded, unless the request kept a RawPath;
// only then are param values still escaped.
func wildcard(c echo.Context) (string, error) {
	rel := c.Param("*")
	if c.Request().URL.RawPath == "" {
		return rel, nil
	}
	return url.PathUnescape(rel)
}
