package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers. It does not touch
// the database.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Index is the landing document. It tells the client whether a session is
// present so a front end can pick between login and dashboard links.
func Index(c echo.Context) error {
	doc := echo.Map{
		"app":     "NuvemHost",
		"flashes": flashes(c),
	}
	if uid, ok := currentUser(c); ok {
		doc["user"] = echo.Map{"id": uid, "username": username(c)}
	}
	return c.JSON(http.StatusOK, doc)
}
