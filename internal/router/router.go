// Package router registers NuvemHost's HTTP routes and global middleware.
package router

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/diogopython/Nuvemhost/internal/handler"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/middleware"
)

// UseDefaults installs the middleware every request passes through: panic
// recovery, request logging, the body size cap, security headers, flash
// messages and session identification. It also replaces echo's error
// handler so every error body has the {"error": ...} shape.
func UseDefaults(e *echo.Echo, log logging.Logger, maxBody int64, secret string, sessions middleware.SessionValidator) {
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency_ms", v.Latency.Milliseconds()}
			if v.Error != nil {
				args = append(args, "err", v.Error)
				log.Warn(c.Request().Context(), "request failed", args...)
				return nil
			}
			log.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}))
	if maxBody > 0 {
		e.Use(echomw.BodyLimit(strconv.FormatInt(maxBody, 10) + "B"))
	}
	e.Use(echomw.Secure())
	e.Use(middleware.Flashes(skipFlashes))
	e.Use(middleware.Session(secret, sessions))
}

// skipFlashes keeps site assets and health checks from consuming messages queued
// for the next page.
func skipFlashes(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/healthz" || strings.HasPrefix(p, "/project/")
}

func errorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := http.StatusInternalServerError, "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		} else {
			log.Error(c.Request().Context(), "unhandled error", "path", c.Request().URL.Path, "err", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, echo.Map{"error": msg})
		}
		if err != nil {
			log.Warn(c.Request().Context(), "write error response", "err", err)
		}
	}
}

// RegisterRoutes registers the landing document and the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Index)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers account routes. limit guards the form posts.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	e.GET("/register", a.RegisterPage)
	e.POST("/register", a.Register, limit)
	e.GET("/login", a.LoginPage)
	e.POST("/login", a.Login, limit)
	e.GET("/logout", a.Logout)
}
