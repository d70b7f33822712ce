package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const (
	flashCookie       = "flash"
	ctxFlashes        = "flashes"
	ctxPendingFlashes = "pending_flashes"
)

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SetFlash queues a message for the next request. Messages already queued
// in this response are kept.
func SetFlash(c echo.Context, category, message string) {
	pending, _ := c.Get(ctxPendingFlashes).([]Flash)
	pending = append(pending, Flash{Category: category, Message: message})
	c.Set(ctxPendingFlashes, pending)

	b, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flashes loads the messages queued by the previous response into the
// context and clears the cookie, so each message is shown once. Requests
// for which skip returns true leave the cookie alone.
func Flashes(skip echomw.Skipper) echo.MiddlewareFunc {
	if skip == nil {
		skip = echomw.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip(c) {
				return next(c)
			}
			ck, err := c.Cookie(flashCookie)
			if err != nil || ck.Value == "" {
				return next(c)
			}
			var fs []Flash
			if b, err := base64.RawURLEncoding.DecodeString(ck.Value); err == nil {
				_ = json.Unmarshal(b, &fs)
			}
			c.Set(ctxFlashes, fs)
			c.SetCookie(&http.Cookie{
				Name:     flashCookie,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				Expires:  time.Unix(0, 0),
				HttpOnly: true,
			})
			return next(c)
		}
	}
}

// GetFlashes returns the messages loaded for this request.
func GetFlashes(c echo.Context) []Flash {
	fs, _ := c.Get(ctxFlashes).([]Flash)
	if fs == nil {
		return []Flash{}
	}
	return fs
}
