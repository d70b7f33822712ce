package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/utils"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

// SessionValidator checks that a session is live and returns its user.
// *repository.SessionRepo implements it.
type SessionValidator interface {
	Validate(ctx context.Context, tokenHash string) (uint64, error)
}

// Session returns a middleware that reads the session token from the
// session cookie or a Bearer Authorization header. When the token verifies
// and its session is live the identity is stored in the context; anything
// else leaves the request anonymous. Use RequireAuth to reject anonymous
// requests.
func Session(secret string, sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				return next(c)
			}
			claims, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			hash := utils.HashTokenID(claims.ID)
			uid, err := sessions.Validate(ctx, hash)
			if err != nil {
				return next(c)
			}
			if sub, _ := claims.UserID(); sub != uid {
				return next(c)
			}
			SetUser(c, uid, claims.Username, hash)
			return next(c)
		}
	}
}

func tokenFrom(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// RequireAuth rejects anonymous requests. API style requests get a JSON
// 401; browser navigation is redirected to the login page with a flash
// message.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); ok {
				return next(c)
			}
			if wantsJSON(c.Request()) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login required"})
			}
			SetFlash(c, "warning", "Please log in to access this page.")
			return c.Redirect(http.StatusSeeOther, "/login")
		}
	}
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return true
	}
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}
