package middleware

// identity.go holds the context keys set by Session and the accessors
// handlers use to read them.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	ctxUserID      = "user_id"
	ctxUsername    = "username"
	ctxSessionHash = "session_hash"
)

// SetUser records the authenticated identity on the request.
func SetUser(c echo.Context, id uint64, username, sessionHash string) {
	c.Set(ctxUserID, id)
	c.Set(ctxUsername, username)
	c.Set(ctxSessionHash, sessionHash)
}

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	v, ok := c.Get(ctxUserID).(uint64)
	return v, ok
}

// Username returns the authenticated user's name, or "".
func Username(c echo.Context) string {
	v, _ := c.Get(ctxUsername).(string)
	return v
}

// SessionHash returns the stored hash of the current session token, or "".
func SessionHash(c echo.Context) string {
	v, _ := c.Get(ctxSessionHash).(string)
	return v
}

// currentUserID is the rate limiter's view of the caller.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
