package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/archive"
	"github.com/diogopython/Nuvemhost/internal/guard"
	"github.com/diogopython/Nuvemhost/internal/service"
)

// statusFor maps a service error to an HTTP status and the message shown
// to the client. Unknown errors never leak their text.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, service.ErrNotFound.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, service.ErrForbidden.Error()
	case errors.Is(err, guard.ErrPathEscape):
		return http.StatusForbidden, guard.ErrPathEscape.Error()
	case errors.Is(err, guard.ErrDisallowedType):
		return http.StatusForbidden, guard.ErrDisallowedType.Error()
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusConflict, service.ErrQuotaExceeded.Error()
	case errors.Is(err, service.ErrContentTooLarge):
		return http.StatusRequestEntityTooLarge, service.ErrContentTooLarge.Error()
	case errors.Is(err, service.ErrNotText):
		return http.StatusBadRequest, service.ErrNotText.Error()
	case errors.Is(err, service.ErrInvalidName):
		return http.StatusBadRequest, service.ErrInvalidName.Error()
	case errors.Is(err, archive.ErrBadArchive):
		return http.StatusBadRequest, archive.ErrBadArchive.Error()
	case errors.Is(err, archive.ErrNoEntryPoint):
		return http.StatusBadRequest, archive.ErrNoEntryPoint.Error()
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, service.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fail writes err as a JSON {error} document.
func fail(c echo.Context, err error) error {
	code, msg := statusFor(err)
	return c.JSON(code, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
