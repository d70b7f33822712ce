package service

import (
	"errors"
	"fmt"

	"github.com/diogopython/Nuvemhost/internal/repository"
)

// Service-level errors. Handlers map these to HTTP status codes; their
// messages are safe to show to clients.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrQuotaExceeded    = errors.New("project limit reached")
	ErrNotText          = errors.New("file is not valid UTF-8 text")
	ErrStoreUnavailable = errors.New("storage temporarily unavailable")
	ErrInvalidName      = errors.New("invalid project name")
	ErrCorrupt          = errors.New("project state is inconsistent")
	ErrContentTooLarge  = errors.New("content too large")
)

// storeErr translates a repository error into the service taxonomy.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrQuotaExceeded):
		return ErrQuotaExceeded
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
