// Package repository holds the MySQL backed stores. Sentinel errors below
// let the service layer tell "no such row" and business-rule rejections
// apart from backend failures.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// user. Both cases look the same to callers.
var ErrNotFound = errors.New("not found")

// ErrQuotaExceeded is returned by ProjectRepo.Create when the owner already
// has the maximum number of live projects.
var ErrQuotaExceeded = errors.New("project quota exceeded")

// ErrUserExists signals a duplicate username or email at registration.
var ErrUserExists = errors.New("username or email already exists")

// isDuplicate reports whether err is a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
