package utils

import (
	"regexp"
	"strings"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// MinPasswordLen is the shortest password accepted at registration.
const MinPasswordLen = 6

// ValidUsername reports whether s is 3-20 letters, digits or underscores.
func ValidUsername(s string) bool { return usernamePattern.MatchString(s) }

// ValidEmail performs a syntactic check of an email address.
func ValidEmail(s string) bool { return emailPattern.MatchString(strings.TrimSpace(s)) }
