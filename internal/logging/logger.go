// Package logging defines the structured logger used across NuvemHost.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// key/value pairs:
//
//	log.Info(ctx, "project uploaded", "project_id", id, "user_id", uid)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)

	// Warn is for unusual but recoverable conditions.
	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
