// Package queue defines message payloads exchanged over the message broker
// and the worker that consumes them.
package queue

// UserRegisteredQueue is the durable queue carrying registration events.
const UserRegisteredQueue = "user.registered"

// UserRegisteredEvent is published after a new account is committed. It
// carries what the welcome mail needs so the worker does not query the
// database.
type UserRegisteredEvent struct {
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	RegisteredAt string `json:"registered_at"`
}
