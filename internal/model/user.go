package model

import "time"

// User represents an account record as stored in the `users` table. The
// json tags are omitted because handlers define their own response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name (3-20 letters, digits or underscores).
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}

// Session models an entry in the `sessions` table. A session is created at
// login and revoked at logout. Only a SHA-256 hash of the session token id
// (the JWT "jti" claim) is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the session.
//  TokenHash – SHA-256 hex digest of the token id.
//  ExpiresAt – expiration timestamp of the session.
//  RevokedAt – when the session was revoked (nil if still active).
//  CreatedAt – timestamp of creation.
type Session struct {
	ID        uint64     // sessions.id
	UserID    uint64     // sessions.user_id
	TokenHash string     // sessions.token_hash
	ExpiresAt time.Time  // sessions.expires_at
	RevokedAt *time.Time // sessions.revoked_at (nullable)
	CreatedAt time.Time  // sessions.created_at
}
