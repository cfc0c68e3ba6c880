// Package db provides the local SQLite store for clang-tui. The only durable
// client-side state is the credential pair.
package db

import "time"

// CredentialsKey is the single key the credential pair is stored under.
const CredentialsKey = "auth_tokens"

// Credentials is the access/refresh token pair issued by the backend.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Entry is a raw row of the key/value table.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
