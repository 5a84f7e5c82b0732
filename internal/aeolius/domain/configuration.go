package domain

import "time"

// Configuration is one account's deletion settings as stored by the manager
// and swept by the worker. There is at most one per DID.
type Configuration struct {
	DID     string
	Service string

	// RefreshJWT is the latest refresh token for the account, sealed with
	// the server's master key. Only the store and the worker ever see it.
	RefreshJWT string

	Enabled bool

	// PostTTL is the age in months after which posts are deleted.
	PostTTL int

	// Cursor is the rkey of the last post deleted from the account.
	// Listing resumes after it.
	Cursor string

	CreatedAt time.Time
	UpdatedAt time.Time
}
