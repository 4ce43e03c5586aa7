package types

import "time"

// User represents an account in the system.
// It contains identity, credentials, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is unique across accounts
	// and doubles as the login identifier.
	Email string `json:"email" db:"email"`

	// Age is the user's self-reported age. Never negative; zero when
	// the user did not provide one.
	Age int `json:"age" db:"age"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Avatar holds the user's profile image, normalized to a 250x250
	// PNG at upload time. Nil when no avatar has been uploaded.
	// Served raw via the avatar endpoint, never embedded in JSON.
	Avatar []byte `json:"-" db:"avatar"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
