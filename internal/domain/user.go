package domain

import "time"

// User is an account that owns todos. Only the bcrypt hash of the password
// is ever stored.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
