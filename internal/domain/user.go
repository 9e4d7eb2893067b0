package domain

import "time"

// User is an account able to evaluate movies. PasswordHash never leaves the
// service layer.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
