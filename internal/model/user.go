// Package model defines the data records used throughout the forum.
//
// These are plain structs with no behaviour attached: the repository layer
// fills them from rows and the service layer passes them around. Join-table
// rows get their own record types so the many-to-many associations are
// explicit data instead of hidden collections.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is the bcrypt digest; the `json:"-"` tag keeps it out of every
// JSON response, including /api/me.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
