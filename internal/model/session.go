package model

import "time"

// Session is a server-side login record. The cookie only carries a signed
// reference to it, so logging out (setting RevokedAt) takes effect
// immediately even though the cookie token itself has not expired.
type Session struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

