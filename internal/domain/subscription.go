package domain

import "time"

// Grant is a time-boxed premium entitlement for a user.
type Grant struct {
	UserID    string
	GrantedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the grant is due for revocation at now.
func (g Grant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}
