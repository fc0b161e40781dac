package dto

import "time"

// PurchaseRequest starts the deferred activation for a user.
type PurchaseRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

// PurchaseResponse tells the caller when the grant will be applied.
type PurchaseResponse struct {
	UserID      string    `json:"user_id"`
	ActivatesAt time.Time `json:"activates_at"`
}

// GrantResponse describes an active grant.
type GrantResponse struct {
	UserID    string    `json:"user_id"`
	GrantedAt time.Time `json:"granted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
