package domain

import "errors"

var (
	ErrUnknownTicket           = errors.New("unknown ticket")
	ErrTicketExists            = errors.New("ticket already exists")
	ErrGenerationFailed        = errors.New("generation failed")
	ErrEntitlementActionFailed = errors.New("entitlement action failed")
	ErrChannelActionFailed     = errors.New("channel action failed")
	ErrForbidden               = errors.New("forbidden")
	ErrUnknownGrant            = errors.New("unknown grant")
)
