package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/support-bot/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// sentinelErrors maps domain sentinels to their user facing shape. Messages
// reach end users verbatim.
var sentinelErrors = []struct {
	target  error
	code    string
	message string
	status  int
}{
	{domain.ErrUnknownTicket, "UNKNOWN_TICKET", "ticket not found", http.StatusNotFound},
	{domain.ErrUnknownGrant, "NOT_FOUND", "subscription not found", http.StatusNotFound},
	{domain.ErrTicketExists, "TICKET_EXISTS", "ticket already exists", http.StatusConflict},
	{domain.ErrGenerationFailed, "GENERATION_FAILED", "sorry, I encountered an error, please try again or ask staff for help", http.StatusBadGateway},
	{domain.ErrEntitlementActionFailed, "ENTITLEMENT_ACTION_FAILED", "subscription update failed", http.StatusBadGateway},
	{domain.ErrChannelActionFailed, "CHANNEL_ACTION_FAILED", "channel update failed", http.StatusBadGateway},
	{domain.ErrForbidden, "FORBIDDEN", "this action is for staff only", http.StatusForbidden},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, s := range sentinelErrors {
		if errors.Is(err, s.target) {
			return &DomainError{Code: s.code, Message: s.message, HTTPStatus: s.status, Err: err}
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
