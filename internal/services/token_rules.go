package services

import (
	"net/http"
	"strings"
	"time"

	"github.com/rosterhq/roster/internal/models"
	apperrors "github.com/rosterhq/roster/pkg/errors"
)

// Rejection reasons surfaced to redeeming clients. Codes are stable and
// machine-readable; callers branch on them to render precise messages.
var (
	// ErrTokenNotFound indicates no join token exists for the supplied id.
	ErrTokenNotFound = apperrors.New("TOKEN_NOT_FOUND", "Invalid or unknown join token", http.StatusNotFound)
	// ErrTokenDisabled indicates the token was revoked by an administrator.
	ErrTokenDisabled = apperrors.New("TOKEN_DISABLED", "This join token has been disabled", http.StatusForbidden)
	// ErrTokenExpired indicates the token is past its expiry timestamp.
	ErrTokenExpired = apperrors.New("TOKEN_EXPIRED", "This join token has expired", http.StatusGone)
	// ErrTokenExhausted indicates every allowed redemption has been consumed.
	ErrTokenExhausted = apperrors.New("TOKEN_EXHAUSTED", "This join token has reached its maximum uses", http.StatusConflict)
	// ErrTokenMalformed indicates the stored token record is missing required fields.
	ErrTokenMalformed = apperrors.New("TOKEN_MALFORMED", "This join token is misconfigured", http.StatusInternalServerError)

	// ErrEmailInUse indicates the identity provider already holds a
	// conflicting account for the supplied email.
	ErrEmailInUse = apperrors.New("EMAIL_ALREADY_EXISTS", "An account with this email already exists", http.StatusConflict)
	// ErrProviderUnavailable indicates the identity provider could not be reached.
	ErrProviderUnavailable = apperrors.New("IDENTITY_PROVIDER_UNAVAILABLE", "Account service is temporarily unavailable", http.StatusServiceUnavailable)
	// ErrCompensationFailed marks the one unrecoverable-by-code state: a
	// membership transaction failed and the rollback of the freshly created
	// identity failed too. The client message stays generic; the orphaned
	// identity is reported through logs and metrics only.
	ErrCompensationFailed = apperrors.New("JOIN_COMPENSATION_FAILED", "Something went wrong, please try again later", http.StatusInternalServerError)
)

// validateJoinToken applies the redemption rules to a token snapshot. It is a
// pure function so the cheap pre-check outside the transaction and the
// authoritative check inside it share byte-for-byte identical rules.
//
// Check order is fixed: existence, disabled, expiration, exhaustion, then
// malformed. The first failing condition wins; reasons are never aggregated.
func validateJoinToken(tok *models.JoinToken, now time.Time) error {
	if tok == nil {
		return ErrTokenNotFound
	}
	if tok.Disabled {
		return ErrTokenDisabled
	}
	if tok.Expired(now) {
		return ErrTokenExpired
	}
	if tok.Exhausted() {
		return ErrTokenExhausted
	}
	if strings.TrimSpace(tok.OrgID) == "" || strings.TrimSpace(tok.Role) == "" {
		return ErrTokenMalformed
	}
	return nil
}
