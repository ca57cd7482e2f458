package premium

import (
	"errors"
	"fmt"
)

// Domain errors surfaced by the premium workflows. Handlers map these to
// HTTP statuses, everything else is treated as an internal failure.
var (
	// ErrCodeNotFound is returned for unknown redeem codes. Expired codes
	// surface the same way to callers, see ErrCodeExpired.
	ErrCodeNotFound = errors.New("redeem code not found")

	// ErrCodeExpired marks a code past its expiresAt. The HTTP layer folds
	// this into the same response as ErrCodeNotFound so callers cannot
	// probe which codes exist.
	ErrCodeExpired = errors.New("redeem code expired")

	// ErrCodeAlreadyUsed is returned when a code has already been consumed,
	// including the losing side of a concurrent redeem.
	ErrCodeAlreadyUsed = errors.New("redeem code already used")

	// ErrNoSlots is returned when a user has no premium slots left to spend.
	ErrNoSlots = errors.New("no premium slots available")

	// ErrGuildAlreadyPremium is returned when the guild already has an
	// effective premium activation.
	ErrGuildAlreadyPremium = errors.New("guild already has premium")

	// ErrUserNotFound is returned when the user document does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrGuildNotFound is returned when the guild document does not exist.
	ErrGuildNotFound = errors.New("guild not found")
)

// ValidationError reports a rejected request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
