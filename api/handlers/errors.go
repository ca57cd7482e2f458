package handlers

import (
	"errors"
	"net/http"

	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/premium"
)

// errAccessDenied is the generic error for guild and entitlement access
// checks
var errAccessDenied = errors.New("access denied")

// writeDomainError maps premium domain errors to HTTP responses. Expired
// codes are folded into the not-found response on purpose so callers cannot
// probe which codes exist.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case premium.IsValidation(err):
		config.ErrorStatus(err.Error(), http.StatusBadRequest, w, err)
	case errors.Is(err, premium.ErrCodeNotFound), errors.Is(err, premium.ErrCodeExpired):
		config.ErrorStatus("invalid or expired redeem code", http.StatusNotFound, w, premium.ErrCodeNotFound)
	case errors.Is(err, premium.ErrCodeAlreadyUsed):
		config.ErrorStatus("redeem code already used", http.StatusBadRequest, w, err)
	case errors.Is(err, premium.ErrNoSlots):
		config.ErrorStatus("no premium slots available", http.StatusBadRequest, w, err)
	case errors.Is(err, premium.ErrGuildAlreadyPremium):
		config.ErrorStatus("guild already has premium", http.StatusBadRequest, w, err)
	case errors.Is(err, premium.ErrUserNotFound):
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
	case errors.Is(err, premium.ErrGuildNotFound):
		config.ErrorStatus("guild not found", http.StatusNotFound, w, err)
	default:
		config.ErrorStatus("internal server error", http.StatusInternalServerError, w, err)
	}
}
