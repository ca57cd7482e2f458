package premium

import (
	"time"

	"github.com/aurabot/dashboard-api/models"
)

// IsEffectivelyPremium reports whether a guild has an active premium
// activation at the given instant. Premium always rides on a bounded window:
// an active flag without an expiry reads as not premium. Expiry is lazy, the
// stored active flag may still be true after the window lapsed, so readers
// must always go through this predicate instead of trusting the flag.
func IsEffectivelyPremium(guild models.Guild, now time.Time) bool {
	if !guild.Premium.Active {
		return false
	}
	if guild.Premium.ExpiresAt == nil {
		return false
	}
	return guild.Premium.ExpiresAt.After(now)
}
