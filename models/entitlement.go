package models

import "time"

// EntitlementResponse is the slot balance view returned by the entitlement
// and redeem endpoints
type EntitlementResponse struct {
	SlotCount        int        `json:"slotCount"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	ActiveGuildCount int64      `json:"activeGuildCount"`
}

// ActivationResponse is returned after a successful guild premium activation
type ActivationResponse struct {
	GuildID        string     `json:"guildId"`
	SlotCount      int        `json:"slotCount"`
	GuildExpiresAt *time.Time `json:"guildExpiresAt,omitempty"`
}

// AdminStatsResponse holds the aggregate totals shown on the admin dashboard
type AdminStatsResponse struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalGuilds   int64 `json:"totalGuilds"`
	PremiumGuilds int64 `json:"premiumGuilds"`
	CodesIssued   int64 `json:"codesIssued"`
	CodesUsed     int64 `json:"codesUsed"`
}
