package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/audit"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

// Entitlement exported for testing purposes
type Entitlement struct {
	Codes *premium.CodeStore
	GDB   databases.GuildDatabase
	Audit *audit.Logger
	Hub   *NotificationHub
}

type redeemRequest struct {
	Code string `json:"code"`
}

// RedeemHandler consumes a redeem code for the logged-in user and returns
// the updated slot balance
func (e Entitlement) RedeemHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())

	var body redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ent, err := e.Codes.Redeem(ctx, body.Code, actor.DiscordID)
	if err != nil {
		e.Audit.Log(r.Context(), audit.LevelWarn, "entitlement.redeem_failed", actor.DiscordID, r, map[string]interface{}{
			"reason": err.Error(),
		})
		writeDomainError(w, err)
		return
	}

	e.Audit.Log(r.Context(), audit.LevelInfo, "entitlement.redeemed", actor.DiscordID, r, map[string]interface{}{
		"slotCount": ent.SlotCount,
	})
	e.Hub.Publish(actor.DiscordID, "entitlement_updated", map[string]interface{}{
		"slotCount": ent.SlotCount,
		"expiresAt": ent.ExpiresAt,
	})

	activeGuilds, err := countActiveGuilds(ctx, e.GDB, actor.DiscordID)
	if err != nil {
		config.ErrorStatus("failed to count active guilds", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.EntitlementResponse{
		SlotCount:        ent.SlotCount,
		ExpiresAt:        ent.ExpiresAt,
		ActiveGuildCount: activeGuilds,
	})
}
