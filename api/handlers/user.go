package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

// User exported for testing purposes
type User struct {
	DB     databases.UserDatabase
	GDB    databases.GuildDatabase
	Ledger *premium.Ledger
}

// CurrentUserHandler returns the profile of the logged-in user
func (u User) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.FindOne(ctx, bson.M{"discordId": actor.DiscordID})
	if err != nil {
		config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// EntitlementHandler returns the slot balance for a user. Callers may only
// read their own entitlement unless they are the admin.
func (u User) EntitlementHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	actor, _ := api.ActorFromContext(r.Context())

	if actor.DiscordID != userID && !actor.Admin {
		config.ErrorStatus("cannot read another user's entitlement", http.StatusForbidden, w, errAccessDenied)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ent, err := u.Ledger.Entitlement(ctx, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	activeGuilds, err := countActiveGuilds(ctx, u.GDB, userID)
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

// countActiveGuilds counts guilds whose premium was activated by the user
// and is still effective
func countActiveGuilds(ctx context.Context, gdb databases.GuildDatabase, discordID string) (int64, error) {
	now := time.Now()
	return gdb.CountDocuments(ctx, bson.M{
		"premium.activatedBy": discordID,
		"premium.active":      true,
		"premium.expiresAt":   bson.M{"$gt": now},
	})
}
