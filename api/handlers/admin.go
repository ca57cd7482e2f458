package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/audit"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

// Admin exposes the admin console operations. Every route is wrapped in
// api.AdminOnly.
type Admin struct {
	Codes  *premium.CodeStore
	Ledger *premium.Ledger
	UDB    databases.UserDatabase
	GDB    databases.GuildDatabase
	Audit  *audit.Logger
}

type createCodesRequest struct {
	SlotsGranted   int `json:"slotsGranted"`
	CodeExpiryDays int `json:"codeExpiryDays,omitempty"`
	Quantity       int `json:"quantity"`
}

// CreateRedeemCodesHandler mints a batch of redeem codes
func (a Admin) CreateRedeemCodesHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())

	var body createCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	codes, err := a.Codes.Generate(ctx, actor.DiscordID, body.SlotsGranted, body.CodeExpiryDays, body.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a.Audit.Log(r.Context(), audit.LevelInfo, "admin.codes_created", actor.DiscordID, r, map[string]interface{}{
		"quantity":     len(codes),
		"slotsGranted": body.SlotsGranted,
	})

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(codes)
}

// ListRedeemCodesHandler returns all redeem codes
func (a Admin) ListRedeemCodesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	codes, err := a.Codes.List(ctx)
	if err != nil {
		config.ErrorStatus("failed to get redeem codes", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(codes)
}

// DeleteRedeemCodeHandler removes a redeem code by document ID
func (a Admin) DeleteRedeemCodeHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())
	codeID := mux.Vars(r)["id"]

	cID, err := primitive.ObjectIDFromHex(codeID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := a.Codes.Delete(ctx, cID); err != nil {
		writeDomainError(w, err)
		return
	}

	a.Audit.Log(r.Context(), audit.LevelInfo, "admin.code_deleted", actor.DiscordID, r, map[string]interface{}{
		"codeId": codeID,
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "redeem code deleted successfully"}`))
}

type userOverrideRequest struct {
	SlotCount  int  `json:"slotCount"`
	ExpiryDays *int `json:"expiryDays,omitempty"`
}

// OverrideUserEntitlementHandler replaces a user's slot balance outright
func (a Admin) OverrideUserEntitlementHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())
	discordID := mux.Vars(r)["id"]

	var body userOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ent, err := a.Ledger.SetSlots(ctx, discordID, body.SlotCount, body.ExpiryDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a.Audit.Log(r.Context(), audit.LevelWarn, "admin.user_entitlement_override", actor.DiscordID, r, map[string]interface{}{
		"targetUserId": discordID,
		"slotCount":    body.SlotCount,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.EntitlementResponse{SlotCount: ent.SlotCount, ExpiresAt: ent.ExpiresAt})
}

type guildOverrideRequest struct {
	Active     bool `json:"active"`
	ExpiryDays *int `json:"expiryDays,omitempty"`
}

// OverrideGuildEntitlementHandler force-sets guild premium state, including
// removal. Overrides bypass the slot ledger entirely.
func (a Admin) OverrideGuildEntitlementHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())
	guildID := mux.Vars(r)["id"]

	var body guildOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	now := time.Now()
	set := bson.M{"premium.active": body.Active, "updatedAt": now}
	unset := bson.M{}
	if !body.Active {
		// removal clears the window
		unset["premium.expiresAt"] = ""
		unset["premium.activatedBy"] = ""
	} else if body.ExpiryDays != nil {
		// guild premium always carries a bounded window, an activation with no
		// expiry would read as not premium everywhere
		if *body.ExpiryDays < 1 {
			config.ErrorStatus("expiryDays must be at least 1", http.StatusBadRequest, w, errors.New("invalid expiryDays"))
			return
		}
		set["premium.expiresAt"] = now.Add(time.Duration(*body.ExpiryDays) * 24 * time.Hour)
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := a.GDB.UpdateOne(ctx, bson.M{"guildId": guildID}, update)
	if err != nil {
		config.ErrorStatus("failed to update guild premium", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("guild not found", http.StatusNotFound, w, premium.ErrGuildNotFound)
		return
	}

	a.Audit.Log(r.Context(), audit.LevelWarn, "admin.guild_entitlement_override", actor.DiscordID, r, map[string]interface{}{
		"targetGuildId": guildID,
		"active":        body.Active,
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "guild premium updated successfully"}`))
}

// ListUsersHandler returns users, paginated
func (a Admin) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, page := paginationParams(r)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := a.UDB.FindPaginated(ctx, bson.M{}, limit, page)
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusInternalServerError, w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(users)
}

// ListGuildsHandler returns guilds, paginated
func (a Admin) ListGuildsHandler(w http.ResponseWriter, r *http.Request) {
	limit, page := paginationParams(r)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	guilds, err := a.GDB.FindPaginated(ctx, bson.M{}, limit, page)
	if err != nil {
		config.ErrorStatus("failed to get guilds", http.StatusInternalServerError, w, err)
		return
	}
	if guilds == nil {
		guilds = []models.Guild{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(guilds)
}

// StatsHandler returns the aggregate totals for the admin dashboard
func (a Admin) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := time.Now()

	totalUsers, err := a.UDB.CountDocuments(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to count users", http.StatusInternalServerError, w, err)
		return
	}
	totalGuilds, err := a.GDB.CountDocuments(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to count guilds", http.StatusInternalServerError, w, err)
		return
	}
	premiumGuilds, err := a.GDB.CountDocuments(ctx, bson.M{
		"premium.active":    true,
		"premium.expiresAt": bson.M{"$gt": now},
	})
	if err != nil {
		config.ErrorStatus("failed to count premium guilds", http.StatusInternalServerError, w, err)
		return
	}
	codesIssued, err := a.Codes.Codes.CountDocuments(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to count redeem codes", http.StatusInternalServerError, w, err)
		return
	}
	codesUsed, err := a.Codes.Codes.CountDocuments(ctx, bson.M{"usedBy": bson.M{"$exists": true}})
	if err != nil {
		config.ErrorStatus("failed to count used redeem codes", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.AdminStatsResponse{
		TotalUsers:    totalUsers,
		TotalGuilds:   totalGuilds,
		PremiumGuilds: premiumGuilds,
		CodesIssued:   codesIssued,
		CodesUsed:     codesUsed,
	})
}

func paginationParams(r *http.Request) (limit, page int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 25
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return limit, page
}
