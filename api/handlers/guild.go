package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/audit"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

// Guild exported for testing purposes
type Guild struct {
	DB        databases.GuildDatabase
	UDB       databases.UserDatabase
	Activator *premium.Activator
	Audit     *audit.Logger
	Hub       *NotificationHub
}

// guildView decorates a guild document with the computed premium state so
// the dashboard never has to interpret the raw active flag
type guildView struct {
	models.Guild
	EffectivePremium bool `json:"effectivePremium"`
}

// canAccess reports whether the actor may touch the guild: configured admin,
// or a user who manages it on Discord
func (g Guild) canAccess(r *http.Request, guildID string) bool {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		return false
	}
	if actor.Admin {
		return true
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	user, err := g.UDB.FindOne(ctx, bson.M{"discordId": actor.DiscordID})
	if err != nil {
		return false
	}
	for _, id := range user.ManageableGuilds {
		if id == guildID {
			return true
		}
	}
	return false
}

// GuildsHandler returns the caller's manageable guilds with their effective
// premium state
func (g Guild) GuildsHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := g.UDB.FindOne(ctx, bson.M{"discordId": actor.DiscordID})
	if err != nil {
		config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
		return
	}

	guilds := []models.Guild{}
	if len(user.ManageableGuilds) > 0 {
		guilds, err = g.DB.Find(ctx, bson.M{"guildId": bson.M{"$in": user.ManageableGuilds}})
		if err != nil {
			config.ErrorStatus("failed to get guilds", http.StatusInternalServerError, w, err)
			return
		}
	}

	now := time.Now()
	views := make([]guildView, 0, len(guilds))
	for _, guild := range guilds {
		views = append(views, guildView{Guild: guild, EffectivePremium: premium.IsEffectivelyPremium(guild, now)})
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(views)
}

// GuildByIDHandler returns a single guild
func (g Guild) GuildByIDHandler(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guild_id"]
	if !g.canAccess(r, guildID) {
		config.ErrorStatus("cannot access this guild", http.StatusForbidden, w, errAccessDenied)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	guild, err := g.DB.FindOne(ctx, bson.M{"guildId": guildID})
	if err != nil {
		config.ErrorStatus("failed to get guild", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(guildView{Guild: *guild, EffectivePremium: premium.IsEffectivelyPremium(*guild, time.Now())})
}

// GuildConfigHandler returns the bot configuration for a guild
func (g Guild) GuildConfigHandler(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guild_id"]
	if !g.canAccess(r, guildID) {
		config.ErrorStatus("cannot access this guild", http.StatusForbidden, w, errAccessDenied)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	guild, err := g.DB.FindOne(ctx, bson.M{"guildId": guildID})
	if err != nil {
		config.ErrorStatus("failed to get guild", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(guild.Config)
}

// allowedConfigFields whitelists the PATCHable config keys
var allowedConfigFields = map[string]bool{
	"prefix":              true,
	"language":            true,
	"automodEnabled":      true,
	"loggingEnabled":      true,
	"logChannelId":        true,
	"welcomeEnabled":      true,
	"welcomeChannelId":    true,
	"welcomeMessage":      true,
	"musicEnabled":        true,
	"moderationEnabled":   true,
	"moderationChannelId": true,
}

// UpdateGuildConfigHandler applies a partial config update
func (g Guild) UpdateGuildConfigHandler(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guild_id"]
	if !g.canAccess(r, guildID) {
		config.ErrorStatus("cannot access this guild", http.StatusForbidden, w, errAccessDenied)
		return
	}

	var updatedFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updatedFields); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{}
	for key, value := range updatedFields {
		if !allowedConfigFields[key] {
			config.ErrorStatus("unknown config field: "+key, http.StatusBadRequest, w, errors.New("unknown config field"))
			return
		}
		set["config."+key] = value
	}
	if prefix, ok := updatedFields["prefix"].(string); ok {
		if prefix == "" || len(prefix) > 5 {
			config.ErrorStatus("prefix must be between 1 and 5 characters", http.StatusBadRequest, w, errors.New("invalid prefix"))
			return
		}
	}
	if len(set) == 0 {
		config.ErrorStatus("no config fields to update", http.StatusBadRequest, w, errors.New("empty update"))
		return
	}
	set["updatedAt"] = time.Now()

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := g.DB.UpdateOne(ctx, bson.M{"guildId": guildID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update guild config", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("guild not found", http.StatusNotFound, w, premium.ErrGuildNotFound)
		return
	}

	actor, _ := api.ActorFromContext(r.Context())
	g.Audit.Log(r.Context(), audit.LevelInfo, "guild.config_updated", actor.DiscordID, r, map[string]interface{}{
		"guildId": guildID,
		"fields":  len(set) - 1,
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "guild config updated successfully"}`))
}

// ActivateHandler spends one of the caller's premium slots on the guild
func (g Guild) ActivateHandler(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guild_id"]
	actor, _ := api.ActorFromContext(r.Context())
	if !g.canAccess(r, guildID) {
		config.ErrorStatus("cannot access this guild", http.StatusForbidden, w, errAccessDenied)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := g.Activator.Activate(ctx, guildID, actor.DiscordID)
	if err != nil {
		g.Audit.Log(r.Context(), audit.LevelWarn, "guild.activation_failed", actor.DiscordID, r, map[string]interface{}{
			"guildId": guildID,
			"reason":  err.Error(),
		})
		writeDomainError(w, err)
		return
	}

	g.Audit.Log(r.Context(), audit.LevelInfo, "guild.activated", actor.DiscordID, r, map[string]interface{}{
		"guildId":   guildID,
		"expiresAt": result.GuildExpiresAt,
	})
	g.Hub.Publish(actor.DiscordID, "guild_activated", map[string]interface{}{
		"guildId":   guildID,
		"expiresAt": result.GuildExpiresAt,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.ActivationResponse{
		GuildID:        result.GuildID,
		SlotCount:      result.SlotCount,
		GuildExpiresAt: &result.GuildExpiresAt,
	})
}

// DeactivateHandler turns off the guild premium activation. Spent slots are
// not refunded.
func (g Guild) DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guild_id"]
	actor, _ := api.ActorFromContext(r.Context())
	if !g.canAccess(r, guildID) {
		config.ErrorStatus("cannot access this guild", http.StatusForbidden, w, errAccessDenied)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := g.Activator.Deactivate(ctx, guildID); err != nil {
		writeDomainError(w, err)
		return
	}

	g.Audit.Log(r.Context(), audit.LevelInfo, "guild.deactivated", actor.DiscordID, r, map[string]interface{}{
		"guildId": guildID,
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "guild premium deactivated"}`))
}
