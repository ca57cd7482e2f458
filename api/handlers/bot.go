package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
)

// Bot handles status ingest from the bot process
type Bot struct {
	GDB databases.GuildDatabase
}

type guildStatusRequest struct {
	GuildID     string `json:"guildId"`
	BotAdded    bool   `json:"botAdded"`
	MemberCount int    `json:"memberCount,omitempty"`
}

// GuildStatusHandler records whether the bot joined or left a guild
func (b Bot) GuildStatusHandler(w http.ResponseWriter, r *http.Request) {
	var body guildStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.GuildID == "" {
		config.ErrorStatus("guildId is required", http.StatusBadRequest, w, errors.New("missing guildId"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := b.GDB.UpsertBotStatus(ctx, body.GuildID, body.BotAdded, body.MemberCount); err != nil {
		config.ErrorStatus("failed to update guild bot status", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "guild status updated"}`))
}
