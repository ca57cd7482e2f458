package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	cldapi "github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/premium"
)

// Branding handles premium guild branding uploads (custom bot avatar and
// embed art). Uploads go straight from the browser to Cloudinary, the API
// only signs them.
type Branding struct {
	GDB          databases.GuildDatabase
	UDB          databases.UserDatabase
	UploadPreset string
	APISecret    string
}

// canAccess mirrors Guild.canAccess
func (b Branding) canAccess(r *http.Request, guildID string) bool {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		return false
	}
	if actor.Admin {
		return true
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	user, err := b.UDB.FindOne(ctx, bson.M{"discordId": actor.DiscordID})
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

// UploadSignatureHandler generates a signature for Cloudinary uploads. Only
// guilds with effective premium may upload branding.
func (b Branding) UploadSignatureHandler(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guild_id"]
	if !b.canAccess(r, guildID) {
		config.ErrorStatus("cannot access this guild", http.StatusForbidden, w, errAccessDenied)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	guild, err := b.GDB.FindOne(ctx, bson.M{"guildId": guildID})
	if err != nil {
		config.ErrorStatus("failed to get guild", http.StatusNotFound, w, err)
		return
	}
	if !premium.IsEffectivelyPremium(*guild, time.Now()) {
		config.ErrorStatus("guild premium required for branding uploads", http.StatusForbidden, w, errors.New("guild is not premium"))
		return
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := url.Values{
		"timestamp":     {timestamp},
		"upload_preset": {b.UploadPreset},
		"folder":        {"guild-branding/" + guildID},
	}
	signature, err := cldapi.SignParameters(params, b.APISecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload parameters", http.StatusInternalServerError, w, err)
		return
	}

	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
		"folder":    "guild-branding/" + guildID,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
