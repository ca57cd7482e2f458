package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/audit"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/discord"
	"github.com/aurabot/dashboard-api/models"
)

// stateTTL bounds how long an OAuth state token stays valid
const stateTTL = 10 * time.Minute

// Auth handles the Discord OAuth login flow
type Auth struct {
	DC        *discord.Client
	UDB       databases.UserDatabase
	GDB       databases.GuildDatabase
	Audit     *audit.Logger
	JWTSecret string
}

// LoginHandler redirects the browser to the Discord consent page with a
// signed state parameter
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	claims := jwt.MapClaims{
		"nonce": uuid.New().String(),
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(stateTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	state, err := token.SignedString([]byte(a.JWTSecret))
	if err != nil {
		config.ErrorStatus("failed to sign oauth state", http.StatusInternalServerError, w, err)
		return
	}

	http.Redirect(w, r, a.DC.AuthorizeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler finishes the OAuth flow: verifies state, exchanges the
// code, loads the Discord identity, upserts the user and their manageable
// guilds, and issues a dashboard bearer token
func (a Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	parsed, err := jwt.Parse(state, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		if err == nil {
			err = jwt.ErrTokenInvalidClaims
		}
		config.ErrorStatus("invalid oauth state", http.StatusBadRequest, w, err)
		return
	}

	accessToken, err := a.DC.ExchangeCode(r.Context(), code)
	if err != nil {
		config.ErrorStatus("failed to exchange oauth code", http.StatusUnauthorized, w, err)
		return
	}

	identity, err := a.DC.FetchIdentity(r.Context(), accessToken)
	if err != nil {
		config.ErrorStatus("failed to fetch discord identity", http.StatusBadGateway, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	manageable := make([]string, 0, len(identity.Guilds))
	for _, g := range identity.Guilds {
		if !discord.CanManage(g) {
			continue
		}
		manageable = append(manageable, g.ID)
		ownerID := ""
		if g.Owner {
			ownerID = identity.User.ID
		}
		if err := a.GDB.UpsertFromDiscord(ctx, g.ID, g.Name, g.Icon, ownerID); err != nil {
			zap.S().Errorw("failed to upsert guild on login", "guildId", g.ID, "error", err)
		}
	}

	user, err := a.UDB.UpsertLogin(ctx, models.User{
		DiscordID:        identity.User.ID,
		Username:         identity.User.Username,
		Discriminator:    identity.User.Discriminator,
		Avatar:           identity.User.Avatar,
		Email:            identity.User.Email,
		ManageableGuilds: manageable,
	})
	if err != nil {
		config.ErrorStatus("failed to upsert user", http.StatusInternalServerError, w, err)
		return
	}

	token := api.IssueToken(r, user.DiscordID, user.Username)

	a.Audit.Log(r.Context(), audit.LevelInfo, "auth.login", user.DiscordID, r, map[string]interface{}{
		"guildCount": len(manageable),
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
