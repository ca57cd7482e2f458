package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authenticator auth.Authenticator
var cache store.Cache

// adminDiscordID and botKeyHash are set once at startup from config
var adminDiscordID string
var botKeyHash string

// sessionTTL bounds how long a dashboard bearer token stays valid
const sessionTTL = 30 * 24 * time.Hour

// SetupGoGuardian sets up the go-guardian middleware
func SetupGoGuardian(adminID, botHash string) {
	adminDiscordID = adminID
	botKeyHash = botHash

	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), sessionTTL)
	tokenStrategy := bearer.New(bearer.NoOpAuthenticate, cache)
	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// IssueToken mints a bearer token for a logged-in user and caches it
func IssueToken(r *http.Request, discordID, username string) string {
	token := uuid.New().String()
	authUser := auth.NewDefaultUser(username, discordID, nil, nil)
	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Append(tokenStrategy, token, authUser, r)
	return token
}

// Middleware adds bearer token authentication around accessing the routes and
// injects the resolved actor into the request context
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		actor := Actor{
			DiscordID: user.ID(),
			Username:  user.UserName(),
			Admin:     adminDiscordID != "" && user.ID() == adminDiscordID,
		}
		zap.S().Debugf("User %s Authenticated\n", user.UserName())
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// AdminOnly rejects callers whose actor is not the configured admin. It must
// run inside Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.Admin {
			zap.S().Warnw("forbidden admin access attempt",
				"url", r.URL,
				"discordId", actor.DiscordID)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "forbidden"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BotAuth authenticates the bot process with its shared service key. The key
// is verified against a bcrypt hash so the plaintext never lives in config.
func BotAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		key := r.Header.Get("X-Bot-Key")
		if key == "" || botKeyHash == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(botKeyHash), []byte(key)); err != nil {
			zap.S().Warnw("bot auth failed", "url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RevokeToken revokes a token
func RevokeToken(w http.ResponseWriter, r *http.Request) {
	reqToken := r.Header.Get("Authorization")
	splitToken := strings.Split(reqToken, "Bearer ")
	if len(splitToken) < 2 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "missing bearer token"}`))
		return
	}
	reqToken = splitToken[1]

	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Revoke(tokenStrategy, reqToken, r)
	body := fmt.Sprintf(`{"revoked token": "%s"}`, reqToken)
	w.Write([]byte(body))
}
