package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/api/handlers"
	"github.com/aurabot/dashboard-api/audit"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/databases/mocks"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

func newGuildRequest(t *testing.T, method, target, body string, actor api.Actor) *http.Request {
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return req.WithContext(api.WithActor(req.Context(), actor))
}

func TestGuild_GuildsHandler(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	usersConn := &mocks.CollectionHelper{}
	guildsConn := &mocks.CollectionHelper{}

	userResult := &mocks.SingleResultHelper{}
	userResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).ManageableGuilds = []string{"guild-1"}
	})
	usersConn.On("FindOne", mock.Anything, mock.Anything).Return(userResult)

	future := time.Now().Add(24 * time.Hour)
	cursor := &mocks.CursorHelper{}
	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Guild)
		*arg = []models.Guild{
			{GuildID: "guild-1", Name: "Test Guild", Premium: models.GuildPremium{Active: true, ExpiresAt: &future}},
		}
	})
	guildsConn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)

	db.On("Collection", "users").Return(usersConn)
	db.On("Collection", "guilds").Return(guildsConn)

	g := handlers.Guild{
		DB:    databases.NewGuildDatabase(db),
		UDB:   databases.NewUserDatabase(db),
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newGuildRequest(t, "GET", "/api/v1/guilds", "", api.Actor{DiscordID: "user-1"})
	http.HandlerFunc(g.GuildsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"effectivePremium":true`)
	assert.Contains(t, rr.Body.String(), "Test Guild")
}

func TestGuild_GuildByIDHandlerForbidden(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	usersConn := &mocks.CollectionHelper{}

	userResult := &mocks.SingleResultHelper{}
	userResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).ManageableGuilds = []string{"another-guild"}
	})
	usersConn.On("FindOne", mock.Anything, mock.Anything).Return(userResult)
	db.On("Collection", "users").Return(usersConn)

	g := handlers.Guild{
		DB:    databases.NewGuildDatabase(db),
		UDB:   databases.NewUserDatabase(db),
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newGuildRequest(t, "GET", "/api/v1/guilds/guild-1", "", api.Actor{DiscordID: "user-1"})
	req = mux.SetURLVars(req, map[string]string{"guild_id": "guild-1"})
	http.HandlerFunc(g.GuildByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "cannot access this guild")
}

func TestGuild_UpdateGuildConfigHandlerUnknownField(t *testing.T) {
	g := handlers.Guild{Audit: &audit.Logger{}}

	rr := httptest.NewRecorder()
	req := newGuildRequest(t, "PATCH", "/api/v1/guilds/guild-1/config", `{"hackField":"x"}`, api.Actor{DiscordID: "admin-1", Admin: true})
	req = mux.SetURLVars(req, map[string]string{"guild_id": "guild-1"})
	http.HandlerFunc(g.UpdateGuildConfigHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown config field")
}

func TestGuild_UpdateGuildConfigHandlerInvalidPrefix(t *testing.T) {
	g := handlers.Guild{Audit: &audit.Logger{}}

	rr := httptest.NewRecorder()
	req := newGuildRequest(t, "PATCH", "/api/v1/guilds/guild-1/config", `{"prefix":"toolong"}`, api.Actor{DiscordID: "admin-1", Admin: true})
	req = mux.SetURLVars(req, map[string]string{"guild_id": "guild-1"})
	http.HandlerFunc(g.UpdateGuildConfigHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "prefix must be between 1 and 5 characters")
}

func TestGuild_UpdateGuildConfigHandler(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	guildsConn := &mocks.CollectionHelper{}
	guildsConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	db.On("Collection", "guilds").Return(guildsConn)

	g := handlers.Guild{
		DB:    databases.NewGuildDatabase(db),
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newGuildRequest(t, "PATCH", "/api/v1/guilds/guild-1/config", `{"prefix":"?","welcomeEnabled":true}`, api.Actor{DiscordID: "admin-1", Admin: true})
	req = mux.SetURLVars(req, map[string]string{"guild_id": "guild-1"})
	http.HandlerFunc(g.UpdateGuildConfigHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "guild config updated successfully")
}

func TestGuild_ActivateHandlerNoSlots(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	usersConn := &mocks.CollectionHelper{}

	userResult := &mocks.SingleResultHelper{}
	userResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "admin-1"
		(*arg).Premium = models.UserPremium{SlotCount: 0}
	})
	usersConn.On("FindOne", mock.Anything, mock.Anything).Return(userResult)
	db.On("Collection", "users").Return(usersConn)

	g := handlers.Guild{
		DB:  databases.NewGuildDatabase(db),
		UDB: databases.NewUserDatabase(db),
		Activator: &premium.Activator{
			Users:  databases.NewUserDatabase(db),
			Guilds: databases.NewGuildDatabase(db),
			Txn:    databases.PassthroughTxn{},
		},
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newGuildRequest(t, "POST", "/api/v1/guilds/guild-1/activate", "", api.Actor{DiscordID: "admin-1", Admin: true})
	req = mux.SetURLVars(req, map[string]string{"guild_id": "guild-1"})
	http.HandlerFunc(g.ActivateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no premium slots available")
}

func TestGuild_DeactivateHandlerNotFound(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	guildsConn := &mocks.CollectionHelper{}
	guildsConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	db.On("Collection", "guilds").Return(guildsConn)

	g := handlers.Guild{
		DB: databases.NewGuildDatabase(db),
		Activator: &premium.Activator{
			Guilds: databases.NewGuildDatabase(db),
			Txn:    databases.PassthroughTxn{},
		},
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newGuildRequest(t, "POST", "/api/v1/guilds/guild-1/deactivate", "", api.Actor{DiscordID: "admin-1", Admin: true})
	req = mux.SetURLVars(req, map[string]string{"guild_id": "guild-1"})
	http.HandlerFunc(g.DeactivateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "guild not found")
}
