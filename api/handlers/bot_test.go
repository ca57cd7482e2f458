package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aurabot/dashboard-api/api/handlers"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/databases/mocks"
)

func TestBot_GuildStatusHandlerMissingGuildID(t *testing.T) {
	b := handlers.Bot{}

	req, err := http.NewRequest("POST", "/api/v1/bot/guild-status", strings.NewReader(`{"botAdded":true}`))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(b.GuildStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "guildId is required")
}

func TestBot_GuildStatusHandler(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	db.On("Collection", "guilds").Return(conn)

	b := handlers.Bot{GDB: databases.NewGuildDatabase(db)}

	req, err := http.NewRequest("POST", "/api/v1/bot/guild-status", strings.NewReader(`{"guildId":"guild-1","botAdded":true,"memberCount":42}`))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(b.GuildStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "guild status updated")
}
