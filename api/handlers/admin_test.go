package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

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

func newAdminRequest(t *testing.T, method, target, body string) *http.Request {
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return req.WithContext(api.WithActor(req.Context(), api.Actor{DiscordID: "admin-1", Username: "admin", Admin: true}))
}

func TestAdmin_CreateRedeemCodesHandlerInvalidQuantity(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	db.On("Collection", "redeem_codes").Return(conn)

	adm := handlers.Admin{
		Codes: &premium.CodeStore{Codes: databases.NewRedeemCodeDatabase(db)},
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "POST", "/api/v1/admin/redeem-codes", `{"slotsGranted":1,"quantity":0}`)
	http.HandlerFunc(adm.CreateRedeemCodesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "quantity")

	conn.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything)
}

func TestAdmin_CreateRedeemCodesHandler(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	conn.On("InsertMany", mock.Anything, mock.Anything).Return(nil)
	db.On("Collection", "redeem_codes").Return(conn)

	adm := handlers.Admin{
		Codes: &premium.CodeStore{Codes: databases.NewRedeemCodeDatabase(db)},
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "POST", "/api/v1/admin/redeem-codes", `{"slotsGranted":2,"quantity":5}`)
	http.HandlerFunc(adm.CreateRedeemCodesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"slotsGranted":2`)
}

func TestAdmin_DeleteRedeemCodeHandlerBadID(t *testing.T) {
	adm := handlers.Admin{
		Codes: &premium.CodeStore{},
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "DELETE", "/api/v1/admin/redeem-codes/asdf", "")
	req = mux.SetURLVars(req, map[string]string{"id": "asdf"})
	http.HandlerFunc(adm.DeleteRedeemCodeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to get objectID from Hex")
}

func TestAdmin_DeleteRedeemCodeHandlerNotFound(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	conn.On("DeleteOne", mock.Anything, mock.Anything).
		Return(&mongo.DeleteResult{DeletedCount: 0}, nil)
	db.On("Collection", "redeem_codes").Return(conn)

	adm := handlers.Admin{
		Codes: &premium.CodeStore{Codes: databases.NewRedeemCodeDatabase(db)},
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "DELETE", "/api/v1/admin/redeem-codes/62df6b7e3f9f1c3b3e3b3b3b", "")
	req = mux.SetURLVars(req, map[string]string{"id": "62df6b7e3f9f1c3b3e3b3b3b"})
	http.HandlerFunc(adm.DeleteRedeemCodeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdmin_OverrideUserEntitlementHandler(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).Premium = models.UserPremium{SlotCount: 5}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.On("Collection", "users").Return(conn)

	adm := handlers.Admin{
		Ledger: &premium.Ledger{Users: databases.NewUserDatabase(db)},
		Audit:  &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "POST", "/api/v1/admin/users/user-1/entitlement", `{"slotCount":5}`)
	req = mux.SetURLVars(req, map[string]string{"id": "user-1"})
	http.HandlerFunc(adm.OverrideUserEntitlementHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"slotCount":5`)
}

func TestAdmin_OverrideGuildEntitlementHandlerNotFound(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	db.On("Collection", "guilds").Return(conn)

	adm := handlers.Admin{
		GDB:   databases.NewGuildDatabase(db),
		Audit: &audit.Logger{},
	}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "POST", "/api/v1/admin/guilds/guild-1/entitlement", `{"active":true}`)
	req = mux.SetURLVars(req, map[string]string{"id": "guild-1"})
	http.HandlerFunc(adm.OverrideGuildEntitlementHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdmin_OverrideGuildEntitlementHandlerNegativeDays(t *testing.T) {
	adm := handlers.Admin{Audit: &audit.Logger{}}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "POST", "/api/v1/admin/guilds/guild-1/entitlement", `{"active":true,"expiryDays":-1}`)
	req = mux.SetURLVars(req, map[string]string{"id": "guild-1"})
	http.HandlerFunc(adm.OverrideGuildEntitlementHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdmin_OverrideGuildEntitlementHandlerZeroDays(t *testing.T) {
	adm := handlers.Admin{Audit: &audit.Logger{}}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "POST", "/api/v1/admin/guilds/guild-1/entitlement", `{"active":true,"expiryDays":0}`)
	req = mux.SetURLVars(req, map[string]string{"id": "guild-1"})
	http.HandlerFunc(adm.OverrideGuildEntitlementHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdmin_StatsHandler(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	usersConn := &mocks.CollectionHelper{}
	guildsConn := &mocks.CollectionHelper{}
	codesConn := &mocks.CollectionHelper{}

	usersConn.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(10), nil)
	guildsConn.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(4), nil)
	codesConn.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(7), nil)

	db.On("Collection", "users").Return(usersConn)
	db.On("Collection", "guilds").Return(guildsConn)
	db.On("Collection", "redeem_codes").Return(codesConn)

	adm := handlers.Admin{
		Codes:  &premium.CodeStore{Codes: databases.NewRedeemCodeDatabase(db)},
		UDB:    databases.NewUserDatabase(db),
		GDB:    databases.NewGuildDatabase(db),
		Audit:  &audit.Logger{},
		Ledger: &premium.Ledger{},
	}

	rr := httptest.NewRecorder()
	req := newAdminRequest(t, "GET", "/api/v1/admin/stats", "")
	http.HandlerFunc(adm.StatsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"totalUsers":10`)
	assert.Contains(t, rr.Body.String(), `"codesIssued":7`)
}
