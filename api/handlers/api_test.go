package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var a App

func executeRequest(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func checkResponseCode(t *testing.T, expected, actual int) {
	if expected != actual {
		t.Errorf("Expected response code %d. Got %d\n", expected, actual)
	}
}

func TestUnknownRoute(t *testing.T) {
	a.Config.DisableTxn = true
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/asdf", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusNotFound, response.Code)
}

func TestHealthCheckRoute(t *testing.T) {
	a.Config.DisableTxn = true
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/health", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusOK, response.Code)

	if !strings.Contains(response.Body.String(), "alive") {
		t.Errorf("Expected 'alive' in the reponse. Got '%s'", response.Body.String())
	}
}

func TestApp_CurrentUserHandlerUnauthorized(t *testing.T) {
	a.Config.DisableTxn = true
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/v1/user", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)
}

func TestApp_RedeemHandlerInvalidToken(t *testing.T) {
	a.Config.DisableTxn = true
	a.Router = a.New()
	req, _ := http.NewRequest("POST", "/api/v1/entitlements/redeem", strings.NewReader(`{"code":"ABCD"}`))
	req.Header.Add("Authorization", "Bearer asdfasdf")
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)
}

func TestApp_AdminRouteUnauthorized(t *testing.T) {
	a.Config.DisableTxn = true
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/v1/admin/stats", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)
}

func TestApp_BotRouteRequiresKey(t *testing.T) {
	a.Config.DisableTxn = true
	a.Router = a.New()
	req, _ := http.NewRequest("POST", "/api/v1/bot/guild-status", strings.NewReader(`{"guildId":"1"}`))
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)
}
