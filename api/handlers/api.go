package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/api/scheduler"
	"github.com/aurabot/dashboard-api/audit"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/discord"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	dbHelper  databases.DatabaseHelper
	scheduler *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	api.SetupGoGuardian(a.Config.AdminDiscordID, a.Config.BotKeyHash)

	r := mux.NewRouter()
	r.Use(api.RequestLogger)

	udb := databases.NewUserDatabase(a.dbHelper)
	gdb := databases.NewGuildDatabase(a.dbHelper)
	cdb := databases.NewRedeemCodeDatabase(a.dbHelper)
	edb := databases.NewEventDatabase(a.dbHelper)

	auditLog := &audit.Logger{Events: edb}
	hub := NewNotificationHub()

	ledger := &premium.Ledger{Users: udb}
	codes := &premium.CodeStore{Codes: cdb, Ledger: ledger}

	var txn databases.TxnRunner = databases.PassthroughTxn{}
	if !a.Config.DisableTxn {
		txn = databases.NewTxnRunner(a.dbHelper.Client())
	}
	activator := &premium.Activator{Users: udb, Guilds: gdb, Txn: txn}

	dc := &discord.Client{
		ClientID:     a.Config.DiscordClientID,
		ClientSecret: a.Config.DiscordClientSecret,
		RedirectURI:  a.Config.DiscordRedirectURI,
	}

	auth := Auth{DC: dc, UDB: udb, GDB: gdb, Audit: auditLog, JWTSecret: a.Config.JWTSecret}
	u := User{DB: udb, GDB: gdb, Ledger: ledger}
	ent := Entitlement{Codes: codes, GDB: gdb, Audit: auditLog, Hub: hub}
	g := Guild{DB: gdb, UDB: udb, Activator: activator, Audit: auditLog, Hub: hub}
	branding := Branding{
		GDB:          gdb,
		UDB:          udb,
		UploadPreset: a.Config.CloudinaryUploadPreset,
		APISecret:    a.Config.CloudinaryAPISecret,
	}
	billing := Billing{UDB: udb, Ledger: ledger, Audit: auditLog, Hub: hub, BaseURL: a.Config.BaseURL}
	bot := Bot{GDB: gdb}
	admin := Admin{Codes: codes, Ledger: ledger, UDB: udb, GDB: gdb, Audit: auditLog}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/discord/login", http.HandlerFunc(auth.LoginHandler)).Methods("GET")
	apiCreate.Handle("/auth/discord/callback", http.HandlerFunc(auth.CallbackHandler)).Methods("GET")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user", api.Middleware(http.HandlerFunc(u.CurrentUserHandler))).Methods("GET")
	apiCreate.Handle("/users/{user_id}/entitlement", api.Middleware(http.HandlerFunc(u.EntitlementHandler))).Methods("GET")
	apiCreate.Handle("/entitlements/redeem", api.Middleware(http.HandlerFunc(ent.RedeemHandler))).Methods("POST")

	apiCreate.Handle("/guilds", api.Middleware(http.HandlerFunc(g.GuildsHandler))).Methods("GET")
	apiCreate.Handle("/guilds/{guild_id}", api.Middleware(http.HandlerFunc(g.GuildByIDHandler))).Methods("GET")
	apiCreate.Handle("/guilds/{guild_id}/config", api.Middleware(http.HandlerFunc(g.GuildConfigHandler))).Methods("GET")
	apiCreate.Handle("/guilds/{guild_id}/config", api.Middleware(http.HandlerFunc(g.UpdateGuildConfigHandler))).Methods("PATCH")
	apiCreate.Handle("/guilds/{guild_id}/activate", api.Middleware(http.HandlerFunc(g.ActivateHandler))).Methods("POST")
	apiCreate.Handle("/guilds/{guild_id}/deactivate", api.Middleware(http.HandlerFunc(g.DeactivateHandler))).Methods("POST")
	apiCreate.Handle("/guilds/{guild_id}/branding/upload-signature", api.Middleware(http.HandlerFunc(branding.UploadSignatureHandler))).Methods("POST")

	apiCreate.Handle("/premium/checkout", api.Middleware(http.HandlerFunc(billing.CheckoutHandler))).Methods("POST")
	apiCreate.Handle("/premium/verify", api.Middleware(http.HandlerFunc(billing.VerifyHandler))).Methods("POST")

	apiCreate.Handle("/bot/guild-status", api.BotAuth(http.HandlerFunc(bot.GuildStatusHandler))).Methods("POST")

	apiCreate.Handle("/admin/redeem-codes", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.CreateRedeemCodesHandler)))).Methods("POST")
	apiCreate.Handle("/admin/redeem-codes", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.ListRedeemCodesHandler)))).Methods("GET")
	apiCreate.Handle("/admin/redeem-codes/{id}", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.DeleteRedeemCodeHandler)))).Methods("DELETE")
	apiCreate.Handle("/admin/users/{id}/entitlement", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.OverrideUserEntitlementHandler)))).Methods("POST")
	apiCreate.Handle("/admin/guilds/{id}/entitlement", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.OverrideGuildEntitlementHandler)))).Methods("POST")
	apiCreate.Handle("/admin/users", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.ListUsersHandler)))).Methods("GET")
	apiCreate.Handle("/admin/guilds", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.ListGuildsHandler)))).Methods("GET")
	apiCreate.Handle("/admin/stats", api.Middleware(api.AdminOnly(http.HandlerFunc(admin.StatsHandler)))).Methods("GET")

	r.Handle("/ws/notifications", api.Middleware(http.HandlerFunc(hub.ServeWS))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("dashboard-api has connected to the database")

	// initialize stripe
	if a.Config.StripeSecretKey == "" {
		return fmt.Errorf("stripe secret key is not set")
	}
	stripe.Key = a.Config.StripeSecretKey

	// initialize api router
	a.initializeRoutes()

	// start the premium expiry scheduler
	a.scheduler = scheduler.NewScheduler(
		databases.NewGuildDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
		databases.NewSchedulerLockDatabase(a.dbHelper),
		a.Config.SendgridAPIKey,
	)
	a.scheduler.Start()

	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
