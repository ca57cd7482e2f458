package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aurabot/dashboard-api/api"
	"github.com/aurabot/dashboard-api/audit"
	"github.com/aurabot/dashboard-api/config"
	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

// slotPlan describes a purchasable slot bundle
type slotPlan struct {
	Name          string
	Slots         int
	ExtensionDays int
	// UnitAmount is in cents
	UnitAmount int64
}

// slotPlans are the purchasable premium bundles
var slotPlans = map[string]slotPlan{
	"gold":    {Name: "Aura Gold (1 premium slot)", Slots: 1, ExtensionDays: 30, UnitAmount: 499},
	"diamond": {Name: "Aura Diamond (3 premium slots)", Slots: 3, ExtensionDays: 30, UnitAmount: 999},
}

// Billing handles Stripe checkout for premium slot purchases
type Billing struct {
	UDB     databases.UserDatabase
	Ledger  *premium.Ledger
	Audit   *audit.Logger
	Hub     *NotificationHub
	BaseURL string
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// CheckoutHandler creates a Stripe Checkout session for a slot bundle
func (b Billing) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())

	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	plan, ok := slotPlans[body.Plan]
	if !ok {
		config.ErrorStatus("unknown plan", http.StatusBadRequest, w, errors.New("plan must be gold or diamond"))
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(plan.Name),
					},
					UnitAmount: stripe.Int64(plan.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(b.BaseURL + "/premium/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(b.BaseURL + "/premium/cancel"),
		ClientReferenceID: stripe.String(actor.DiscordID),
	}
	params.AddMetadata("discordId", actor.DiscordID)
	params.AddMetadata("plan", body.Plan)

	s, err := session.New(params)
	if err != nil {
		config.ErrorStatus("failed to create checkout session", http.StatusInternalServerError, w, err)
		return
	}

	b.Audit.Log(r.Context(), audit.LevelInfo, "billing.checkout_created", actor.DiscordID, r, map[string]interface{}{
		"plan":      body.Plan,
		"sessionId": s.ID,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"sessionId": s.ID,
		"url":       s.URL,
	})
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

// VerifyHandler confirms a paid checkout session and grants the purchased
// slots. Each session grants at most once, repeated verify calls return the
// current balance.
func (b Billing) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())

	var body verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.SessionID == "" {
		config.ErrorStatus("sessionId is required", http.StatusBadRequest, w, errors.New("missing sessionId"))
		return
	}

	s, err := session.Get(body.SessionID, nil)
	if err != nil {
		config.ErrorStatus("failed to fetch checkout session", http.StatusBadRequest, w, err)
		return
	}
	if s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		config.ErrorStatus("checkout session is not paid", http.StatusBadRequest, w, errors.New("payment incomplete"))
		return
	}
	if s.ClientReferenceID != actor.DiscordID {
		config.ErrorStatus("checkout session belongs to another user", http.StatusForbidden, w, errAccessDenied)
		return
	}

	plan, ok := slotPlans[s.Metadata["plan"]]
	if !ok {
		config.ErrorStatus("checkout session has no known plan", http.StatusBadRequest, w, errors.New("unknown plan"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// the $ne guard makes this grant idempotent per session ID
	res, err := b.UDB.UpdateOne(ctx,
		bson.M{"discordId": actor.DiscordID, "billing.processedSessions": bson.M{"$ne": s.ID}},
		bson.M{"$addToSet": bson.M{"billing.processedSessions": s.ID}},
	)
	if err != nil {
		config.ErrorStatus("failed to record checkout session", http.StatusInternalServerError, w, err)
		return
	}

	if res.MatchedCount == 0 {
		// already granted, report the current balance
		ent, err := b.Ledger.Entitlement(ctx, actor.DiscordID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.EntitlementResponse{SlotCount: ent.SlotCount, ExpiresAt: ent.ExpiresAt})
		return
	}

	ent, err := b.Ledger.GrantSlots(ctx, actor.DiscordID, plan.Slots, plan.ExtensionDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	b.Audit.Log(r.Context(), audit.LevelInfo, "billing.slots_granted", actor.DiscordID, r, map[string]interface{}{
		"plan":      s.Metadata["plan"],
		"sessionId": s.ID,
		"slots":     plan.Slots,
	})
	b.Hub.Publish(actor.DiscordID, "entitlement_updated", map[string]interface{}{
		"slotCount": ent.SlotCount,
		"expiresAt": ent.ExpiresAt,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.EntitlementResponse{SlotCount: ent.SlotCount, ExpiresAt: ent.ExpiresAt})
}
