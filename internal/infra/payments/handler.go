package payments

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v81"

	"github.com/Spok95/channel-pass-bot/internal/domain/grants"
	"github.com/Spok95/channel-pass-bot/internal/domain/plans"
	"github.com/Spok95/channel-pass-bot/internal/infra/metrics"
)

const maxWebhookBodyBytes = int64(65536)

type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, price int64, userID string) (*Checkout, error)
}

type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error)
}

// Confirmer ставит выдачу доступа в очередь; created=false: сессия уже обработана.
type Confirmer interface {
	Confirm(ctx context.Context, g grants.Grant) (created bool, err error)
}

// PayHandler GET /pay?price=<n>&user=<id> -> 302 в Stripe Checkout.
type PayHandler struct {
	log      *slog.Logger
	checkout CheckoutCreator
}

func NewPayHandler(log *slog.Logger, checkout CheckoutCreator) *PayHandler {
	return &PayHandler{log: log, checkout: checkout}
}

func (h *PayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	price, err := plans.ParsePrice(r.URL.Query().Get("price"))
	if err != nil {
		http.Error(w, "invalid price parameter", http.StatusBadRequest)
		return
	}
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		http.Error(w, "missing user parameter", http.StatusBadRequest)
		return
	}

	co, err := h.checkout.CreateCheckout(r.Context(), price, user)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("error").Inc()
		h.log.Error("checkout session failed", "price", price, "user", user, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	h.log.Info("checkout session created", "session_id", co.ID, "price", price, "user", user)
	http.Redirect(w, r, co.URL, http.StatusFound)
}

// WebhookHandler POST /stripe/webhook.
type WebhookHandler struct {
	log      *slog.Logger
	verifier EventVerifier
	grants   Confirmer
}

func NewWebhookHandler(log *slog.Logger, verifier EventVerifier, confirmer Confirmer) *WebhookHandler {
	return &WebhookHandler{log: log, verifier: verifier, grants: confirmer}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn("stripe webhook: read body failed", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		h.log.Warn("stripe webhook: rejected", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	log := h.log.With("event_id", event.ID, "type", string(event.Type))
	log.Info("stripe webhook received")

	if event.Type != EventCheckoutCompleted {
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "ignored").Inc()
		writeReceived(w)
		return
	}

	result, err := h.handleCompleted(r.Context(), log, event)
	metrics.WebhookEvents.WithLabelValues(string(event.Type), result).Inc()
	if err != nil {
		// выдача не записана, пусть Stripe пришлёт событие ещё раз
		log.Error("stripe webhook: enqueue grant failed", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeReceived(w)
}

func (h *WebhookHandler) handleCompleted(ctx context.Context, log *slog.Logger, event *stripeapi.Event) (string, error) {
	if event.Data == nil {
		log.Error("stripe webhook: completion event without data")
		return "error", nil
	}
	var sess stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		// повтор не поможет: тело подписано и останется таким же
		log.Error("stripe webhook: decode checkout session", "err", err)
		return "error", nil
	}
	user := strings.TrimSpace(sess.Metadata["user"])
	if sess.ID == "" || user == "" {
		log.Warn("stripe webhook: checkout session without user metadata", "session_id", sess.ID)
		return "error", nil
	}
	log = log.With("session_id", sess.ID, "user", user)

	created, err := h.grants.Confirm(ctx, grants.Grant{
		SessionID: sess.ID,
		EventID:   event.ID,
		UserID:    user,
		Amount:    sess.AmountTotal,
		Currency:  string(sess.Currency),
	})
	if err != nil {
		return "error", err
	}
	if !created {
		log.Info("stripe webhook: session already handled")
		return "duplicate", nil
	}
	log.Info("stripe webhook: grant enqueued")
	return "accepted", nil
}

func writeReceived(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
