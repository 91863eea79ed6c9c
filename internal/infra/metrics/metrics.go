package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents result: invalid_signature | ignored | accepted | duplicate | error
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_webhook_events_total",
		Help: "Stripe webhook deliveries by event type and outcome.",
	}, []string{"type", "result"})

	// CheckoutSessions result: created | error
	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_checkout_sessions_total",
		Help: "Checkout sessions requested from Stripe.",
	}, []string{"result"})

	// Grants result: delivered | retry | failed
	Grants = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_grants_total",
		Help: "Channel access grant attempts by outcome.",
	}, []string{"result"})

	BotUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_bot_updates_total",
		Help: "Telegram updates handled, by kind.",
	}, []string{"kind"})
)
