package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
)

const EventCheckoutCompleted = stripeapi.EventTypeCheckoutSessionCompleted

var (
	ErrInvalidSignature = errors.New("payments: webhook signature verification failed")
	ErrInvalidAmount    = errors.New("payments: amount must be positive")
	ErrMissingUser      = errors.New("payments: user is required")
)

type GatewayOptions struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	ProductName   string
	// PublicURL база для success/cancel ссылок.
	PublicURL string
	// Backends переопределяет HTTP-бэкенды Stripe (тесты, прокси). nil: боевые.
	Backends *stripeapi.Backends
}

// Checkout созданная сессия оплаты.
type Checkout struct {
	ID  string
	URL string
}

// Gateway Stripe Checkout: создание сессий и проверка подписи вебхуков.
type Gateway struct {
	sc            *stripeclient.API
	webhookSecret string
	currency      string
	productName   string
	successURL    string
	cancelURL     string
}

func NewGateway(o GatewayOptions) *Gateway {
	base := strings.TrimRight(o.PublicURL, "/")
	return &Gateway{
		sc:            stripeclient.New(o.SecretKey, o.Backends),
		webhookSecret: o.WebhookSecret,
		currency:      strings.ToLower(o.Currency),
		productName:   o.ProductName,
		successURL:    base + "/success",
		cancelURL:     base + "/cancel",
	}
}

// CreateCheckout одна позиция на price рублей (unit_amount в копейках),
// user уходит в metadata и вернётся в checkout.session.completed.
func (g *Gateway) CreateCheckout(ctx context.Context, price int64, userID string) (*Checkout, error) {
	if price <= 0 {
		return nil, ErrInvalidAmount
	}
	if userID == "" {
		return nil, ErrMissingUser
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode: stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency: stripeapi.String(g.currency),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String(g.productName),
					},
					UnitAmount: stripeapi.Int64(price * 100),
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		Metadata:   map[string]string{"user": userID},
		SuccessURL: stripeapi.String(g.successURL),
		CancelURL:  stripeapi.String(g.cancelURL),
	}
	params.Context = ctx

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("payments: create checkout session: %w", err)
	}
	return &Checkout{ID: sess.ID, URL: sess.URL}, nil
}

// VerifyEvent проверяет подпись Stripe-Signature по сырому телу запроса.
// Тело нельзя перекодировать до проверки, подпись считается по байтам.
func (g *Gateway) VerifyEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	event, err := stripewebhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &event, nil
}
