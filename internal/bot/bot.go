package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/Spok95/channel-pass-bot/internal/domain/grants"
	"github.com/Spok95/channel-pass-bot/internal/domain/plans"
	"github.com/Spok95/channel-pass-bot/internal/domain/subscribers"
	"github.com/Spok95/channel-pass-bot/internal/infra/metrics"
	"github.com/Spok95/channel-pass-bot/internal/infra/payments"
)

const maxParallelUpdates = 8

// API часть *tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Entitlements операции админа над выдачами доступа.
type Entitlements interface {
	RetryFailed(ctx context.Context) (int, error)
	Grants(ctx context.Context) ([]grants.Grant, error)
	Subscribers(ctx context.Context) ([]subscribers.Subscriber, error)
}

type PaymentLinks interface {
	PaymentURL(price int64, userID string) string
}

type Bot struct {
	api      API
	log      *slog.Logger
	plans    *plans.Service
	grants   Entitlements
	links    PaymentLinks
	checkout payments.CheckoutCreator
	// directLink: кнопка сразу отдаёт ссылку Stripe вместо нашего /pay
	directLink bool
}

func New(api API, log *slog.Logger,
	plansSvc *plans.Service, grantsSvc Entitlements,
	links PaymentLinks, checkout payments.CheckoutCreator, directLink bool) *Bot {

	return &Bot{
		api: api, log: log, plans: plansSvc, grants: grantsSvc,
		links: links, checkout: checkout, directLink: directLink,
	}
}

// Run читает апдейты (long polling или вебхук) до закрытия канала или отмены ctx.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	p := pool.New().WithMaxGoroutines(maxParallelUpdates)
	defer p.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			p.Go(func() { b.safeHandle(ctx, upd) })
		}
	}
}

func (b *Bot) safeHandle(ctx context.Context, upd tgbotapi.Update) {
	if r := panics.Try(func() { b.HandleUpdate(ctx, upd) }); r != nil {
		b.log.Error("update handler panicked", "update_id", upd.UpdateID, "err", r.AsError())
	}
}

// HandleUpdate обработка одного апдейта.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		metrics.BotUpdates.WithLabelValues("message").Inc()
		b.onMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		metrics.BotUpdates.WithLabelValues("callback").Inc()
		b.onCallback(ctx, upd.CallbackQuery)
	default:
		metrics.BotUpdates.WithLabelValues("other").Inc()
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !msg.IsCommand() {
		return
	}
	b.handleCommand(ctx, msg)
}
