package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/channel-pass-bot/internal/bot"
	"github.com/Spok95/channel-pass-bot/internal/config"
	"github.com/Spok95/channel-pass-bot/internal/domain/grants"
	"github.com/Spok95/channel-pass-bot/internal/domain/plans"
	"github.com/Spok95/channel-pass-bot/internal/domain/subscribers"
	"github.com/Spok95/channel-pass-bot/internal/entitlement"
	"github.com/Spok95/channel-pass-bot/internal/infra/db"
	httpx "github.com/Spok95/channel-pass-bot/internal/infra/http"
	"github.com/Spok95/channel-pass-bot/internal/infra/logger"
	"github.com/Spok95/channel-pass-bot/internal/infra/payments"
	"github.com/Spok95/channel-pass-bot/internal/infra/telegram"
)

type stores struct {
	plans  plans.Store
	grants grants.Store
	subs   subscribers.Store
	close  func()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, error) {
	if cfg.Storage.Driver == "postgres" {
		if err := db.Migrate(cfg.Postgres.DSN); err != nil {
			return stores{}, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")

		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return stores{}, err
		}
		log.Info("db connected")
		return stores{
			plans:  plans.NewRepo(pool),
			grants: grants.NewRepo(pool),
			subs:   subscribers.NewRepo(pool),
			close:  pool.Close,
		}, nil
	}

	dir := cfg.Storage.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stores{}, err
	}
	log.Info("file storage", "dir", dir)
	return stores{
		plans:  plans.NewFileRepo(filepath.Join(dir, "data.json")),
		grants: grants.NewFileRepo(filepath.Join(dir, "grants.json")),
		subs:   subscribers.NewFileRepo(filepath.Join(dir, "subscriber.json")),
		close:  func() {},
	}, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	path := os.Getenv("APP_CONFIG")
	if path == "" {
		path = "config/example.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env, cfg.Telegram.Token, cfg.Payments.SecretKey, cfg.Payments.WebhookSecret)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("graceful shutdown complete")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// клиент дольше long polling, иначе getUpdates обрывается по таймауту
	tgClient := &http.Client{Timeout: time.Duration(cfg.Telegram.PollTimeout+30) * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, tgClient)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	log.Info("telegram authorized", "bot", api.Self.UserName)

	grantSvc := entitlement.New(log, st.grants, st.subs, telegram.NewMessenger(api), entitlement.Options{
		ChannelID:    cfg.Telegram.ChannelID,
		AdminChatID:  cfg.Telegram.AdminChatID,
		MaxAttempts:  cfg.Grants.MaxAttempts,
		Retries:      cfg.Grants.Retries,
		Backoff:      cfg.Grants.Backoff,
		ScanInterval: cfg.Grants.ScanInterval,
	})
	gateway := payments.NewGateway(payments.GatewayOptions{
		SecretKey:     cfg.Payments.SecretKey,
		WebhookSecret: cfg.Payments.WebhookSecret,
		Currency:      cfg.Payments.Currency,
		ProductName:   cfg.Payments.ProductName,
		PublicURL:     cfg.PublicURL(),
	})
	plansSvc := plans.NewService(st.plans, cfg.Telegram.AdminChatID)
	b := bot.New(api, log, plansSvc, grantSvc,
		payments.NewService(cfg.PublicURL()), gateway, cfg.Payments.DirectLink)

	routes := httpx.Routes{
		Pay:     payments.NewPayHandler(log, gateway),
		Webhook: payments.NewWebhookHandler(log, gateway, grantSvc),
	}

	var updates <-chan tgbotapi.Update
	if cfg.Telegram.Mode == "webhook" {
		hookPath := "/bot" + cfg.Telegram.Token
		wh, err := tgbotapi.NewWebhook(cfg.PublicURL() + hookPath)
		if err != nil {
			return fmt.Errorf("telegram webhook: %w", err)
		}
		if _, err := api.Request(wh); err != nil {
			return fmt.Errorf("telegram set webhook: %w", err)
		}
		hook := bot.NewWebhookUpdates(api, 100)
		routes.TelegramPath, routes.Telegram = hookPath, hook
		updates = hook.Updates()
		log.Info("telegram webhook mode")
	} else {
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("delete webhook failed", "err", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Telegram.PollTimeout
		updates = api.GetUpdatesChan(u)
		defer api.StopReceivingUpdates()
		log.Info("telegram polling mode")
	}

	srv := httpx.New(cfg.ListenAddr(), cfg.Metrics.Enabled, routes)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server started", "addr", cfg.ListenAddr())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return ignoreCanceled(grantSvc.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(b.Run(gctx, updates))
	})
	return g.Wait()
}
