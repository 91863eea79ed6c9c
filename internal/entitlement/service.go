// Package entitlement выдаёт доступ в канал после подтверждённой оплаты.
//
// Вебхук только ставит выдачу в очередь (grants, ключ: id checkout-сессии),
// доставку делает воркер: ссылка-приглашение -> сообщение пользователю ->
// запись в subscribers. Каждый шаг сохраняется, поэтому повтор продолжает
// с того же места и не выпускает вторую ссылку.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Spok95/channel-pass-bot/internal/domain/grants"
	"github.com/Spok95/channel-pass-bot/internal/domain/subscribers"
	"github.com/Spok95/channel-pass-bot/internal/infra/metrics"
	"github.com/Spok95/channel-pass-bot/internal/infra/telegram"
)

type Messenger interface {
	CreateInviteLink(ctx context.Context, channel string) (string, error)
	SendText(ctx context.Context, userID, text string) error
}

type Options struct {
	ChannelID   string
	AdminChatID int64
	// MaxAttempts после стольких неудачных проходов выдача становится failed.
	MaxAttempts int
	// Retries и Backoff: повторы внутри одного прохода.
	Retries      uint64
	Backoff      time.Duration
	ScanInterval time.Duration
}

type Service struct {
	log    *slog.Logger
	grants grants.Store
	subs   subscribers.Store
	msg    Messenger
	opts   Options
	locks  *LockManager
	kick   chan string
	now    func() time.Time
}

func New(log *slog.Logger, grantStore grants.Store, subStore subscribers.Store, msg Messenger, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = time.Minute
	}
	return &Service{
		log:    log,
		grants: grantStore,
		subs:   subStore,
		msg:    msg,
		opts:   opts,
		locks:  NewLockManager(),
		kick:   make(chan string, 64),
		now:    time.Now,
	}
}

func InviteText(link string) string {
	return fmt.Sprintf("✅ Оплата прошла!\n\n🔗 Одноразовая ссылка:\n%s\n\n⚠️ Работает 1 раз", link)
}

// Confirm записывает выдачу по оплаченной сессии. Повторный вызов с той же
// сессией ничего не делает и возвращает created=false.
func (s *Service) Confirm(ctx context.Context, g grants.Grant) (bool, error) {
	g.Status = grants.StatusPending
	created, err := s.grants.Enqueue(ctx, g)
	if err != nil {
		return false, fmt.Errorf("entitlement: enqueue %s: %w", g.SessionID, err)
	}
	if created {
		s.signal(g.SessionID)
	}
	return created, nil
}

func (s *Service) signal(sessionID string) {
	select {
	case s.kick <- sessionID:
	default:
		// очередь сигналов полна, подберём на следующем сканировании
	}
}

// Run воркер: обрабатывает новые выдачи по сигналу и все pending по таймеру.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.ScanInterval)
	defer ticker.Stop()

	s.ProcessPending(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-s.kick:
			if err := s.Process(ctx, id); err != nil {
				s.log.Warn("grant not delivered yet", "session_id", id, "err", err)
			}
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

// ProcessPending проходит по всем pending-выдачам. Возвращает число доставленных.
func (s *Service) ProcessPending(ctx context.Context) int {
	pending, err := s.grants.ListByStatus(ctx, grants.StatusPending)
	if err != nil {
		s.log.Error("list pending grants failed", "err", err)
		return 0
	}
	delivered := 0
	for _, g := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := s.Process(ctx, g.SessionID); err != nil {
			s.log.Warn("grant not delivered yet", "session_id", g.SessionID, "err", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Process один проход доставки выдачи. Для уже доставленных и failed ничего не делает.
func (s *Service) Process(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	g, err := s.grants.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load grant: %w", err)
	}
	if g.Status != grants.StatusPending {
		return nil
	}
	log := s.log.With("session_id", g.SessionID, "user", g.UserID)

	backoff := retry.WithMaxRetries(s.opts.Retries, retry.NewExponential(s.opts.Backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.deliver(ctx, g)
	})
	if err == nil {
		metrics.Grants.WithLabelValues("delivered").Inc()
		log.Info("access granted")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	g.Attempts++
	g.LastError = err.Error()
	permanent := telegram.IsPermanent(err)
	if permanent || g.Attempts >= s.opts.MaxAttempts {
		g.Status = grants.StatusFailed
	}
	if saveErr := s.grants.Save(ctx, *g); saveErr != nil {
		log.Error("save grant failed", "err", saveErr)
	}

	if g.Status == grants.StatusFailed {
		metrics.Grants.WithLabelValues("failed").Inc()
		log.Error("grant failed", "attempts", g.Attempts, "permanent", permanent, "err", err)
		s.notifyAdmin(ctx, g)
	} else {
		metrics.Grants.WithLabelValues("retry").Inc()
		log.Warn("grant attempt failed", "attempts", g.Attempts, "err", err)
	}
	return err
}

// deliver шаги выдачи; каждый шаг фиксируется в g и в хранилище.
func (s *Service) deliver(ctx context.Context, g *grants.Grant) error {
	if g.InviteLink == "" {
		link, err := s.msg.CreateInviteLink(ctx, s.opts.ChannelID)
		if err != nil {
			return classify(err)
		}
		g.InviteLink = link
		if err := s.grants.Save(ctx, *g); err != nil {
			return retry.RetryableError(fmt.Errorf("save invite link: %w", err))
		}
	}

	if !g.Notified {
		if err := s.msg.SendText(ctx, g.UserID, InviteText(g.InviteLink)); err != nil {
			return classify(err)
		}
		g.Notified = true
		if err := s.grants.Save(ctx, *g); err != nil {
			return retry.RetryableError(fmt.Errorf("save notified: %w", err))
		}
	}

	if _, err := s.subs.Append(ctx, subscribers.Subscriber{
		UserID:    g.UserID,
		SessionID: g.SessionID,
		GrantedAt: s.now().UTC(),
	}); err != nil {
		return retry.RetryableError(fmt.Errorf("append subscriber: %w", err))
	}

	g.Status = grants.StatusDelivered
	g.InviteLink = ""
	g.LastError = ""
	if err := s.grants.Save(ctx, *g); err != nil {
		g.Status = grants.StatusPending
		return retry.RetryableError(fmt.Errorf("save delivered: %w", err))
	}
	return nil
}

func classify(err error) error {
	if telegram.IsPermanent(err) {
		return err
	}
	return retry.RetryableError(err)
}

func (s *Service) notifyAdmin(ctx context.Context, g *grants.Grant) {
	if s.opts.AdminChatID == 0 {
		return
	}
	text := fmt.Sprintf("⚠️ Не удалось выдать доступ\nСессия: %s\nПользователь: %s\nПопыток: %d\nОшибка: %s\n\nПовторить: /retry",
		g.SessionID, g.UserID, g.Attempts, g.LastError)
	if err := s.msg.SendText(ctx, strconv.FormatInt(s.opts.AdminChatID, 10), text); err != nil {
		s.log.Error("notify admin failed", "err", err)
	}
}

// RetryFailed возвращает failed-выдачи в очередь (/retry у админа).
func (s *Service) RetryFailed(ctx context.Context) (int, error) {
	failed, err := s.grants.ListByStatus(ctx, grants.StatusFailed)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, g := range failed {
		unlock := s.locks.Lock(g.SessionID)
		g.Status = grants.StatusPending
		g.Attempts = 0
		err := s.grants.Save(ctx, g)
		unlock()
		if err != nil {
			return n, fmt.Errorf("requeue %s: %w", g.SessionID, err)
		}
		s.signal(g.SessionID)
		n++
	}
	return n, nil
}

func (s *Service) Grants(ctx context.Context) ([]grants.Grant, error) {
	return s.grants.List(ctx)
}

func (s *Service) Subscribers(ctx context.Context) ([]subscribers.Subscriber, error) {
	return s.subs.List(ctx)
}
