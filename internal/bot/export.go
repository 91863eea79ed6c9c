package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/channel-pass-bot/internal/domain/grants"
	"github.com/Spok95/channel-pass-bot/internal/domain/subscribers"
)

const (
	sheetSubscribers = "Подписчики"
	sheetGrants      = "Выдачи"
)

func (b *Bot) sendExport(ctx context.Context, chatID int64) error {
	subs, err := b.grants.Subscribers(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	gs, err := b.grants.Grants(ctx)
	if err != nil {
		return fmt.Errorf("list grants: %w", err)
	}
	data, err := buildExport(subs, gs)
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("subscribers_%s.xlsx", time.Now().Format("20060102")),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("Подписчиков: %d, выдач: %d", len(subs), len(gs))
	b.send(doc)
	return nil
}

// buildExport два листа: журнал подписчиков и очередь выдач.
func buildExport(subs []subscribers.Subscriber, gs []grants.Grant) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetSubscribers); err != nil {
		return nil, err
	}
	_ = f.SetSheetRow(sheetSubscribers, "A1", &[]any{"user_id", "session_id", "Дата"})
	for i, s := range subs {
		cell := fmt.Sprintf("A%d", i+2)
		_ = f.SetSheetRow(sheetSubscribers, cell, &[]any{s.UserID, s.SessionID, s.GrantedAt.Format("02.01.2006 15:04")})
	}

	if _, err := f.NewSheet(sheetGrants); err != nil {
		return nil, err
	}
	_ = f.SetSheetRow(sheetGrants, "A1", &[]any{
		"session_id", "user_id", "Статус", "Попыток", "Сумма", "Валюта", "Ошибка", "Создана", "Обновлена",
	})
	for i, g := range gs {
		cell := fmt.Sprintf("A%d", i+2)
		_ = f.SetSheetRow(sheetGrants, cell, &[]any{
			g.SessionID, g.UserID, string(g.Status), g.Attempts,
			float64(g.Amount) / 100, g.Currency, g.LastError,
			g.CreatedAt.Format("02.01.2006 15:04"), g.UpdatedAt.Format("02.01.2006 15:04"),
		})
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
