// Package telegram обёртка над Bot API для выдачи доступа в канал.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrBadRecipient = errors.New("telegram: recipient is not a chat id")

// API то, что нам нужно от *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Messenger struct {
	api API
}

func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

// ChatConfig "-100123" -> ChatID, "@name" -> SuperGroupUsername.
func ChatConfig(chat string) tgbotapi.ChatConfig {
	chat = strings.TrimSpace(chat)
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return tgbotapi.ChatConfig{ChatID: id}
	}
	return tgbotapi.ChatConfig{SuperGroupUsername: chat}
}

// CreateInviteLink одноразовая ссылка-приглашение (member_limit = 1).
func (m *Messenger) CreateInviteLink(ctx context.Context, channel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := m.api.Request(tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  ChatConfig(channel),
		MemberLimit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return "", errors.New("create invite link: empty link in response")
	}
	return link.InviteLink, nil
}

// SendText отправка сообщения пользователю; userID это строковый chat id.
func (m *Messenger) SendText(ctx context.Context, userID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadRecipient, userID)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// IsPermanent ошибки, которые повтором не лечатся:
// бот заблокирован (403), чат не найден (400), кривой id получателя.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrBadRecipient) {
		return true
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == http.StatusForbidden || tgErr.Code == http.StatusBadRequest
	}
	return false
}
