package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	result   string
	err      error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	if f.err != nil {
		return nil, f.err
	}
	return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage(f.result)}, nil
}

func TestChatConfig(t *testing.T) {
	assert.Equal(t, tgbotapi.ChatConfig{ChatID: -100123}, ChatConfig("-100123"))
	assert.Equal(t, tgbotapi.ChatConfig{SuperGroupUsername: "@club"}, ChatConfig(" @club "))
}

func TestCreateInviteLink(t *testing.T) {
	api := &fakeAPI{result: `{"invite_link":"https://t.me/+abc","member_limit":1}`}
	m := NewMessenger(api)

	link, err := m.CreateInviteLink(context.Background(), "-100123")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+abc", link)

	require.Len(t, api.requests, 1)
	cfg, ok := api.requests[0].(tgbotapi.CreateChatInviteLinkConfig)
	require.True(t, ok)
	assert.Equal(t, 1, cfg.MemberLimit)
	assert.Equal(t, int64(-100123), cfg.ChatID)
}

func TestCreateInviteLinkEmpty(t *testing.T) {
	m := NewMessenger(&fakeAPI{result: `{}`})
	_, err := m.CreateInviteLink(context.Background(), "@club")
	assert.Error(t, err)
}

func TestSendText(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)

	require.NoError(t, m.SendText(context.Background(), "42", "hi"))
	require.Len(t, api.sent, 1)
	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hi", msg.Text)

	err := m.SendText(context.Background(), "not-a-number", "hi")
	assert.ErrorIs(t, err, ErrBadRecipient)
	assert.True(t, IsPermanent(err))
}

func TestIsPermanent(t *testing.T) {
	blocked := fmt.Errorf("send: %w", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"})
	assert.True(t, IsPermanent(blocked))
	assert.False(t, IsPermanent(&tgbotapi.Error{Code: 429, Message: "Too Many Requests"}))
	assert.False(t, IsPermanent(errors.New("connection reset")))
}
