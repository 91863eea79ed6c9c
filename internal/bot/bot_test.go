package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/channel-pass-bot/internal/domain/grants"
	"github.com/Spok95/channel-pass-bot/internal/domain/plans"
	"github.com/Spok95/channel-pass-bot/internal/domain/subscribers"
	"github.com/Spok95/channel-pass-bot/internal/infra/payments"
)

const (
	adminChat = int64(777)
	userChat  = int64(42)
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1].Text
}

type fakeEntitlements struct {
	retried int
	subs    []subscribers.Subscriber
	grants  []grants.Grant
}

func (f *fakeEntitlements) RetryFailed(context.Context) (int, error) { return f.retried, nil }
func (f *fakeEntitlements) Grants(context.Context) ([]grants.Grant, error) {
	return f.grants, nil
}
func (f *fakeEntitlements) Subscribers(context.Context) ([]subscribers.Subscriber, error) {
	return f.subs, nil
}

type stubCheckout struct{ err error }

func (s stubCheckout) CreateCheckout(context.Context, int64, string) (*payments.Checkout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &payments.Checkout{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

type fixture struct {
	bot   *Bot
	api   *fakeAPI
	ents  *fakeEntitlements
	plans *plans.FileRepo
}

func newFixture(t *testing.T, directLink bool, checkout payments.CheckoutCreator) *fixture {
	t.Helper()
	repo := plans.NewFileRepo(filepath.Join(t.TempDir(), "data.json"))
	f := &fixture{api: &fakeAPI{}, ents: &fakeEntitlements{}, plans: repo}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.bot = New(f.api, log, plans.NewService(repo, adminChat), f.ents,
		payments.NewService("https://example.org"), checkout, directLink)
	return f
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: chatID},
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func (f *fixture) do(upd tgbotapi.Update) {
	f.bot.HandleUpdate(context.Background(), upd)
}

func TestStart(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	f.do(command(userChat, "/start"))
	assert.Equal(t, "Добро пожаловать!\nИспользуй /subscribe", f.api.lastText(t))
}

func TestSubscribeWithoutPlans(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	f.do(command(userChat, "/subscribe"))
	assert.Equal(t, "Тарифов нет", f.api.lastText(t))
}

func TestAddPlanThenSubscribe(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})

	f.do(command(adminChat, "/addplan Gold 500"))
	assert.Equal(t, "Тариф добавлен", f.api.lastText(t))

	f.do(command(userChat, "/subscribe"))
	msgs := f.api.messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, userChat, last.ChatID)
	kb, ok := last.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	btn := kb.InlineKeyboard[0][0]
	assert.Equal(t, "Gold — 500₽", btn.Text)

	list, err := f.plans.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "buy:"+list[0].ID, *btn.CallbackData)
}

func TestAddPlanValidationMessages(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})

	f.do(command(adminChat, "/addplan Gold abc"))
	assert.Equal(t, "Формат: /addplan name price", f.api.lastText(t))
	f.do(command(adminChat, "/addplan"))
	assert.Equal(t, "Формат: /addplan name price", f.api.lastText(t))

	f.do(command(adminChat, "/addplan Gold 500"))
	f.do(command(adminChat, "/addplan Gold 700"))
	assert.Equal(t, "Тариф с таким названием уже есть", f.api.lastText(t))

	list, err := f.plans.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(500), list[0].Price)
}

func TestNonAdminGetsNoReply(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})

	for _, text := range []string{"/addplan X 1", "/setprice X 2", "/admin", "/retry", "/subscribers"} {
		f.do(command(userChat, text))
	}
	assert.Empty(t, f.api.sent)

	list, err := f.plans.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSetPrice(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	f.do(command(adminChat, "/addplan Silver 300"))

	f.do(command(adminChat, "/setprice Gold 600"))
	assert.Equal(t, "Тариф не найден", f.api.lastText(t))

	f.do(command(adminChat, "/setprice Silver abc"))
	assert.Equal(t, "Неверная цена", f.api.lastText(t))

	list, err := f.plans.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(300), list[0].Price)

	f.do(command(adminChat, "/setprice Silver 350"))
	assert.Equal(t, "Цена обновлена", f.api.lastText(t))
	list, err = f.plans.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(350), list[0].Price)
}

func TestAdminHelp(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	f.do(command(adminChat, "/admin"))
	assert.Contains(t, f.api.lastText(t), "/addplan <name> <price>")
	assert.Contains(t, f.api.lastText(t), "/setprice <name> <newPrice>")
}

func TestBuyCallback(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	f.do(command(adminChat, "/addplan Gold 500"))
	list, err := f.plans.List(context.Background())
	require.NoError(t, err)

	f.do(callback(userChat, "buy:"+list[0].ID))
	assert.Equal(t, "📦 Gold\n💰 500₽\n\n👉 Оплатить:\nhttps://example.org/pay?price=500&user=42", f.api.lastText(t))
	require.Len(t, f.api.requests, 1)
	_, ok := f.api.requests[0].(tgbotapi.CallbackConfig)
	assert.True(t, ok)

	f.do(callback(userChat, "buy:missing"))
	assert.Equal(t, "Тариф не найден", f.api.lastText(t))

	f.do(callback(userChat, "buy:"))
	assert.Equal(t, "Тариф не найден", f.api.lastText(t))
}

func TestBuyCallbackDirectLink(t *testing.T) {
	f := newFixture(t, true, stubCheckout{})
	f.do(command(adminChat, "/addplan Gold 500"))
	list, err := f.plans.List(context.Background())
	require.NoError(t, err)

	f.do(callback(userChat, "buy:"+list[0].ID))
	assert.True(t, strings.HasSuffix(f.api.lastText(t), "https://checkout.stripe.com/c/pay/cs_1"))
}

func TestBuyCallbackCheckoutError(t *testing.T) {
	f := newFixture(t, true, stubCheckout{err: errors.New("stripe down")})
	f.do(command(adminChat, "/addplan Gold 500"))
	list, err := f.plans.List(context.Background())
	require.NoError(t, err)

	f.do(callback(userChat, "buy:"+list[0].ID))
	assert.Equal(t, "Не удалось создать оплату, попробуйте позже", f.api.lastText(t))
}

func TestRetryCommand(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})

	f.do(command(adminChat, "/retry"))
	assert.Equal(t, "Неудавшихся выдач нет", f.api.lastText(t))

	f.ents.retried = 2
	f.do(command(adminChat, "/retry"))
	assert.Equal(t, "Возвращено в очередь: 2", f.api.lastText(t))
}

func TestSubscribersExport(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	now := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	f.ents.subs = []subscribers.Subscriber{{UserID: "42", SessionID: "cs_1", GrantedAt: now}}
	f.ents.grants = []grants.Grant{
		{SessionID: "cs_1", UserID: "42", Status: grants.StatusDelivered, Amount: 50000, Currency: "rub", CreatedAt: now, UpdatedAt: now},
		{SessionID: "cs_2", UserID: "43", Status: grants.StatusFailed, Attempts: 5, LastError: "Forbidden", CreatedAt: now, UpdatedAt: now},
	}

	f.do(command(adminChat, "/subscribers"))
	require.Len(t, f.api.sent, 1)
	doc, ok := f.api.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, adminChat, doc.ChatID)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)

	x, err := excelize.OpenReader(bytes.NewReader(file.Bytes))
	require.NoError(t, err)
	defer func() { _ = x.Close() }()

	rows, err := x.GetRows(sheetSubscribers)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"42", "cs_1", "02.01.2026 03:04"}, rows[1])

	rows, err = x.GetRows(sheetGrants)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "cs_2", rows[2][0])
	assert.Equal(t, "failed", rows[2][2])
	assert.Equal(t, "Forbidden", rows[2][6])
}

func TestRunHandlesUpdatesUntilChannelClosed(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	updates := make(chan tgbotapi.Update, 3)
	updates <- command(userChat, "/start")
	updates <- command(userChat+1, "/start")
	updates <- tgbotapi.Update{}
	close(updates)

	require.NoError(t, f.bot.Run(context.Background(), updates))
	assert.Len(t, f.api.messages(), 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, false, stubCheckout{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.bot.Run(ctx, make(chan tgbotapi.Update)), context.Canceled)
}

type decoderFunc func(r *http.Request) (*tgbotapi.Update, error)

func (d decoderFunc) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) { return d(r) }

func TestWebhookUpdates(t *testing.T) {
	h := NewWebhookUpdates(decoderFunc(func(r *http.Request) (*tgbotapi.Update, error) {
		if r.Method != http.MethodPost {
			return nil, errors.New("wrong method")
		}
		return &tgbotapi.Update{UpdateID: 7}, nil
	}), 1)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/botTOKEN", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, rec.Code)
	upd := <-h.Updates()
	assert.Equal(t, 7, upd.UpdateID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/botTOKEN", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
