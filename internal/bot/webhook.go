package bot

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateDecoder *tgbotapi.BotAPI.HandleUpdate.
type UpdateDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// WebhookUpdates принимает апдейты Telegram по HTTP (режим webhook) и
// отдаёт их в канал, который читает Run.
type WebhookUpdates struct {
	dec     UpdateDecoder
	updates chan tgbotapi.Update
}

func NewWebhookUpdates(dec UpdateDecoder, buffer int) *WebhookUpdates {
	return &WebhookUpdates{dec: dec, updates: make(chan tgbotapi.Update, buffer)}
}

func (h *WebhookUpdates) Updates() <-chan tgbotapi.Update {
	return h.updates
}

func (h *WebhookUpdates) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upd, err := h.dec.HandleUpdate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	select {
	case h.updates <- *upd:
		w.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		// Telegram повторит апдейт сам
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}
