package grants

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("grants: not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Grant выдача доступа по одной оплаченной checkout-сессии.
// Ключ SessionID: одна сессия = одна выдача, сколько бы раз ни пришёл вебхук.
type Grant struct {
	SessionID string `json:"sessionId"`
	EventID   string `json:"eventId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"` // в копейках, как в Stripe
	Currency  string `json:"currency"`

	// InviteLink хранится только до доставки, чтобы повтор не выпускал вторую ссылку.
	InviteLink string `json:"inviteLink,omitempty"`
	Notified   bool   `json:"notified"`

	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
