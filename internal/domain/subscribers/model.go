package subscribers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Subscriber запись о выданном доступе. Только добавляется.
type Subscriber struct {
	UserID    string
	SessionID string
	GrantedAt time.Time
}

// subscriberJSON формат subscriber.json: date в миллисекундах Unix,
// как писал прежний деплой. Старые записи без sessionId.
type subscriberJSON struct {
	UserID    string          `json:"userId"`
	SessionID string          `json:"sessionId,omitempty"`
	Date      json.RawMessage `json:"date,omitempty"`
}

func (s Subscriber) MarshalJSON() ([]byte, error) {
	out := subscriberJSON{UserID: s.UserID, SessionID: s.SessionID}
	if !s.GrantedAt.IsZero() {
		out.Date = json.RawMessage(fmt.Sprintf("%d", s.GrantedAt.UnixMilli()))
	}
	return json.Marshal(out)
}

// UnmarshalJSON date принимается числом (мс) или строкой RFC3339.
func (s *Subscriber) UnmarshalJSON(data []byte) error {
	var in subscriberJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	at, err := parseDate(in.Date)
	if err != nil {
		return fmt.Errorf("subscribers: date: %w", err)
	}
	*s = Subscriber{UserID: in.UserID, SessionID: in.SessionID, GrantedAt: at}
	return nil
}

func parseDate(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, str)
}

type Store interface {
	// Append добавляет запись; повтор по той же сессии игнорируется (added=false).
	Append(ctx context.Context, s Subscriber) (added bool, err error)
	List(ctx context.Context) ([]Subscriber, error)
}
