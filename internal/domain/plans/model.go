package plans

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("plans: not found")
	ErrExists       = errors.New("plans: name already taken")
	ErrInvalidName  = errors.New("plans: invalid name")
	ErrInvalidPrice = errors.New("plans: invalid price")
	ErrUnauthorized = errors.New("plans: caller is not admin")
)

// Plan тариф, который видит пользователь в /subscribe.
// Price в целых рублях, без копеек. Пустой ID не бывает валидным.
type Plan struct {
	ID    string `json:"priceId"` // ключ из data.json прежнего деплоя
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Label подпись кнопки: "<name> — <price>₽".
func (p Plan) Label() string {
	return fmt.Sprintf("%s — %d₽", p.Name, p.Price)
}
