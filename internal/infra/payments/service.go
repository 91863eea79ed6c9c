package payments

import (
	"fmt"
	"net/url"
	"strings"
)

type Service struct {
	baseURL string
}

func NewService(baseURL string) *Service {
	return &Service{baseURL: strings.TrimRight(baseURL, "/")}
}

// PaymentURL ссылка на наш /pay, которая редиректит в Stripe Checkout.
func (s *Service) PaymentURL(price int64, userID string) string {
	q := url.Values{}
	q.Set("price", fmt.Sprintf("%d", price))
	q.Set("user", userID)
	return s.baseURL + "/pay?" + q.Encode()
}
