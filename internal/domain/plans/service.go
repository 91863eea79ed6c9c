package plans

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Service операции над тарифами. Изменения доступны только админу.
type Service struct {
	store   Store
	adminID int64
	newID   func() string
}

func NewService(store Store, adminID int64) *Service {
	return &Service{
		store:   store,
		adminID: adminID,
		newID:   uuid.NewString,
	}
}

func (s *Service) IsAdmin(callerID int64) bool {
	return s.adminID != 0 && callerID == s.adminID
}

// Authorize возвращает ErrUnauthorized для всех, кроме админа.
func (s *Service) Authorize(callerID int64) error {
	if !s.IsAdmin(callerID) {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Plan, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Plan, error) {
	return s.store.GetByID(ctx, id)
}

// Add /addplan <name> <price>
func (s *Service) Add(ctx context.Context, callerID int64, name, rawPrice string) (*Plan, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	price, err := ParsePrice(rawPrice)
	if err != nil {
		return nil, err
	}

	p := Plan{ID: s.newID(), Name: name, Price: price}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPrice /setprice <name> <price>
func (s *Service) SetPrice(ctx context.Context, callerID int64, name, rawPrice string) error {
	if err := s.Authorize(callerID); err != nil {
		return err
	}
	price, err := ParsePrice(rawPrice)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNotFound
	}
	return s.store.SetPrice(ctx, name, price)
}

// ParsePrice целое положительное число рублей.
func ParsePrice(raw string) (int64, error) {
	price, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}
	return price, nil
}
