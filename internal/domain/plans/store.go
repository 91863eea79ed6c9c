package plans

import "context"

type Store interface {
	List(ctx context.Context) ([]Plan, error)
	GetByID(ctx context.Context, id string) (*Plan, error)
	Create(ctx context.Context, p Plan) error
	SetPrice(ctx context.Context, name string, price int64) error
}
