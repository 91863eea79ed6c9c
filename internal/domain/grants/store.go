package grants

import "context"

type Store interface {
	// Enqueue создаёт pending-выдачу. created=false, если по сессии уже есть запись.
	Enqueue(ctx context.Context, g Grant) (created bool, err error)
	Get(ctx context.Context, sessionID string) (*Grant, error)
	Save(ctx context.Context, g Grant) error
	ListByStatus(ctx context.Context, status Status) ([]Grant, error)
	List(ctx context.Context) ([]Grant, error)
}
