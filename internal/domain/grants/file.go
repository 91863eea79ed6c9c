package grants

import (
	"context"
	"time"

	"github.com/Spok95/channel-pass-bot/internal/infra/filestore"
)

type FileRepo struct {
	list *filestore.List[Grant]
	now  func() time.Time
}

func NewFileRepo(path string) *FileRepo {
	return &FileRepo{list: filestore.NewList[Grant](path), now: time.Now}
}

func (r *FileRepo) Enqueue(_ context.Context, g Grant) (bool, error) {
	created := false
	err := r.list.Update(func(items []Grant) ([]Grant, error) {
		for _, it := range items {
			if it.SessionID == g.SessionID {
				return items, nil
			}
		}
		now := r.now().UTC()
		if g.Status == "" {
			g.Status = StatusPending
		}
		g.CreatedAt, g.UpdatedAt = now, now
		created = true
		return append(items, g), nil
	})
	return created, err
}

func (r *FileRepo) Get(_ context.Context, sessionID string) (*Grant, error) {
	items, err := r.list.Load()
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.SessionID == sessionID {
			return &it, nil
		}
	}
	return nil, ErrNotFound
}

func (r *FileRepo) Save(_ context.Context, g Grant) error {
	return r.list.Update(func(items []Grant) ([]Grant, error) {
		for i := range items {
			if items[i].SessionID == g.SessionID {
				g.CreatedAt = items[i].CreatedAt
				g.UpdatedAt = r.now().UTC()
				items[i] = g
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *FileRepo) ListByStatus(_ context.Context, status Status) ([]Grant, error) {
	items, err := r.list.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Grant, 0, len(items))
	for _, it := range items {
		if it.Status == status {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *FileRepo) List(_ context.Context) ([]Grant, error) {
	return r.list.Load()
}
