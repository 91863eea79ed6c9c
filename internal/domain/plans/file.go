package plans

import (
	"context"

	"github.com/Spok95/channel-pass-bot/internal/infra/filestore"
)

// FileRepo хранит тарифы в JSON-файле (data.json).
type FileRepo struct {
	list *filestore.List[Plan]
}

func NewFileRepo(path string) *FileRepo {
	return &FileRepo{list: filestore.NewList[Plan](path)}
}

func (r *FileRepo) List(_ context.Context) ([]Plan, error) {
	return r.list.Load()
}

func (r *FileRepo) GetByID(_ context.Context, id string) (*Plan, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	items, err := r.list.Load()
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (r *FileRepo) Create(_ context.Context, p Plan) error {
	return r.list.Update(func(items []Plan) ([]Plan, error) {
		for _, it := range items {
			if it.Name == p.Name || it.ID == p.ID {
				return nil, ErrExists
			}
		}
		return append(items, p), nil
	})
}

func (r *FileRepo) SetPrice(_ context.Context, name string, price int64) error {
	return r.list.Update(func(items []Plan) ([]Plan, error) {
		for i := range items {
			if items[i].Name == name {
				items[i].Price = price
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
}
