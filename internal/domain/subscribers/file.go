package subscribers

import (
	"context"

	"github.com/Spok95/channel-pass-bot/internal/infra/filestore"
)

// FileRepo subscriber.json
type FileRepo struct {
	list *filestore.List[Subscriber]
}

func NewFileRepo(path string) *FileRepo {
	return &FileRepo{list: filestore.NewList[Subscriber](path)}
}

func (r *FileRepo) Append(_ context.Context, s Subscriber) (bool, error) {
	added := false
	err := r.list.Update(func(items []Subscriber) ([]Subscriber, error) {
		for _, it := range items {
			if s.SessionID != "" && it.SessionID == s.SessionID {
				return items, nil
			}
		}
		added = true
		return append(items, s), nil
	})
	return added, err
}

func (r *FileRepo) List(_ context.Context) ([]Subscriber, error) {
	return r.list.Load()
}
