// Package filestore хранит список записей одним JSON-файлом.
// Все чтения и записи одного файла идут под общим мьютексом, файл
// заменяется атомарно (tmp + rename), поэтому конкурентные обновления не теряются.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type List[T any] struct {
	mu   sync.Mutex
	path string
}

func NewList[T any](path string) *List[T] {
	return &List[T]{path: path}
}

func (l *List[T]) Path() string { return l.path }

// Load возвращает копию текущего списка. Нет файла, значит пустой список.
func (l *List[T]) Load() ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Update выполняет read-modify-write под замком. Если fn вернула ошибку,
// файл не трогаем.
func (l *List[T]) Update(fn func([]T) ([]T, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.read()
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return l.write(next)
}

func (l *List[T]) read() ([]T, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("filestore: read %s: %w", l.path, err)
	}
	if len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", l.path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (l *List[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode %s: %w", l.path, err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", l.path, err)
	}
	return nil
}
