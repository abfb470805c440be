package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/ishpreet160/CertFlow/internal/storage"
)

// FaultyStore wraps a MemoryStore and fails the operations whose error is set.
type FaultyStore struct {
	*storage.MemoryStore

	mu        sync.Mutex
	PutErr    error
	DeleteErr error
	Deleted   []string
}

func NewFaultyStore() *FaultyStore {
	return &FaultyStore{MemoryStore: storage.NewMemoryStore()}
}

func (f *FaultyStore) Put(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	f.mu.Lock()
	err := f.PutErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.MemoryStore.Put(ctx, key, r, size)
}

func (f *FaultyStore) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	f.Deleted = append(f.Deleted, ref)
	err := f.DeleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Delete(ctx, ref)
}

// SetDeleteErr changes the delete failure under the lock.
func (f *FaultyStore) SetDeleteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteErr = err
}
