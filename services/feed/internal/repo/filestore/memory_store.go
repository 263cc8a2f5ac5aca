package filestore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"blogfeed/services/feed/internal/entity"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps images in process memory for local runs without S3.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]object)}
}

func (f *MemoryStore) StoreImage(ctx context.Context, upload entity.ImageUpload) (string, error) {
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}

	ref := newRef(upload.Filename)
	f.mu.Lock()
	f.objects[ref] = object{data: data, contentType: contentType(upload)}
	f.mu.Unlock()
	return ref, nil
}

func (f *MemoryStore) ReadImage(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	f.mu.RLock()
	obj, ok := f.objects[ref]
	f.mu.RUnlock()
	if !ok {
		return nil, "", entity.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (f *MemoryStore) DeleteImage(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[ref]; !ok {
		return entity.ErrNotFound
	}
	delete(f.objects, ref)
	return nil
}

func (f *MemoryStore) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.objects)
}
