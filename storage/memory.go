package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/brainydb/brainy/errs"
)

// MemoryAdapter is a map-backed Adapter, the default for tests and for
// ephemeral/ single-process deployments (spec §4.1).
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[string][]byte)}
}

func (m *MemoryAdapter) Read(_ context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errNilAdapterPath
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[path]
	if !ok {
		return nil, errs.NotFoundf("no object at %q", path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryAdapter) Write(_ context.Context, path string, data []byte) error {
	if path == "" {
		return errNilAdapterPath
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = cp
	return nil
}

func (m *MemoryAdapter) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, path)
	return nil
}

func (m *MemoryAdapter) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ObjectInfo
	for p, d := range m.data {
		if strings.HasPrefix(p, prefix) {
			out = append(out, ObjectInfo{Path: p, Size: int64(len(d))})
		}
	}
	return out, nil
}

func (m *MemoryAdapter) ReadBatch(ctx context.Context, paths []string) (map[string][]byte, error) {
	return boundedEach(ctx, paths, m.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		data, err := m.Read(ctx, path)
		if errs.IsTransientStorage(err) {
			return nil, false, err
		}
		if err != nil {
			return nil, false, nil // NotFound: simply absent from the batch result
		}
		return data, true, nil
	})
}

func (m *MemoryAdapter) DeleteBatch(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := m.Delete(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Concurrency is unbounded: there is no network round trip to amortize.
func (m *MemoryAdapter) Concurrency() int { return 0 }
