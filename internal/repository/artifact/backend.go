package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get for keys that do not exist. Backends never
// surface transport errors through Get; a failed read reports ErrNotFound so
// callers can use plain existence checks.
var ErrNotFound = errors.New("artifact not found")

// Backend is a single persistence mechanism for job artifacts. Put overwrites,
// Delete on a missing key is a no-op, and concurrent callers on different keys
// must not corrupt unrelated keys.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// MemoryBackend keeps artifacts in process memory. Data is lost on exit, so
// it serves only as the last-resort fallback.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Put(_ context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return "memory://" + key, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FileBackend stores artifacts under a local directory, one file per key.
type FileBackend struct {
	root string
}

// NewFileBackend verifies the directory is writable with a probe write before
// accepting it, so an unusable filesystem is discovered at selection time.
func NewFileBackend(root string) (*FileBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	probe := filepath.Join(root, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return nil, fmt.Errorf("storage dir not writable: %w", err)
	}
	_ = os.Remove(probe)
	return &FileBackend{root: root}, nil
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *FileBackend) Put(_ context.Context, key string, data []byte) (string, error) {
	full := f.path(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return "file://" + full, nil
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return nil, ErrNotFound
	}
	return data, nil
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
