// Package artifact persists every data product of the pipeline: job records,
// transcripts, vision captions, summaries, and keyframe images. One backend
// is selected at startup (remote object store, then local filesystem, then
// memory); a write failure at runtime downgrades the store to the memory
// backend for the rest of the process so a put never fails the caller unless
// the fallback itself fails.
package artifact

import (
	"context"
	"log"
	"sync"
)

type Store struct {
	mu       sync.RWMutex
	backend  Backend
	fallback *MemoryBackend
}

func NewStore(backend Backend) *Store {
	fallback := NewMemoryBackend()
	if backend == nil {
		backend = fallback
	}
	return &Store{backend: backend, fallback: fallback}
}

// BackendName reports the currently active backend.
func (s *Store) BackendName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend.Name()
}

func (s *Store) current() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

func (s *Store) downgrade(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend.Name() == s.fallback.Name() {
		return
	}
	log.Printf("artifact store: %s backend write failed, downgrading to memory: %v", s.backend.Name(), cause)
	s.backend = s.fallback
}

// Put writes an artifact, falling back to the memory backend when the active
// backend rejects the write.
func (s *Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	backend := s.current()
	ref, err := backend.Put(ctx, key, data)
	if err == nil {
		return ref, nil
	}
	if backend.Name() == s.fallback.Name() {
		return "", err
	}
	s.downgrade(err)
	return s.fallback.Put(ctx, key, data)
}

// Get returns ErrNotFound for missing keys and for backend read failures;
// it never surfaces a transport error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.current().Get(ctx, key)
}

// Delete is best-effort cleanup; failures are logged and swallowed.
func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.current().Delete(ctx, key); err != nil {
		log.Printf("artifact store: delete %s failed: %v", key, err)
	}
}
