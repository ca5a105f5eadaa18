package artifact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	ref, err := backend.Put(ctx, "jobs/a.json", []byte(`{"id":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, "memory://jobs/a.json", ref)

	data, err := backend.Get(ctx, "jobs/a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"a"}`), data)

	// stored copy must be isolated from caller mutation
	data[0] = 'X'
	again, err := backend.Get(ctx, "jobs/a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"a"}`), again)
}

func TestMemoryBackendMissingKey(t *testing.T) {
	backend := NewMemoryBackend()
	_, err := backend.Get(context.Background(), "jobs/nope.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackendDeleteMissingIsNoOp(t *testing.T) {
	backend := NewMemoryBackend()
	assert.NoError(t, backend.Delete(context.Background(), "jobs/nope.json"))
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	ref, err := backend.Put(ctx, "transcripts/a.json", []byte("[]"))
	require.NoError(t, err)
	assert.Contains(t, ref, "file://")

	data, err := backend.Get(ctx, "transcripts/a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), data)

	require.NoError(t, backend.Delete(ctx, "transcripts/a.json"))
	_, err = backend.Get(ctx, "transcripts/a.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBackendDeleteMissingIsNoOp(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, backend.Delete(context.Background(), "jobs/nope.json"))
}

// failingBackend rejects every write once armed.
type failingBackend struct {
	*MemoryBackend
	fail bool
}

func (f *failingBackend) Name() string { return "failing" }

func (f *failingBackend) Put(ctx context.Context, key string, data []byte) (string, error) {
	if f.fail {
		return "", errors.New("backend write refused")
	}
	return f.MemoryBackend.Put(ctx, key, data)
}

func TestStoreDowngradesToMemoryOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewStore(backend)
	assert.Equal(t, "failing", store.BackendName())

	backend.fail = true
	ref, err := store.Put(ctx, "jobs/a.json", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "memory://jobs/a.json", ref)
	assert.Equal(t, "memory", store.BackendName())

	// subsequent reads hit the fallback where the data actually landed
	data, err := store.Get(ctx, "jobs/a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), data)
}

func TestStoreMemoryFallbackFailureSurfaces(t *testing.T) {
	store := NewStore(nil) // memory from the start
	assert.Equal(t, "memory", store.BackendName())

	_, err := store.Put(context.Background(), "jobs/a.json", []byte("{}"))
	assert.NoError(t, err)
}

func TestStoreDeleteIsBestEffort(t *testing.T) {
	store := NewStore(nil)
	// must not panic or error on unknown keys
	store.Delete(context.Background(), "jobs/ghost.json")
}
