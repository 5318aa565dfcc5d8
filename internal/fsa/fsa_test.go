package fsa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sharefs/internal/backend"
	"sharefs/internal/smburl"
)

// newTestFS mounts the fixture share over the in-memory backend. Every
// dial for the endpoint hands back the same instance, so idle teardown
// and reconnects keep the tree.
func newTestFS(t *testing.T) (*FS, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemoryFixture()
	return newTestFSOn(t, mem, "smb://testserver/export"), mem
}

func newTestFSOn(t *testing.T, mem *backend.Memory, url string) *FS {
	t.Helper()
	fs, err := Connect(context.Background(), url,
		WithDialer(func(ctx context.Context, ep *smburl.Endpoint) (backend.Backend, error) {
			return mem, nil
		}),
		WithWatchInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(fs.Close)
	return fs
}

func ptr[T any](v T) *T { return &v }

func mustKeys(t *testing.T, d *DirectoryHandle) []string {
	t.Helper()
	names, err := d.Keys(context.Background())
	require.NoError(t, err)
	return names
}
