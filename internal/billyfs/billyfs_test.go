package billyfs

import (
	"context"
	"io"
	"os"
	"sort"
	"testing"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharefs/internal/backend"
	"sharefs/internal/fsa"
	"sharefs/internal/smburl"
)

func newShareFS(t *testing.T) (*ShareFS, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemoryFixture()
	fs, err := fsa.Connect(context.Background(), "smb://testserver/export",
		fsa.WithDialer(func(ctx context.Context, ep *smburl.Endpoint) (backend.Backend, error) {
			return mem, nil
		}),
		fsa.WithWatchInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(fs.Close)
	return New(fs.Root()), mem
}

func TestCreateWriteRead(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	f, err := bfs.Create("greeting.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello billy"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := bfs.Open("greeting.txt")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello billy", string(data))
}

func TestOpenMissing(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	_, err := bfs.Open("missing.txt")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "billy callers test with os.IsNotExist")
}

func TestStat(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	fi, err := bfs.Stat("annar")
	require.NoError(t, err)
	assert.Equal(t, "annar", fi.Name())
	assert.Equal(t, int64(123), fi.Size())
	assert.False(t, fi.IsDir())

	fi, err = bfs.Stat("first")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	_, err = bfs.Stat("ghost")
	assert.True(t, os.IsNotExist(err))
}

func TestReadDir(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	infos, err := bfs.ReadDir("")
	require.NoError(t, err)
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"3", "annar", "first", "quatre"}, names)
}

func TestMkdirAll(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	require.NoError(t, bfs.MkdirAll("a/b/c", 0755))
	fi, err := bfs.Stat("a/b/c")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	// Idempotent.
	require.NoError(t, bfs.MkdirAll("a/b/c", 0755))
}

func TestRemove(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	require.NoError(t, bfs.Remove("3"))
	_, err := bfs.Stat("3")
	assert.True(t, os.IsNotExist(err))
}

func TestAppendAndSeek(t *testing.T) {
	t.Parallel()
	bfs, mem := newShareFS(t)

	f, err := bfs.Create("log")
	require.NoError(t, err)
	_, err = f.Write([]byte("one"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = bfs.OpenFile("log", os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte(" two"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, _ := mem.Bytes("log")
	assert.Equal(t, "one two", string(data))
}

func TestReadAtAndSeek(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	f, err := bfs.Open("annar")
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 4)
	n, err := f.ReadAt(buf, 12)
	require.NoError(t, err)
	assert.Equal(t, "make", string(buf[:n]))

	pos, err := f.Seek(-6, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(117), pos)
	tail, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "count.", string(tail))
}

func TestTruncateThroughBilly(t *testing.T) {
	t.Parallel()
	bfs, mem := newShareFS(t)

	f, err := bfs.OpenFile("annar", os.O_RDWR, 0644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(2))
	require.NoError(t, f.Close())

	data, _ := mem.Bytes("annar")
	assert.Equal(t, "In", string(data))
}

func TestWriteToReadOnlyHandleFails(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	f, err := bfs.Open("annar")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write([]byte("nope"))
	assert.True(t, os.IsPermission(err))
}

func TestUnsupportedSurface(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	assert.ErrorIs(t, bfs.Rename("a", "b"), billy.ErrNotSupported)
	assert.ErrorIs(t, bfs.Symlink("a", "b"), billy.ErrNotSupported)
	_, err := bfs.Readlink("a")
	assert.ErrorIs(t, err, billy.ErrNotSupported)
	_, err = bfs.TempFile("", "x")
	assert.ErrorIs(t, err, billy.ErrNotSupported)
}

func TestChroot(t *testing.T) {
	t.Parallel()
	bfs, _ := newShareFS(t)

	sub, err := bfs.Chroot("first")
	require.NoError(t, err)
	fi, err := sub.Stat("comment")
	require.NoError(t, err)
	assert.Equal(t, "comment", fi.Name())
	assert.Equal(t, "/first", sub.Root())
}
