package driver

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharefs/internal/backend"
	"sharefs/internal/common"
)

func TestSubmissionsRunInFIFOOrder(t *testing.T) {
	t.Parallel()

	d := New(backend.NewMemory())
	defer d.Close()

	// Closures run on the driver goroutine; no locking needed.
	var order []int
	futures := make([]*Future[int], 0, 20)
	for i := range 20 {
		futures = append(futures, Submit(d, "order", func(b backend.Backend) (int, error) {
			order = append(order, i)
			return i, nil
		}))
	}
	ctx := context.Background()
	for i, f := range futures {
		v, err := f.Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestDoRoundTrip(t *testing.T) {
	t.Parallel()

	d := New(backend.NewMemoryFixture())
	defer d.Close()

	st, err := Do(context.Background(), d, "stat", func(b backend.Backend) (backend.Stat, error) {
		return b.Stat("annar")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(123), st.Size)
}

func TestAbandonedFutureLeavesTombstone(t *testing.T) {
	t.Parallel()

	mem := backend.NewMemory()
	d := New(mem)
	defer d.Close()

	release := make(chan struct{})
	// Occupy the driver so the next submission is still queued when its
	// caller gives up.
	gate := Submit(d, "gate", func(b backend.Backend) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := Submit(d, "cancelled-create", func(b backend.Backend) (struct{}, error) {
		h, err := b.Create("ghost")
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, h.Close()
	})
	_, err := f.Await(ctx)
	require.Error(t, err)
	assert.Equal(t, common.KindCancelled, common.KindOf(err))

	close(release)
	_, err = gate.Await(context.Background())
	require.NoError(t, err)

	// The dropped operation still executed; its effect is observable.
	_, err = Do(context.Background(), d, "stat", func(b backend.Backend) (backend.Stat, error) {
		return b.Stat("ghost")
	})
	assert.NoError(t, err)
}

func TestCloseFailsFurtherSubmissions(t *testing.T) {
	t.Parallel()

	d := New(backend.NewMemory())
	d.Close()

	_, err := Do(context.Background(), d, "late", func(b backend.Backend) (struct{}, error) {
		return struct{}{}, nil
	})
	require.Error(t, err)
	assert.Equal(t, common.KindInvalidState, common.KindOf(err))
}

func TestCloseWaitsForInFlight(t *testing.T) {
	t.Parallel()

	d := New(backend.NewMemory())
	started := make(chan struct{})
	f := Submit(d, "slow", func(b backend.Backend) (struct{}, error) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		return struct{}{}, nil
	})
	<-started
	d.Close()
	_, err := f.Await(context.Background())
	assert.NoError(t, err)
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		kind common.Kind
	}{
		{"nil_passthrough", nil, common.KindUnknown},
		{"not_exist", os.ErrNotExist, common.KindNotFound},
		{"enoent", syscall.ENOENT, common.KindNotFound},
		{"permission", os.ErrPermission, common.KindPermissionDenied},
		{"not_empty", backend.ErrNotEmpty, common.KindNotEmpty},
		{"enotempty", syscall.ENOTEMPTY, common.KindNotEmpty},
		{"is_dir", backend.ErrIsDirectory, common.KindTypeMismatch},
		{"not_dir", backend.ErrNotDirectory, common.KindTypeMismatch},
		{"cancelled", context.Canceled, common.KindCancelled},
		{"status_not_found", errors.New("response error: STATUS_OBJECT_NAME_NOT_FOUND"), common.KindNotFound},
		{"status_denied", errors.New("response error: STATUS_ACCESS_DENIED"), common.KindPermissionDenied},
		{"status_not_empty", errors.New("response error: STATUS_DIRECTORY_NOT_EMPTY"), common.KindNotEmpty},
		{"opaque", io.ErrUnexpectedEOF, common.KindIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := Translate(tt.in)
			if tt.in == nil {
				assert.NoError(t, out)
				return
			}
			assert.Equal(t, tt.kind, common.KindOf(out))
			require.ErrorIs(t, out, tt.in, "the cause must stay unwrappable")
		})
	}
}

func TestTranslateKeepsVerbatimMessageForIO(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset by peer")
	out := Translate(cause)
	assert.Equal(t, common.KindIO, common.KindOf(out))
	assert.Equal(t, "connection reset by peer", out.Error())
}
