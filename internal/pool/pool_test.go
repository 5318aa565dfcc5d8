package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharefs/internal/backend"
	"sharefs/internal/common"
	"sharefs/internal/smburl"
	"sharefs/internal/util"
)

func testEndpoint(share string) *smburl.Endpoint {
	return &smburl.Endpoint{Host: "host", Port: 445, Share: share, Mode: smburl.AuthAnonymous}
}

func countingDialer(mem *backend.Memory, calls *atomic.Int32) backend.DialFunc {
	return func(ctx context.Context, ep *smburl.Endpoint) (backend.Backend, error) {
		calls.Add(1)
		return mem, nil
	}
}

func TestAcquireReusesLiveContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := New(countingDialer(backend.NewMemory(), &calls))
	defer p.Close()

	ep := testEndpoint("share")
	ctx := context.Background()

	c1, err := p.Acquire(ctx, ep)
	require.NoError(t, err)
	c2, err := p.Acquire(ctx, ep)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), calls.Load())

	p.Release(c1)
	p.Release(c2)
}

func TestConcurrentAcquiresShareOneConnect(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := New(countingDialer(backend.NewMemory(), &calls))
	defer p.Close()

	ep := testEndpoint("share")
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := p.Acquire(context.Background(), ep)
			if assert.NoError(t, err) {
				p.Release(c)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestDistinctEndpointsGetDistinctContexts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := New(countingDialer(backend.NewMemory(), &calls))
	defer p.Close()

	ctx := context.Background()
	c1, err := p.Acquire(ctx, testEndpoint("a"))
	require.NoError(t, err)
	c2, err := p.Acquire(ctx, testEndpoint("b"))
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, p.Len())
}

func TestConnectFailureNotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	p := New(func(ctx context.Context, ep *smburl.Endpoint) (backend.Backend, error) {
		calls.Add(1)
		if fail.Load() {
			return nil, errors.New("NT_STATUS_LOGON_FAILURE")
		}
		return backend.NewMemory(), nil
	})
	defer p.Close()

	ep := testEndpoint("share")
	_, err := p.Acquire(context.Background(), ep)
	require.Error(t, err)
	assert.Equal(t, common.KindConnectFailed, common.KindOf(err))
	assert.Equal(t, 0, p.Len(), "failed contexts must not be cached")

	fail.Store(false)
	c, err := p.Acquire(context.Background(), ep)
	require.NoError(t, err)
	p.Release(c)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdleTeardownAfterTTL(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := New(countingDialer(backend.NewMemory(), &calls), WithIdleTTL(30*time.Millisecond))
	defer p.Close()

	ep := testEndpoint("share")
	c, err := p.Acquire(context.Background(), ep)
	require.NoError(t, err)
	p.Release(c)

	require.NoError(t, util.PollUntil(context.Background(), util.DefaultPollConfig(), func() bool {
		return p.Len() == 0
	}))

	// A new acquire re-establishes.
	c, err = p.Acquire(context.Background(), ep)
	require.NoError(t, err)
	p.Release(c)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReacquireBeforeTTLKeepsContextWarm(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := New(countingDialer(backend.NewMemory(), &calls), WithIdleTTL(250*time.Millisecond))
	defer p.Close()

	ep := testEndpoint("share")
	c1, err := p.Acquire(context.Background(), ep)
	require.NoError(t, err)
	p.Release(c1)

	c2, err := p.Acquire(context.Background(), ep)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), calls.Load())
	p.Release(c2)
}

func TestAcquireAfterCloseFails(t *testing.T) {
	t.Parallel()

	p := New(countingDialer(backend.NewMemory(), new(atomic.Int32)))
	p.Close()

	_, err := p.Acquire(context.Background(), testEndpoint("share"))
	require.Error(t, err)
	assert.Equal(t, common.KindInvalidState, common.KindOf(err))
}
