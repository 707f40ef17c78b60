package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/appmeta/internal/cache/memory"
	"github.com/JakeFAU/appmeta/internal/lookup"
)

type countingEngine struct {
	calls   atomic.Int32
	release chan struct{}
	fn      func(id lookup.PackageID) (lookup.Metatags, error)
}

func (c *countingEngine) Run(ctx context.Context, id lookup.PackageID) (lookup.Metatags, error) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return lookup.Metatags{}, ctx.Err()
		}
	}
	return c.fn(id)
}

func foundEngine() *countingEngine {
	return &countingEngine{fn: func(id lookup.PackageID) (lookup.Metatags, error) {
		return lookup.Metatags{ID: id, Name: "Name of " + id}, nil
	}}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenStore) Ping(context.Context) error { return errors.New("connection refused") }
func (brokenStore) Close() error               { return nil }

func TestKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "package_id:com.google.android.apps.maps", Key("com.google.android.apps.maps"))
}

func TestEngine_SecondCallWithinTTLIsHit(t *testing.T) {
	t.Parallel()

	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	next := foundEngine()
	eng := New(next, memory.New(clock), Options{TTL: 12 * time.Hour}, nil)
	ctx := context.Background()

	first, err := eng.Run(ctx, "com.example")
	require.NoError(t, err)
	second, err := eng.Run(ctx, "com.example")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, next.calls.Load())

	clock.Advance(12 * time.Hour)
	_, err = eng.Run(ctx, "com.example")
	require.NoError(t, err)
	require.EqualValues(t, 2, next.calls.Load())
}

func TestEngine_NotFoundIsCached(t *testing.T) {
	t.Parallel()

	next := &countingEngine{fn: func(lookup.PackageID) (lookup.Metatags, error) {
		return lookup.Metatags{}, lookup.ErrNotFound
	}}
	eng := New(next, memory.New(&fixedClock{now: time.Unix(0, 0)}), Options{}, nil)

	for range 3 {
		_, err := eng.Run(context.Background(), "com.example.missing")
		require.ErrorIs(t, err, lookup.ErrNotFound)
	}
	require.EqualValues(t, 1, next.calls.Load())
}

func TestEngine_UpstreamErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	next := &countingEngine{fn: func(lookup.PackageID) (lookup.Metatags, error) {
		return lookup.Metatags{}, lookup.NewUpstreamError(503, nil, nil)
	}}
	store := memory.New(&fixedClock{now: time.Unix(0, 0)})
	eng := New(next, store, Options{}, nil)

	for range 2 {
		_, err := eng.Run(context.Background(), "com.example")
		var upstream *lookup.UpstreamError
		require.ErrorAs(t, err, &upstream)
	}
	require.EqualValues(t, 2, next.calls.Load())
	require.Zero(t, store.Len())
}

func TestEngine_ConcurrentColdCallsShareOneLookup(t *testing.T) {
	t.Parallel()

	next := foundEngine()
	next.release = make(chan struct{})
	eng := New(next, memory.New(&fixedClock{now: time.Unix(0, 0)}), Options{}, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]lookup.Metatags, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = eng.Run(context.Background(), "com.example")
		}(i)
	}

	require.Eventually(t, func() bool { return next.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight lookup.
	time.Sleep(20 * time.Millisecond)
	close(next.release)
	wg.Wait()

	require.EqualValues(t, 1, next.calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, "com.example", results[i].ID)
	}
}

func TestEngine_CanceledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	next := foundEngine()
	next.release = make(chan struct{})
	eng := New(next, memory.New(&fixedClock{now: time.Unix(0, 0)}), Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := eng.Run(ctx, "com.example")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return next.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(next.release)
	md, err := eng.Run(context.Background(), "com.example")
	require.NoError(t, err)
	require.Equal(t, "com.example", md.ID)
	require.EqualValues(t, 1, next.calls.Load())
}

func TestEngine_BrokenStoreDegradesToUncached(t *testing.T) {
	t.Parallel()

	next := foundEngine()
	eng := New(next, brokenStore{}, Options{OpTimeout: 10 * time.Millisecond}, nil)

	for range 2 {
		md, err := eng.Run(context.Background(), "com.example")
		require.NoError(t, err)
		require.Equal(t, "com.example", md.ID)
	}
	require.EqualValues(t, 2, next.calls.Load())
	require.Error(t, eng.Ping(context.Background()))
}

func TestEngine_UndecodableEntryIsMiss(t *testing.T) {
	t.Parallel()

	store := memory.New(&fixedClock{now: time.Unix(0, 0)})
	require.NoError(t, store.Set(context.Background(), Key("com.example"), []byte("not json"), time.Hour))

	next := foundEngine()
	eng := New(next, store, Options{}, nil)
	md, err := eng.Run(context.Background(), "com.example")
	require.NoError(t, err)
	require.Equal(t, "com.example", md.ID)
	require.EqualValues(t, 1, next.calls.Load())
}
