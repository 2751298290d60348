package election_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/results"
	"github.com/EmpoweredVote/wahlkreis/internal/results/resultstest"
)

// fakeSource serves the fixture, or err when set.
type fakeSource struct {
	fx    resultstest.Fixture
	calls atomic.Int32
	err   atomic.Pointer[error]
	delay time.Duration
	gate  chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Load(ctx context.Context) (*results.Tree, []byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if e := f.err.Load(); e != nil {
		return nil, nil, *e
	}
	raw := f.fx.XML()
	tree, err := results.ParseBytes(raw)
	return tree, raw, err
}

type recordingObserver struct {
	mu     sync.Mutex
	loaded []*election.Snapshot
	failed []error
}

func (o *recordingObserver) SnapshotLoaded(_ context.Context, snap *election.Snapshot, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = append(o.loaded, snap)
}

func (o *recordingObserver) SnapshotFailed(_ context.Context, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, err)
}

func newStore(src *fakeSource, opts ...election.StoreOption) *election.Store {
	return election.NewStore(src, settingsFor(src.fx), opts...)
}

func TestStore_LoadAndCurrent(t *testing.T) {
	src := &fakeSource{fx: resultstest.Default()}
	obs := &recordingObserver{}
	fixed := time.Date(2021, 9, 27, 6, 0, 0, 0, time.UTC)
	store := newStore(src, election.WithObserver(obs), election.WithClock(func() time.Time { return fixed }))

	assert.Nil(t, store.Current())
	_, err := store.Snapshot()
	assert.ErrorIs(t, err, election.ErrNoSnapshot)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, store.Current())
	assert.Equal(t, fixed, snap.FetchedAt)
	assert.Equal(t, "fake", snap.Source)
	require.Len(t, obs.loaded, 1)
	assert.Same(t, snap, obs.loaded[0])
}

func TestStore_FailedReloadKeepsSnapshot(t *testing.T) {
	src := &fakeSource{fx: resultstest.Default()}
	obs := &recordingObserver{}
	store := newStore(src, election.WithObserver(obs), election.WithReloadLimit(time.Nanosecond, 10))

	first, err := store.Load(context.Background())
	require.NoError(t, err)

	boom := errors.New("upstream down")
	src.err.Store(&boom)

	_, err = store.Reload(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Same(t, first, store.Current())
	require.Len(t, obs.failed, 1)
}

func TestStore_ReloadThrottled(t *testing.T) {
	src := &fakeSource{fx: resultstest.Default()}
	store := newStore(src, election.WithReloadLimit(time.Hour, 1))

	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	_, err = store.Reload(context.Background())
	assert.ErrorIs(t, err, election.ErrReloadThrottled)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestStore_ConcurrentLoadsShareFetch(t *testing.T) {
	src := &fakeSource{fx: resultstest.Default(), delay: 50 * time.Millisecond}
	store := newStore(src)

	var wg sync.WaitGroup
	snaps := make([]*election.Snapshot, 8)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := store.Load(context.Background())
			assert.NoError(t, err)
			snaps[i] = s
		}(i)
	}
	wg.Wait()

	assert.Less(t, src.calls.Load(), int32(len(snaps)))
	for _, s := range snaps {
		assert.NotNil(t, s)
	}
}

func TestStore_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &fakeSource{fx: resultstest.Default(), gate: make(chan struct{})}
	obs := &recordingObserver{}
	store := newStore(src, election.WithObserver(obs))

	reqCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := store.Load(reqCtx)
		first <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := store.Load(context.Background())
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(src.gate)
	require.NoError(t, <-second)
	assert.NotNil(t, store.Current())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Empty(t, obs.failed)
	assert.Len(t, obs.loaded, 1)
}

func TestStore_LoadTimeout(t *testing.T) {
	src := &fakeSource{fx: resultstest.Default(), gate: make(chan struct{})}
	store := newStore(src, election.WithLoadTimeout(20*time.Millisecond))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, store.Current())
}

func TestStore_BadDocumentIsRejected(t *testing.T) {
	fx := resultstest.Default()
	fx.Districts = nil
	src := &fakeSource{fx: fx}

	_, err := newStore(src).Load(context.Background())
	assert.ErrorIs(t, err, results.ErrShape)
}

func TestStore_RunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{fx: resultstest.Default()}
	store := newStore(src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.NotNil(t, store.Current())
}
