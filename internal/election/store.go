package election

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/EmpoweredVote/wahlkreis/internal/logging"
	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

var (
	ErrNoSnapshot      = errors.New("no snapshot loaded")
	ErrReloadThrottled = errors.New("reload throttled")
)

// Observer is notified after every load attempt.
type Observer interface {
	SnapshotLoaded(ctx context.Context, snap *Snapshot, took time.Duration)
	SnapshotFailed(ctx context.Context, err error)
}

// Store owns the current snapshot. Readers get an immutable *Snapshot;
// reloads build a new one and swap it in, keeping the old one on failure.
type Store struct {
	source    results.Source
	settings  Settings
	current   atomic.Pointer[Snapshot]
	group     singleflight.Group
	limiter   *rate.Limiter
	observers []Observer
	now       func() time.Time
	timeout   time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithReloadLimit allows one explicit reload per interval with the given burst.
func WithReloadLimit(every time.Duration, burst int) StoreOption {
	return func(s *Store) {
		s.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLoadTimeout bounds a shared load. Callers that give up earlier do not
// cancel it for the others.
func WithLoadTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store. Call Load before serving.
func NewStore(src results.Source, settings Settings, opts ...StoreOption) *Store {
	s := &Store{
		source:   src,
		settings: settings,
		limiter:  rate.NewLimiter(rate.Every(time.Minute), 1),
		now:      time.Now,
		timeout:  2 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Current returns the active snapshot, nil before the first Load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Snapshot is Current with an error when nothing is loaded yet.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Load fetches and installs a snapshot. Concurrent calls share one fetch,
// which runs detached from the caller's cancellation. A caller whose ctx ends
// returns ctx.Err() while the fetch completes for everyone else.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	ch := s.group.DoChan("load", func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.load(lctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Snapshot), nil
	}
}

// Reload is Load behind the reload rate limit.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	if !s.limiter.Allow() {
		return nil, ErrReloadThrottled
	}
	return s.Load(ctx)
}

// ReloadWait reports how long until Reload is allowed again.
func (s *Store) ReloadWait() time.Duration {
	r := s.limiter.Reserve()
	defer r.Cancel()
	if !r.OK() {
		return 0
	}
	return r.Delay()
}

// Run reloads every interval until ctx is done. Failures keep the previous
// snapshot and are reported to observers.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Load(ctx); err != nil {
				logging.LogError("store", "scheduled reload", err)
			}
		}
	}
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	tree, raw, err := s.source.Load(ctx)
	if err != nil {
		s.failed(ctx, err)
		return nil, err
	}

	snap, err := BuildSnapshot(tree, raw, s.source.Name(), s.now(), s.settings)
	if err != nil {
		err = fmt.Errorf("build snapshot from %s: %w", s.source.Name(), err)
		s.failed(ctx, err)
		return nil, err
	}

	s.current.Store(snap)
	took := time.Since(start)
	logging.LogSnapshot("store", snap.Source, snap.ShortDigest(), snap.Index.Len(), took)

	for _, o := range s.observers {
		o.SnapshotLoaded(ctx, snap, took)
	}
	return snap, nil
}

func (s *Store) failed(ctx context.Context, err error) {
	logging.LogError("store", "load", err)
	for _, o := range s.observers {
		o.SnapshotFailed(ctx, err)
	}
}
