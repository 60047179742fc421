package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
)

func newScheduler() *Scheduler {
	return NewScheduler(time.Second, logger.NewNopLogger())
}

func TestMountTicksImmediatelyAndRepeats(t *testing.T) {
	s := newScheduler()
	var fetches, applies atomic.Int32

	m := s.Mount(context.Background(), "trading", Job{
		Resource: model.ResourceOpenOrders,
		Interval: 10 * time.Millisecond,
		Fetch: func(ctx context.Context) (Apply, error) {
			fetches.Add(1)
			return func() { applies.Add(1) }, nil
		},
	})

	require.Eventually(t, func() bool { return applies.Load() >= 3 }, time.Second, 5*time.Millisecond)
	m.Unmount()

	after := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, fetches.Load(), "no ticks after unmount")
}

func TestZeroIntervalFetchesOnce(t *testing.T) {
	s := newScheduler()
	var fetches atomic.Int32

	m := s.Mount(context.Background(), "analytics", Job{
		Resource: model.ResourceAnalytics,
		Fetch: func(ctx context.Context) (Apply, error) {
			fetches.Add(1)
			return nil, nil
		},
	})
	defer m.Unmount()

	require.Eventually(t, func() bool { return fetches.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestFailureLeavesStoreUntouched(t *testing.T) {
	s := newScheduler()
	var applied atomic.Bool
	var calls atomic.Int32

	m := s.Mount(context.Background(), "positions", Job{
		Resource: model.ResourcePositions,
		Interval: 5 * time.Millisecond,
		Fetch: func(ctx context.Context) (Apply, error) {
			calls.Add(1)
			return func() { applied.Store(true) }, errors.New("boom")
		},
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	m.Unmount()
	assert.False(t, applied.Load(), "a failed tick never applies its payload")
}

func TestOnErrorApplies(t *testing.T) {
	s := newScheduler()
	var unavailable atomic.Bool

	m := s.Mount(context.Background(), "monitoring", Job{
		Resource: model.ResourceHealth,
		Interval: time.Hour,
		Fetch: func(ctx context.Context) (Apply, error) {
			return nil, errors.New("down")
		},
		OnError: func(err error) Apply {
			return func() { unavailable.Store(true) }
		},
	})
	defer m.Unmount()

	require.Eventually(t, unavailable.Load, time.Second, 5*time.Millisecond)
}

func TestTimeoutDoesNotBlockNextTick(t *testing.T) {
	s := newScheduler()
	var calls atomic.Int32

	m := s.Mount(context.Background(), "movers", Job{
		Resource: model.ResourceMovers,
		Interval: 5 * time.Millisecond,
		Timeout:  10 * time.Millisecond,
		Fetch: func(ctx context.Context) (Apply, error) {
			calls.Add(1)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	defer m.Unmount()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestResponseAfterUnmountIsDropped(t *testing.T) {
	s := newScheduler()
	release := make(chan struct{})
	started := make(chan struct{})
	var applied atomic.Bool

	m := s.Mount(context.Background(), "trading", Job{
		Resource: model.ResourceOpenOrders,
		Interval: time.Hour,
		Fetch: func(ctx context.Context) (Apply, error) {
			close(started)
			<-release // ignores cancellation, like a slow backend
			return func() { applied.Store(true) }, nil
		},
	})
	<-started

	gen := s.Generation("trading")
	done := make(chan struct{})
	go func() {
		m.Unmount()
		close(done)
	}()

	require.Eventually(t, func() bool { return s.Generation("trading") > gen }, time.Second, time.Millisecond)
	close(release)
	<-done

	assert.False(t, applied.Load())
}

func TestRemountInvalidatesOldMount(t *testing.T) {
	s := newScheduler()
	var mu sync.Mutex
	var seen []string

	job := func(tag string) Job {
		return Job{
			Resource: model.ResourceAccount,
			Interval: time.Hour,
			Fetch: func(ctx context.Context) (Apply, error) {
				return func() {
					mu.Lock()
					seen = append(seen, tag)
					mu.Unlock()
				}, nil
			},
		}
	}

	first := s.Mount(context.Background(), "trading", job("first"))
	first.Unmount()
	second := s.Mount(context.Background(), "trading", job("second"))
	defer second.Unmount()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == "second"
	}, time.Second, 5*time.Millisecond)
	assert.False(t, first.Trigger(model.ResourceAccount))
}

func TestTriggerAfter(t *testing.T) {
	s := newScheduler()
	var calls atomic.Int32

	m := s.Mount(context.Background(), "trading", Job{
		Resource: model.ResourceOpenOrders,
		Interval: time.Hour,
		Fetch: func(ctx context.Context) (Apply, error) {
			calls.Add(1)
			return nil, nil
		},
	})
	defer m.Unmount()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	assert.True(t, m.TriggerAfter(model.ResourceOpenOrders, 20*time.Millisecond))
	assert.True(t, m.Trigger(model.ResourceOpenOrders))
	assert.False(t, m.Trigger(model.ResourceHealth), "not owned by this mount")
	assert.True(t, m.Owns(model.ResourceOpenOrders))

	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, time.Millisecond)
}

func TestPendingTriggerCancelledByUnmount(t *testing.T) {
	s := newScheduler()
	var calls atomic.Int32

	m := s.Mount(context.Background(), "trading", Job{
		Resource: model.ResourceOpenOrders,
		Interval: time.Hour,
		Fetch: func(ctx context.Context) (Apply, error) {
			calls.Add(1)
			return nil, nil
		},
	})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	m.TriggerAfter(model.ResourceOpenOrders, 50*time.Millisecond)
	m.Unmount()
	m.Unmount()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunOnce(t *testing.T) {
	s := newScheduler()
	var applied bool

	err := s.RunOnce(context.Background(), Job{
		Resource: model.ResourceExecutions,
		Fetch: func(ctx context.Context) (Apply, error) {
			return func() { applied = true }, nil
		},
	})
	require.NoError(t, err)
	assert.True(t, applied)

	err = s.RunOnce(context.Background(), Job{
		Resource: model.ResourceExecutions,
		Fetch: func(ctx context.Context) (Apply, error) {
			return nil, errors.New("nope")
		},
	})
	assert.Error(t, err)
}
