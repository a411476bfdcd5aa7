package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeLocker struct {
	granted atomic.Bool
	calls   atomic.Int64
}

func (f *fakeLocker) AcquireLock(_ context.Context, _, _ string, _ time.Duration) bool {
	f.calls.Add(1)
	return f.granted.Load()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSchedulerRunsTaskPeriodically(t *testing.T) {
	var runs atomic.Int64
	task := func(context.Context) error {
		runs.Add(1)
		return nil
	}

	s := New(5*time.Millisecond, task, nil, "", zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 3 })
}

func TestSchedulerTicksNeverOverlap(t *testing.T) {
	var inFlight, maxInFlight, runs atomic.Int64
	task := func(context.Context) error {
		current := inFlight.Add(1)
		if current > maxInFlight.Load() {
			maxInFlight.Store(current)
		}
		time.Sleep(10 * time.Millisecond) // longer than the interval
		inFlight.Add(-1)
		runs.Add(1)
		return nil
	}

	s := New(2*time.Millisecond, task, nil, "", zap.NewNop())
	s.Start(context.Background())
	waitFor(t, time.Second, func() bool { return runs.Load() >= 3 })
	s.Stop()

	assert.Equal(t, int64(1), maxInFlight.Load())
}

func TestSchedulerSurvivesTaskFailures(t *testing.T) {
	var runs atomic.Int64
	task := func(context.Context) error {
		runs.Add(1)
		return errors.New("tick failed")
	}

	s := New(3*time.Millisecond, task, nil, "", zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 3 })
}

func TestSchedulerSurvivesTaskPanic(t *testing.T) {
	var runs atomic.Int64
	task := func(context.Context) error {
		runs.Add(1)
		panic("boom")
	}

	s := New(3*time.Millisecond, task, nil, "", zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 2 })
}

func TestSchedulerSkipsTickWithoutLock(t *testing.T) {
	var runs atomic.Int64
	locker := &fakeLocker{}
	task := func(context.Context) error {
		runs.Add(1)
		return nil
	}

	s := New(3*time.Millisecond, task, locker, "test:lock", zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return locker.calls.Load() >= 3 })
	assert.Equal(t, int64(0), runs.Load())

	locker.granted.Store(true)
	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	task := func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	}

	s := New(2*time.Millisecond, task, nil, "", zap.NewNop())
	s.Start(context.Background())
	<-started
	s.Stop()

	assert.True(t, finished.Load())
}

func TestStartIsIdempotent(t *testing.T) {
	var runs atomic.Int64
	task := func(context.Context) error {
		runs.Add(1)
		return nil
	}

	s := New(5*time.Millisecond, task, nil, "", zap.NewNop())
	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx)
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 2 })
}

func TestStopWithoutStartReturns(t *testing.T) {
	s := New(time.Minute, func(context.Context) error { return nil }, nil, "", zap.NewNop())

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a scheduler that was never started")
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	var runs atomic.Int64
	task := func(context.Context) error {
		runs.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := New(3*time.Millisecond, task, nil, "", zap.NewNop())
	s.Start(ctx)

	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after context cancel")
	}
}
