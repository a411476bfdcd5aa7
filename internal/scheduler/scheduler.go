// Package scheduler provides the process-wide periodic trigger for ingestion.
// One Scheduler is constructed and started by main; ticks run sequentially in
// a single goroutine, so two ingestion runs never overlap.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker guards against concurrent schedulers across processes. The redis
// wrapper satisfies it; a nil Locker degrades to the single-process assumption.
type Locker interface {
	AcquireLock(ctx context.Context, key, holder string, ttl time.Duration) bool
}

// Task is one tick's work.
type Task func(ctx context.Context) error

// Scheduler invokes a task on a fixed interval.
type Scheduler struct {
	interval time.Duration
	task     Task
	locker   Locker
	lockKey  string
	holder   string
	logger   *zap.Logger

	stop     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	startEnd sync.Once
	stopEnd  sync.Once
}

// New constructs a scheduler. The holder id identifies this process in the
// leader lock.
func New(interval time.Duration, task Task, locker Locker, lockKey string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		locker:   locker,
		lockKey:  lockKey,
		holder:   uuid.NewString(),
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. Safe to call once; later calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.startEnd.Do(func() {
		s.started.Store(true)
		go s.loop(ctx)
		s.logger.Info("scheduler started",
			zap.Duration("interval", s.interval),
			zap.String("holder", s.holder))
	})
}

// Stop halts the loop and waits for an in-flight tick to finish. On a
// scheduler that was never started there is no loop to wait for.
func (s *Scheduler) Stop() {
	s.stopEnd.Do(func() { close(s.stop) })
	if !s.started.Load() {
		return
	}
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs the task once. Errors and panics are logged; the loop survives.
func (s *Scheduler) tick(ctx context.Context) {
	if s.locker != nil && s.lockKey != "" {
		if !s.locker.AcquireLock(ctx, s.lockKey, s.holder, s.interval) {
			s.logger.Debug("tick skipped; another instance holds the lock")
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	if err := s.task(ctx); err != nil {
		s.logger.Warn("tick failed", zap.Error(err))
	}
}
