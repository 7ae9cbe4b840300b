package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("engine command queue full")

// CommandQueue carries engine calls from host goroutines to the tick
// thread. Producers Submit; the input system drains it at the start of a
// tick, so every engine call still runs on one goroutine.
type CommandQueue struct {
	ch      chan func()
	dropped atomic.Uint64
	log     *zap.Logger
}

func NewCommandQueue(size int, log *zap.Logger) *CommandQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandQueue{ch: make(chan func(), max(size, 1)), log: log}
}

// Submit queues fn without blocking. ErrQueueFull is returned when the
// tick thread has fallen behind.
func (q *CommandQueue) Submit(fn func()) error {
	select {
	case q.ch <- fn:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// SubmitWait queues fn, blocking until there is room or ctx is done.
func (q *CommandQueue) SubmitWait(ctx context.Context, fn func()) error {
	select {
	case q.ch <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the tick thread and waits for it to finish.
func (q *CommandQueue) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := q.SubmitWait(ctx, func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs up to limit queued commands (all of them when limit <= 0)
// and returns how many ran. A panicking command is logged and skipped.
func (q *CommandQueue) Drain(limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		select {
		case fn := <-q.ch:
			n++
			q.run(fn)
		default:
			return n
		}
	}
	return n
}

func (q *CommandQueue) Len() int { return len(q.ch) }

// Dropped counts Submit calls refused because the queue was full.
func (q *CommandQueue) Dropped() uint64 { return q.dropped.Load() }

func (q *CommandQueue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("engine command panic", zap.Any("panic", r))
		}
	}()
	fn()
}
