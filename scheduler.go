package linktap

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs recurring tasks. A task scheduled with a fixed delay waits
// initialDelay before its first run, then delay between the end of one run and
// the start of the next.
type Scheduler interface {
	ScheduleWithFixedDelay(task func(ctx context.Context), initialDelay, delay time.Duration) ScheduledTask
}

type ScheduledTask interface {
	// Cancel prevents further runs. With mayInterrupt the context passed to an
	// in-flight run is cancelled too.
	Cancel(mayInterrupt bool)
	IsCancelled() bool
}

// TickerScheduler runs every task on its own goroutine driven by a timer.
type TickerScheduler struct{}

func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

func (s *TickerScheduler) ScheduleWithFixedDelay(task func(ctx context.Context), initialDelay, delay time.Duration) ScheduledTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &timerTask{
		stop:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go t.run(task, initialDelay, delay)
	return t
}

type timerTask struct {
	once      sync.Once
	stop      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool
	mu        sync.Mutex
}

func (t *timerTask) run(task func(ctx context.Context), initialDelay, delay time.Duration) {
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()
	defer t.cancel()
	for {
		select {
		case <-t.stop:
			return
		case <-timer.C:
			// a Cancel that raced the timer wins
			select {
			case <-t.stop:
				return
			default:
			}
			task(t.ctx)
			timer.Reset(delay)
		}
	}
}

func (t *timerTask) Cancel(mayInterrupt bool) {
	t.once.Do(func() {
		t.mu.Lock()
		t.cancelled = true
		t.mu.Unlock()
		close(t.stop)
		if mayInterrupt {
			t.cancel()
		}
	})
}

func (t *timerTask) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}
