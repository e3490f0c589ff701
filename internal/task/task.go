// Package task runs and tracks the goroutines of an LRCP endpoint: the datagram
// receive loop and the per-session retransmission timers.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-lrcp/logger"
)

// Func is a unit of work run by the Manager. Returning false stops the goroutine.
type Func func() bool

// Manager manages the lifecycle of goroutines.
//
// All goroutines observe the manager's context; Stop cancels it and Wait blocks until every
// goroutine has returned. After Wait the manager can be reused with a fresh context.
type Manager struct {
	pctx    context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	count   atomic.Int32
	tickers sync.Map     // map[string]*intervalTask
	mu      sync.RWMutex // protect ctx and cancel
	taskMu  sync.RWMutex // protect task creation during Wait()
}

// NewManager creates a Manager using ctx as the parent context.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

func (mgr *Manager) getContext() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Context returns the context observed by managed goroutines.
func (mgr *Manager) Context() context.Context {
	return mgr.getContext()
}

// Start runs fn repeatedly in a new goroutine until it returns false or the manager stops.
func (mgr *Manager) Start(name string, fn Func) error {
	mgr.logger.Debug("start task", "name", name)

	ctx := mgr.getContext()
	if ctx.Err() != nil {
		return fmt.Errorf("start %s: task manager already stopped", name)
	}

	mgr.spawn(name, func() {
		for {
			if mgr.getContext().Err() != nil {
				return
			}
			if !mgr.callWithRecover(name, fn) {
				return
			}
		}
	})

	return nil
}

// StartInterval runs fn every interval in a new goroutine until fn returns false,
// the interval is stopped with StopInterval, or the manager stops.
//
// Interval names must be unique among running interval tasks.
func (mgr *Manager) StartInterval(name string, fn Func, interval time.Duration) error {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval)

	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	ctx := mgr.getContext()
	if ctx.Err() != nil {
		return fmt.Errorf("start %s: task manager already stopped", name)
	}

	it := &intervalTask{ticker: time.NewTicker(interval), done: make(chan struct{})}
	if _, loaded := mgr.tickers.LoadOrStore(name, it); loaded {
		it.ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}

	mgr.spawn(name, func() {
		defer func() {
			it.stop()
			mgr.tickers.CompareAndDelete(name, it)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-it.done:
				return
			case <-it.ticker.C:
				if !mgr.callWithRecover(name, fn) {
					return
				}
			}
		}
	})

	return nil
}

// StopInterval stops the interval task with the given name.
func (mgr *Manager) StopInterval(name string) error {
	val, ok := mgr.tickers.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("interval task %s not found", name)
	}
	val.(*intervalTask).stop()

	return nil
}

// HasInterval reports whether an interval task with the given name is running.
func (mgr *Manager) HasInterval(name string) bool {
	_, ok := mgr.tickers.Load(name)
	return ok
}

// Stop signals all running goroutines to terminate.
func (mgr *Manager) Stop() {
	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait waits for all goroutines to terminate and prepares a fresh context for reuse.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// Count returns the number of currently running goroutines.
func (mgr *Manager) Count() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) spawn(name string, body func()) {
	mgr.taskMu.RLock()
	defer mgr.taskMu.RUnlock()

	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer mgr.wg.Done()
		defer func() {
			mgr.count.Add(-1)
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.Count())
		}()

		body()
	}()
}

// callWithRecover runs fn and converts a panic into a stop request.
func (mgr *Manager) callWithRecover(name string, fn Func) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			cont = false
		}
	}()

	return fn()
}

type intervalTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (it *intervalTask) stop() {
	it.once.Do(func() {
		it.ticker.Stop()
		close(it.done)
	})
}
