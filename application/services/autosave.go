package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQuietPeriod is how long the canvas must stay unchanged before
// an auto-save fires.
const DefaultQuietPeriod = 2 * time.Second

// SaveFunc performs one save of the current canvas state.
type SaveFunc func(ctx context.Context) error

// Autosaver coalesces bursts of canvas changes into at most one save
// per quiet period. Notify marks the canvas dirty and (re)arms the
// timer; Flush runs any pending save synchronously so teardown never
// silently loses the last edit.
type Autosaver struct {
	mu      sync.Mutex
	quiet   time.Duration
	save    SaveFunc
	timer   *time.Timer
	pending bool
	closed  bool
	logger  *zap.Logger
}

// NewAutosaver creates an autosaver. A non-positive quiet period falls
// back to the default.
func NewAutosaver(quiet time.Duration, save SaveFunc, logger *zap.Logger) *Autosaver {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosaver{
		quiet:  quiet,
		save:   save,
		logger: logger,
	}
}

// Notify records that the canvas changed and restarts the quiet-period
// timer. Safe to call from any goroutine.
func (a *Autosaver) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.quiet, a.fire)
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	if a.closed || !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.save(ctx); err != nil {
		a.logger.Error("auto-save failed", zap.Error(err))
		// Leave the canvas dirty so the next quiet period retries.
		a.mu.Lock()
		if !a.closed {
			a.pending = true
			if a.timer != nil {
				a.timer.Stop()
			}
			a.timer = time.AfterFunc(a.quiet, a.fire)
		}
		a.mu.Unlock()
	}
}

// Save runs a save immediately, whether or not one is pending.
func (a *Autosaver) Save(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.pending = false
	a.mu.Unlock()

	return a.save(ctx)
}

// Flush runs any pending save immediately.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	wasPending := a.pending
	a.pending = false
	a.mu.Unlock()

	if !wasPending {
		return nil
	}
	return a.save(ctx)
}

// Close flushes any pending save and stops the autosaver for good.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	wasPending := a.pending
	a.pending = false
	a.mu.Unlock()

	if !wasPending {
		return nil
	}
	return a.save(ctx)
}
