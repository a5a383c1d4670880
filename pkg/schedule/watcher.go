package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrDone is returned by a Task to stop the watcher without error
var ErrDone = errors.New("watch complete")

// Task is one unit of work run on every tick
type Task func(ctx context.Context) error

// WatcherConfig contains configuration for a Watcher
type WatcherConfig struct {
	// CronExpr decides when the task runs
	CronExpr string
	// Timezone the expression is evaluated in, UTC when empty
	Timezone string
	// RunOnStart runs the task once before waiting for the first tick
	RunOnStart bool
}

// DefaultWatcherConfig returns the default watcher configuration
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		CronExpr:   "@every 30s",
		RunOnStart: true,
	}
}

// Watcher runs a Task on a cron schedule
type Watcher struct {
	config WatcherConfig
	parser *CronParser
	task   Task
	log    zerolog.Logger
	now    func() time.Time

	running bool
	stopCh  chan struct{}
	done    chan error
	mu      sync.Mutex
}

// NewWatcher creates a watcher. The expression is validated up front.
func NewWatcher(config WatcherConfig, task Task, log zerolog.Logger) (*Watcher, error) {
	parser := NewCronParser()
	if err := parser.Validate(config.CronExpr); err != nil {
		return nil, err
	}
	if _, err := loadLocation(config.Timezone); err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errors.New("task cannot be nil")
	}

	return &Watcher{
		config: config,
		parser: parser,
		task:   task,
		log:    log,
		now:    time.Now,
	}, nil
}

// Run blocks until the task returns ErrDone, the task fails or ctx ends.
// ErrDone and context cancellation are reported as a nil error.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	return w.Wait()
}

// Start begins the watch loop in the background
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.done = make(chan error, 1)

	go func() {
		w.done <- w.run(ctx)
	}()

	w.log.Debug().Str("schedule", w.config.CronExpr).Msg("watcher started")
	return nil
}

// Wait returns once the loop has ended
func (w *Watcher) Wait() error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	err := <-done
	done <- err
	return err
}

// Stop ends the loop and waits for it
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	_ = w.Wait()
	w.log.Debug().Msg("watcher stopped")
}

func (w *Watcher) run(ctx context.Context) error {
	if w.config.RunOnStart {
		if stop, err := w.tick(ctx); stop {
			return err
		}
	}

	for {
		next, err := w.parser.Next(w.config.CronExpr, w.config.Timezone, w.now())
		if err != nil {
			return err
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-w.stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if stop, err := w.tick(ctx); stop {
			return err
		}
	}
}

// tick runs the task once and reports whether the loop should end
func (w *Watcher) tick(ctx context.Context) (bool, error) {
	err := w.task(ctx)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrDone):
		w.log.Debug().Msg("watch complete")
		return true, nil
	case ctx.Err() != nil:
		return true, nil
	default:
		w.log.Debug().Err(err).Msg("watch task failed")
		return true, err
	}
}
