package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_Validation(t *testing.T) {
	task := func(ctx context.Context) error { return nil }

	_, err := NewWatcher(WatcherConfig{CronExpr: "invalid"}, task, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewWatcher(WatcherConfig{CronExpr: "@every 1s", Timezone: "Invalid/Timezone"}, task, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewWatcher(WatcherConfig{CronExpr: "@every 1s"}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewWatcher(DefaultWatcherConfig(), task, zerolog.Nop())
	assert.NoError(t, err)
}

func TestWatcher_DoneOnStart(t *testing.T) {
	var calls atomic.Int32
	w, err := NewWatcher(WatcherConfig{CronExpr: "@hourly", RunOnStart: true}, func(ctx context.Context) error {
		calls.Add(1)
		return ErrDone
	}, zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, w.Run(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_TaskErrorEndsRun(t *testing.T) {
	boom := errors.New("boom")
	w, err := NewWatcher(WatcherConfig{CronExpr: "@hourly", RunOnStart: true}, func(ctx context.Context) error {
		return boom
	}, zerolog.Nop())
	require.NoError(t, err)

	assert.ErrorIs(t, w.Run(context.Background()), boom)
}

func TestWatcher_RunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	w, err := NewWatcher(WatcherConfig{CronExpr: "@every 1s"}, func(ctx context.Context) error {
		if calls.Add(1) == 2 {
			return ErrDone
		}
		return nil
	}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{CronExpr: "@hourly"}, func(ctx context.Context) error {
		return nil
	}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()), "starting twice is a no-op")

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.NoError(t, w.Wait())

	w.Stop()
}

func TestWatcher_ContextCancel(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{CronExpr: "@hourly"}, func(ctx context.Context) error {
		return nil
	}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	assert.NoError(t, w.Wait())
}
