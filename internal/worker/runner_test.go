package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeWorker struct {
	runFn func(ctx context.Context) error
}

func (f *fakeWorker) Run(ctx context.Context) error {
	if f.runFn != nil {
		return f.runFn(ctx)
	}
	<-ctx.Done()
	return nil
}

func runAsync(ctx context.Context, r *Runner) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
		return nil
	}
}

func TestRunner_NoWorkers(t *testing.T) {
	t.Parallel()
	if err := wait(t, runAsync(t.Context(), NewRunner())); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunner_StopsWarmerOnCancel(t *testing.T) {
	t.Parallel()
	loaded := make(chan struct{}, 1)
	warmer := NewCacheWarmer(time.Hour, WarmTarget{Key: "latest_rate", Load: func(context.Context) error {
		select {
		case loaded <- struct{}{}:
		default:
		}
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, NewRunner(warmer, &fakeWorker{}))

	<-loaded
	cancel()
	if err := wait(t, done); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunner_ErrorCancelsSiblings(t *testing.T) {
	t.Parallel()
	errDial := errors.New("dns refresh: dial failed")
	siblingStopped := make(chan struct{})
	sibling := &fakeWorker{runFn: func(ctx context.Context) error {
		<-ctx.Done()
		close(siblingStopped)
		return nil
	}}
	failing := &fakeWorker{runFn: func(context.Context) error { return errDial }}

	err := wait(t, runAsync(t.Context(), NewRunner(sibling, failing)))
	if !errors.Is(err, errDial) {
		t.Errorf("err = %v, want %v", err, errDial)
	}
	select {
	case <-siblingStopped:
	default:
		t.Error("sibling worker should be cancelled before Run returns")
	}
}
