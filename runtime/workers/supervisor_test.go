package workers

import (
	"context"
	goerrors "errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSupervisor_WorkerFinishing_IsNotRestarted(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default(), 10*time.Millisecond)

	var runs atomic.Int32
	supervisor.Add(workerFunc(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not finish")
	}
	req.Equal(int32(1), runs.Load())
}

func TestSupervisor_CrashedWorker_IsRestarted(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default(), time.Millisecond)

	var runs atomic.Int32
	supervisor.Add(workerFunc(func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return goerrors.New("boom")
		}
		return nil
	}))

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not finish after restarts")
	}
	req.Equal(int32(3), runs.Load())
}

func TestSupervisor_PanickingWorker_IsRestarted(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default(), time.Millisecond)

	var runs atomic.Int32
	supervisor.Add(workerFunc(func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("worker exploded")
		}
		return nil
	}))

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not recover from the panic")
	}
	req.Equal(int32(2), runs.Load())
}

func TestSupervisor_Stop_CancelsRunningWorkers(t *testing.T) {
	supervisor := NewSupervisor(slog.Default(), time.Millisecond)
	supervisor.Add(workerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// Give the worker a moment to start before stopping.
	time.Sleep(20 * time.Millisecond)
	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

type workerFunc func(ctx context.Context) error

func (f workerFunc) Run(ctx context.Context) error { return f(ctx) }
