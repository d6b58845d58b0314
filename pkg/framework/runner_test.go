package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitCanceled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerStopsOnError(t *testing.T) {
	failure := errors.New("failure")
	r := NewRunner()
	done := make(chan error, 1)
	go func() {
		done <- r.Run(
			NamedRun("waiter", RunFunc(waitCanceled)),
			NamedRun("failing", RunFunc(func(context.Context) error { return failure })),
		)
	}()
	select {
	case err := <-done:
		require.Equal(t, failure, err)
	case <-time.After(time.Second):
		t.Fatal("runner not stopped")
	}
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(waitCanceled), RunFunc(waitCanceled))
	r.Stop()
	require.NoError(t, r.Wait())
	require.Len(t, r.Runners, 2)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())

	e1, e2 := errors.New("e1"), errors.New("e2")
	require.Equal(t, e1, errs.Add(e1).Aggregate())
	err := errs.Add(e2).Aggregate()
	require.Equal(t, &errs, err)
	require.Equal(t, "multiple errors:\n  e1\n  e2", err.Error())
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan struct{})
	cancel()
	err := RunWithContextCancel(ctx, func() { close(stop) }, func() error {
		<-stop
		return nil
	})
	require.Equal(t, context.Canceled, err)

	err = RunWithContextCancel(context.Background(), nil, func() error { return errors.New("x") })
	require.EqualError(t, err, "x")
}
