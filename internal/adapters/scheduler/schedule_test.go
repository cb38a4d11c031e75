package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func waitRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for scheduled run")
	}
}

func requireNoRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
		t.Fatal("unexpected scheduled run")
	case <-time.After(50 * time.Millisecond):
	}
}

func countingParams(fc clockwork.Clock, runs chan struct{}) ScheduleParams {
	return ScheduleParams{
		Name:     "test",
		Interval: time.Second,
		Clock:    fc,
		Task: func(ctx context.Context) {
			runs <- struct{}{}
		},
		Logger: zerolog.Nop(),
	}
}

func TestSchedule_RunsImmediatelyThenOnEveryTick(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClock()
	runs := make(chan struct{}, 10)

	s, err := Start(ctx, countingParams(fc, runs))
	require.NoError(t, err)
	defer s.Stop()

	waitRun(t, runs)
	requireNoRun(t, runs)

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)
	waitRun(t, runs)

	fc.Advance(time.Second)
	waitRun(t, runs)
}

func TestSchedule_TriggerRunsWithoutWaitingForTick(t *testing.T) {
	fc := clockwork.NewFakeClock()
	runs := make(chan struct{}, 10)

	s, err := Start(context.Background(), countingParams(fc, runs))
	require.NoError(t, err)
	defer s.Stop()

	waitRun(t, runs)

	s.Trigger()
	waitRun(t, runs)
}

func TestSchedule_StopHaltsRunsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClock()
	runs := make(chan struct{}, 10)

	s, err := Start(ctx, countingParams(fc, runs))
	require.NoError(t, err)
	waitRun(t, runs)

	s.Stop()
	s.Stop()

	select {
	case <-s.Done():
	default:
		t.Fatal("schedule context should be cancelled after Stop")
	}

	fc.Advance(5 * time.Second)
	s.Trigger()
	requireNoRun(t, runs)
}

func TestSchedule_ParentCancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := clockwork.NewFakeClock()
	runs := make(chan struct{}, 10)

	s, err := Start(ctx, countingParams(fc, runs))
	require.NoError(t, err)
	waitRun(t, runs)

	cancel()

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(waitTimeout):
		t.Fatal("Stop did not return after parent cancellation")
	}
}

func TestSchedule_RecoversFromPanickingTask(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClock()
	runs := make(chan struct{}, 10)
	calls := 0

	s, err := Start(ctx, ScheduleParams{
		Name:     "panicky",
		Interval: time.Second,
		Clock:    fc,
		Task: func(ctx context.Context) {
			calls++
			runs <- struct{}{}
			if calls == 1 {
				panic("boom")
			}
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	defer s.Stop()

	waitRun(t, runs)

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)
	waitRun(t, runs)
}

func TestStart_RejectsInvalidParams(t *testing.T) {
	_, err := Start(context.Background(), ScheduleParams{Name: "no-interval", Task: func(context.Context) {}})
	require.Error(t, err)

	_, err = Start(context.Background(), ScheduleParams{Name: "no-task", Interval: time.Second})
	require.Error(t, err)
}

func TestScope_CloseStopsEverySchedule(t *testing.T) {
	fc := clockwork.NewFakeClock()
	first := make(chan struct{}, 10)
	second := make(chan struct{}, 10)

	scope := NewScope()
	a, err := scope.Start(context.Background(), countingParams(fc, first))
	require.NoError(t, err)
	b, err := scope.Start(context.Background(), countingParams(fc, second))
	require.NoError(t, err)
	require.Equal(t, 2, scope.Len())

	waitRun(t, first)
	waitRun(t, second)

	scope.Close()
	scope.Close()

	require.Equal(t, 0, scope.Len())
	for _, s := range []*Schedule{a, b} {
		select {
		case <-s.Done():
		default:
			t.Fatal("schedule still running after scope close")
		}
	}

	_, err = scope.Start(context.Background(), countingParams(fc, first))
	require.True(t, errors.Is(err, context.Canceled))
}
