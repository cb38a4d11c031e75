package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Task is one run of a periodic activity
type Task func(ctx context.Context)

// ScheduleParams configures a schedule
type ScheduleParams struct {
	Name     string
	Interval time.Duration
	Clock    clockwork.Clock
	Task     Task
	Logger   zerolog.Logger
}

// Schedule runs a task immediately and then on every tick until stopped.
// Runs never overlap. Stop must be called on every path that started it.
type Schedule struct {
	name     string
	interval time.Duration
	clock    clockwork.Clock
	task     Task
	wakeCh   chan struct{}
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Start launches a schedule bound to parent. Cancelling parent also stops
// the loop, but Stop is still required to wait for it.
func Start(parent context.Context, params ScheduleParams) (*Schedule, error) {
	if params.Interval <= 0 {
		return nil, fmt.Errorf("schedule %q: interval must be positive", params.Name)
	}
	if params.Task == nil {
		return nil, fmt.Errorf("schedule %q: task is required", params.Name)
	}
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Schedule{
		name:     params.Name,
		interval: params.Interval,
		clock:    params.Clock,
		task:     params.Task,
		wakeCh:   make(chan struct{}, 1),
		logger:   params.Logger.With().Str("schedule", params.Name).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Debug().Dur("interval", s.interval).Msg("Schedule started")
	return s, nil
}

// Trigger requests an out-of-cycle run. Requests made while a run is
// pending are coalesced.
func (s *Schedule) Trigger() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Stop cancels the schedule and waits for the running task to return.
// Safe to call more than once.
func (s *Schedule) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.logger.Debug().Msg("Schedule stopped")
	})
}

// Done is closed once the schedule has been cancelled
func (s *Schedule) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Schedule) loop() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.run()

	for {
		select {
		case <-ticker.Chan():
			s.run()
		case <-s.wakeCh:
			s.run()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Schedule) run() {
	if s.ctx.Err() != nil {
		return
	}

	defer func() {
		if err := recover(); err != nil {
			s.logger.Error().Interface("panic", err).Msg("Scheduled task panicked")
		}
	}()

	s.task(s.ctx)
}
