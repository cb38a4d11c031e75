package scheduler

import (
	"context"
	"sync"
)

// Scope owns a set of schedules that live and die together
type Scope struct {
	mu        sync.Mutex
	schedules []*Schedule
	closed    bool
}

// NewScope creates an empty scope
func NewScope() *Scope {
	return &Scope{}
}

// Start starts a schedule owned by the scope. A closed scope refuses new
// schedules.
func (sc *Scope) Start(ctx context.Context, params ScheduleParams) (*Schedule, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return nil, context.Canceled
	}

	s, err := Start(ctx, params)
	if err != nil {
		return nil, err
	}
	sc.schedules = append(sc.schedules, s)
	return s, nil
}

// Close stops every schedule in reverse start order
func (sc *Scope) Close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	schedules := sc.schedules
	sc.schedules = nil
	sc.mu.Unlock()

	for i := len(schedules) - 1; i >= 0; i-- {
		schedules[i].Stop()
	}
}

// Len returns the number of live schedules
func (sc *Scope) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.schedules)
}
