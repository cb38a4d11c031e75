package bid

import "sync"

// State holds the session's current bid and the bidder's draft. The current
// bid only ever goes up: every writer goes through Raise.
type State struct {
	mu      sync.RWMutex
	current int64
	draft   int64
}

// NewState seeds a state with the item's opening bid
func NewState(opening int64) *State {
	return &State{
		current: opening,
		draft:   MinBid(opening),
	}
}

// Snapshot is a consistent copy of the state
type Snapshot struct {
	Current    int64
	Draft      int64
	MinBid     int64
	Increments []int64
}

// Raise merges an observed or committed amount. It only takes effect when
// amount exceeds the current bid, in which case the draft is reseeded to the
// new minimum bid. Returns true if the current bid changed.
func (s *State) Raise(amount int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= s.current {
		return false
	}
	s.current = amount
	s.draft = MinBid(amount)
	return true
}

// SetDraft replaces the draft. Drafts are not validated until submission.
func (s *State) SetDraft(amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = amount
}

// Current returns the current bid
func (s *State) Current() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Snapshot returns the state with its derived minimums
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	current, draft := s.current, s.draft
	s.mu.RUnlock()

	return Snapshot{
		Current:    current,
		Draft:      draft,
		MinBid:     MinBid(current),
		Increments: Increments(current),
	}
}
