package auction

import (
	"fmt"
	"sync"
	"time"

	"troffee-bid-sync/internal/domain/shared"

	"github.com/jonboulle/clockwork"
)

// State is the lifecycle state of an auction as seen by the bidder
type State string

const (
	StateActive State = "ACTIVE"
	StateEnded  State = "ENDED"
)

// Item represents the auctioned item shown to the bidder. It does not change
// for the lifetime of a bid session.
type Item struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartingPrice int64     `json:"starting_price"`
	CurrentBid    int64     `json:"current_bid"`
	AuctionEnd    time.Time `json:"auction_end"`
	Image         string    `json:"image"`
}

// Validate checks the fields a bid session depends on
func (i *Item) Validate() error {
	if i.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", shared.ErrInvalidItem)
	}
	if i.StartingPrice <= 0 {
		return fmt.Errorf("%w: starting price must be positive", shared.ErrInvalidItem)
	}
	if i.CurrentBid < 0 {
		return fmt.Errorf("%w: current bid cannot be negative", shared.ErrInvalidItem)
	}
	if i.AuctionEnd.IsZero() {
		return fmt.Errorf("%w: auction end is required", shared.ErrInvalidItem)
	}
	return nil
}

// OpeningBid is the value a session's current bid is seeded with
func (i *Item) OpeningBid() int64 {
	if i.CurrentBid > i.StartingPrice {
		return i.CurrentBid
	}
	return i.StartingPrice
}

// Reading is one observation of the auction clock
type Reading struct {
	State     State         `json:"state"`
	Remaining time.Duration `json:"-"`
	Days      int64         `json:"days"`
	Hours     int64         `json:"hours"`
	Minutes   int64         `json:"minutes"`
	Seconds   int64         `json:"seconds"`
}

// Ended returns true once the auction has ended
func (r Reading) Ended() bool {
	return r.State == StateEnded
}

// Display renders the countdown the way the bidding panel shows it
func (r Reading) Display() string {
	if r.Ended() {
		return "Auction ended"
	}
	return fmt.Sprintf("%dd %dh %dm %ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}

// Clock derives the auction state from a fixed end time. Once it has read
// ENDED it keeps reading ENDED, even if the wall clock steps backwards.
type Clock struct {
	end       time.Time
	clock     clockwork.Clock
	mu        sync.Mutex
	ended     bool
	announced bool
}

// NewClock creates a clock for an auction ending at end
func NewClock(end time.Time, clock clockwork.Clock) *Clock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Clock{end: end, clock: clock}
}

// End returns the auction end time
func (c *Clock) End() time.Time {
	return c.end
}

// Read returns the current reading. It never consumes the transition that
// Tick reports.
func (c *Clock) Read() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// Tick returns the current reading and whether this call is the first to
// report the ACTIVE -> ENDED transition.
func (c *Clock) Tick() (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reading := c.read()
	if reading.Ended() && !c.announced {
		c.announced = true
		return reading, true
	}
	return reading, false
}

func (c *Clock) read() Reading {
	if c.ended {
		return Reading{State: StateEnded}
	}
	reading := readingAt(c.end, c.clock.Now())
	if reading.Ended() {
		c.ended = true
	}
	return reading
}

func readingAt(end, now time.Time) Reading {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return Reading{State: StateEnded}
	}
	diff := remaining.Milliseconds()

	const (
		second = int64(1000)
		minute = 60 * second
		hour   = 60 * minute
		day    = 24 * hour
	)

	return Reading{
		State:     StateActive,
		Remaining: remaining,
		Days:      diff / day,
		Hours:     (diff % day) / hour,
		Minutes:   (diff % hour) / minute,
		Seconds:   (diff % minute) / second,
	}
}
