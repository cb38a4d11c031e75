package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"troffee-bid-sync/internal/adapters/scheduler"
	"troffee-bid-sync/internal/config"
	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultTickInterval = time.Second
	feedBufferSize      = 16
	journalTimeout      = 5 * time.Second

	successMessage = "Bid placed successfully!"
)

// BidSession keeps one bidder's view of one item in sync with the ledger and
// drives the submit/confirm/commit protocol. It implements inbound.BidSession.
type BidSession struct {
	id         uuid.UUID
	item       *auction.Item
	bidder     *shared.Bidder
	state      *bid.State
	clock      *auction.Clock
	ledger     outbound.BidLedger
	feed       outbound.BidFeed
	receipts   outbound.ReceiptRepository
	presenter  outbound.Presenter
	timeSource clockwork.Clock
	logger     zerolog.Logger

	pollInterval time.Duration
	tickInterval time.Duration

	scope      *scheduler.Scope
	cancel     context.CancelFunc
	subscribed bool
	feedWG     sync.WaitGroup

	mu         sync.Mutex
	intent     *bid.Intent
	committing bool
	started    bool
	closed     bool
}

type BidSessionParams struct {
	Item         *auction.Item
	Bidder       *shared.Bidder // nil when nobody is signed in
	Ledger       outbound.BidLedger
	Feed         outbound.BidFeed           // optional
	Receipts     outbound.ReceiptRepository // optional
	Presenter    outbound.Presenter
	Clock        clockwork.Clock
	PollInterval time.Duration
	TickInterval time.Duration
	Logger       zerolog.Logger
}

// NewBidSession creates a session seeded from the item. Nothing runs until
// Start.
func NewBidSession(params BidSessionParams) (*BidSession, error) {
	if params.Item == nil {
		return nil, fmt.Errorf("%w: item is required", shared.ErrInvalidItem)
	}
	if err := params.Item.Validate(); err != nil {
		return nil, err
	}
	if params.Ledger == nil {
		return nil, errors.New("bid session: ledger is required")
	}
	if params.Presenter == nil {
		return nil, errors.New("bid session: presenter is required")
	}

	timeSource := params.Clock
	if timeSource == nil {
		timeSource = clockwork.NewRealClock()
	}

	pollInterval := params.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}
	if pollInterval < config.MinPollInterval {
		pollInterval = config.MinPollInterval
	}
	tickInterval := params.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	id := uuid.New()
	logger := params.Logger.With().
		Str("component", "bid_session").
		Str("session_id", id.String()).
		Int64("item_id", params.Item.ID).
		Logger()
	if params.Bidder != nil {
		logger = logger.With().Int64("bidder_id", params.Bidder.ID).Logger()
	}

	return &BidSession{
		id:           id,
		item:         params.Item,
		bidder:       params.Bidder,
		state:        bid.NewState(params.Item.OpeningBid()),
		clock:        auction.NewClock(params.Item.AuctionEnd, timeSource),
		ledger:       params.Ledger,
		feed:         params.Feed,
		receipts:     params.Receipts,
		presenter:    params.Presenter,
		timeSource:   timeSource,
		logger:       logger,
		pollInterval: pollInterval,
		tickInterval: tickInterval,
		scope:        scheduler.NewScope(),
	}, nil
}

// ID returns the session id
func (s *BidSession) ID() uuid.UUID {
	return s.id
}

// Item returns the item being bid on
func (s *BidSession) Item() *auction.Item {
	return s.item
}

// Start acquires the poll and countdown schedules and, when a feed is
// configured, the feed subscription. Anything acquired is released again if
// a later step fails.
func (s *BidSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return shared.ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("bid session already started")
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	poll, err := s.scope.Start(runCtx, scheduler.ScheduleParams{
		Name:     "bid_poll",
		Interval: s.pollInterval,
		Clock:    s.timeSource,
		Task:     s.Reconcile,
		Logger:   s.logger,
	})
	if err != nil {
		s.release()
		return fmt.Errorf("failed to start bid poll: %w", err)
	}

	if _, err := s.scope.Start(runCtx, scheduler.ScheduleParams{
		Name:     "countdown",
		Interval: s.tickInterval,
		Clock:    s.timeSource,
		Task:     s.tick,
		Logger:   s.logger,
	}); err != nil {
		s.release()
		return fmt.Errorf("failed to start countdown: %w", err)
	}

	if s.feed != nil {
		events := make(chan outbound.Event, feedBufferSize)
		if err := s.feed.Subscribe(runCtx, s.item.ID, s.id.String(), events); err != nil {
			s.release()
			return fmt.Errorf("failed to subscribe to bid feed: %w", err)
		}
		s.mu.Lock()
		s.subscribed = true
		s.mu.Unlock()

		s.feedWG.Add(1)
		go s.forwardFeed(runCtx, events, poll)
	}

	s.logger.Info().
		Dur("poll_interval", s.pollInterval).
		Dur("tick_interval", s.tickInterval).
		Bool("feed", s.feed != nil).
		Msg("Bid session started")
	return nil
}

// Close releases everything Start acquired. Safe to call more than once and
// without a prior Start. Must not be called from a scheduled task.
func (s *BidSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.intent = nil
	s.mu.Unlock()

	s.release()
	s.logger.Info().Msg("Bid session closed")
}

func (s *BidSession) release() {
	s.mu.Lock()
	cancel := s.cancel
	subscribed := s.subscribed
	s.subscribed = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.scope.Close()

	if subscribed {
		ctx, done := context.WithTimeout(context.Background(), journalTimeout)
		if err := s.feed.Unsubscribe(ctx, s.item.ID, s.id.String()); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to unsubscribe from bid feed")
		}
		done()
	}
	s.feedWG.Wait()
}

// forwardFeed turns pushed bid events into out-of-cycle polls. The event
// payload is never trusted as a value.
func (s *BidSession) forwardFeed(ctx context.Context, events <-chan outbound.Event, poll *scheduler.Schedule) {
	defer s.feedWG.Done()

	for {
		select {
		case event := <-events:
			if event.Type != outbound.EventTypeBidPlaced {
				continue
			}
			s.logger.Debug().Str("event_type", string(event.Type)).Msg("Bid feed nudged poll")
			poll.Trigger()
		case <-ctx.Done():
			return
		}
	}
}

// Reconcile polls the ledger once and merges the highest observed bid.
// Failures are logged and left for the next poll.
func (s *BidSession) Reconcile(ctx context.Context) {
	bids, err := s.ledger.FetchBids(ctx, s.item.ID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("Bid poll failed")
		}
		return
	}

	highest, ok := bid.MaxAmount(bids)
	if !ok || s.isClosed() {
		return
	}

	if s.state.Raise(highest) {
		s.logger.Debug().Int64("current_bid", highest).Msg("Observed higher bid")
		s.presenter.ShowState(s.View())
	}
}

func (s *BidSession) tick(ctx context.Context) {
	reading, transitioned := s.clock.Tick()
	if transitioned {
		// a pending intent survives the end, the ledger decides whether it is late
		s.mu.Lock()
		pending := s.intent != nil
		s.mu.Unlock()

		s.logger.Info().Bool("pending_intent", pending).Msg("Auction ended")
		s.presenter.ShowEnded(s.View())
		return
	}
	if reading.Ended() {
		return
	}
	s.presenter.ShowState(s.View())
}

// SetDraft replaces the bidder's candidate amount
func (s *BidSession) SetDraft(amount int64) {
	s.state.SetDraft(amount)
	s.presenter.ShowState(s.View())
}

// SelectIncrement sets the draft to one of the quick-select amounts
func (s *BidSession) SelectIncrement(index int) error {
	increments := s.state.Snapshot().Increments
	if index < 0 || index >= len(increments) {
		return fmt.Errorf("%w: %d", shared.ErrInvalidIncrement, index)
	}
	s.SetDraft(increments[index])
	return nil
}

// Submit validates the draft against the live state and records an intent
// for the bidder to confirm. Validation failures never reach the ledger.
func (s *BidSession) Submit() (*bid.Intent, error) {
	if s.clock.Read().Ended() {
		return nil, shared.ErrAuctionEnded
	}

	snap := s.state.Snapshot()
	if snap.Draft < snap.MinBid {
		return nil, fmt.Errorf("%w: minimum bid is %d", shared.ErrBidTooLow, snap.MinBid)
	}

	intent := bid.NewIntent(s.item.ID, snap.Draft, s.timeSource.Now())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, shared.ErrSessionClosed
	}
	if s.committing {
		s.mu.Unlock()
		return nil, shared.ErrCommitInFlight
	}
	s.intent = intent
	s.mu.Unlock()

	s.logger.Info().
		Str("intent_id", intent.ID.String()).
		Int64("amount", intent.Amount).
		Msg("Bid awaiting confirmation")

	s.presenter.ShowIntent(*intent)

	result := *intent
	return &result, nil
}

// Cancel drops the pending intent
func (s *BidSession) Cancel() {
	s.mu.Lock()
	dropped := s.intent != nil
	s.intent = nil
	s.mu.Unlock()

	if dropped {
		s.logger.Debug().Msg("Bid intent cancelled")
		s.presenter.ShowState(s.View())
	}
}

// Confirm commits the pending intent. The intent survives a failed commit so
// the bidder can retry. The deadline is left to the ledger.
func (s *BidSession) Confirm(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.intent == nil:
		s.mu.Unlock()
		return shared.ErrNoPendingIntent
	case s.bidder == nil:
		s.mu.Unlock()
		return shared.ErrNotSignedIn
	case s.committing:
		s.mu.Unlock()
		return shared.ErrCommitInFlight
	}
	intent := *s.intent
	s.committing = true
	s.mu.Unlock()

	s.logger.Info().
		Str("intent_id", intent.ID.String()).
		Int64("amount", intent.Amount).
		Msg("Committing bid")

	result, err := s.ledger.SubmitBid(ctx, outbound.CommitRequest{
		Item:       s.item,
		Bidder:     s.bidder,
		Amount:     intent.Amount,
		CurrentBid: s.state.Current(),
	})

	s.mu.Lock()
	s.committing = false
	closed := s.closed
	if err == nil && s.intent != nil && s.intent.ID == intent.ID {
		s.intent = nil
	}
	s.mu.Unlock()

	if err != nil {
		return s.commitFailed(ctx, intent, err, closed)
	}

	committed := intent.Amount
	if result != nil && result.Amount > committed {
		committed = result.Amount
	}
	s.journal(ctx, intent, committed, shared.OutcomeAccepted, "")

	if closed {
		s.logger.Warn().Int64("amount", committed).Msg("Bid accepted after session closed, not applied")
		return nil
	}

	s.state.Raise(committed)
	s.logger.Info().Int64("amount", committed).Msg("Bid placed")

	s.presenter.ShowNotice(shared.Notice{Level: shared.NoticeSuccess, Message: successMessage, Amount: committed})
	s.presenter.ShowState(s.View())
	s.publishPlaced(ctx, committed)
	return nil
}

func (s *BidSession) commitFailed(ctx context.Context, intent bid.Intent, err error, closed bool) error {
	var commitErr *shared.CommitError
	if !errors.As(err, &commitErr) {
		commitErr = &shared.CommitError{Err: err}
	}

	outcome := shared.OutcomeFailed
	if commitErr.Rejected {
		outcome = shared.OutcomeRejected
	}
	message := commitErr.UserMessage()
	s.journal(ctx, intent, intent.Amount, outcome, message)

	s.logger.Warn().
		Err(err).
		Str("outcome", string(outcome)).
		Int64("amount", intent.Amount).
		Msg("Bid commit failed")

	if !closed {
		s.presenter.ShowNotice(shared.Notice{Level: shared.NoticeError, Message: message, Amount: intent.Amount})
	}
	return commitErr
}

func (s *BidSession) publishPlaced(ctx context.Context, amount int64) {
	if s.feed == nil {
		return
	}
	event := outbound.Event{
		Type: outbound.EventTypeBidPlaced,
		Data: map[string]interface{}{"amount": amount},
	}
	if err := s.feed.Publish(ctx, s.item.ID, event); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish bid placed event")
	}
}

// journal records a commit receipt. A closed session or cancelled request
// still gets its receipt.
func (s *BidSession) journal(ctx context.Context, intent bid.Intent, amount int64, outcome shared.ReceiptOutcome, reason string) {
	if s.receipts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	receipt := &shared.CommitReceipt{
		ID:        uuid.New(),
		SessionID: s.id,
		IntentID:  intent.ID,
		ItemID:    s.item.ID,
		BidderID:  s.bidder.ID,
		Amount:    amount,
		Outcome:   outcome,
		Reason:    reason,
		CreatedAt: s.timeSource.Now().UTC(),
	}
	if err := s.receipts.Create(ctx, receipt); err != nil {
		s.logger.Error().Err(err).Str("intent_id", intent.ID.String()).Msg("Failed to journal commit receipt")
	}
}

// View returns a consistent snapshot for rendering
func (s *BidSession) View() outbound.BidView {
	snap := s.state.Snapshot()
	reading := s.clock.Read()

	s.mu.Lock()
	var pending *bid.Intent
	if s.intent != nil {
		copied := *s.intent
		pending = &copied
	}
	committing := s.committing
	s.mu.Unlock()

	return outbound.BidView{
		ItemID:        s.item.ID,
		StartingPrice: s.item.StartingPrice,
		CurrentBid:    snap.Current,
		DraftBid:      snap.Draft,
		MinBid:        snap.MinBid,
		BidIncrement:  snap.MinBid - snap.Current,
		Increments:    snap.Increments,
		Clock:         reading,
		TimeRemaining: reading.Display(),
		CanSubmit:     !reading.Ended() && !committing && snap.Draft >= snap.MinBid,
		Pending:       pending,
		Committing:    committing,
	}
}

func (s *BidSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
