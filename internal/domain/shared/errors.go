package shared

import "errors"

// Domain-specific errors
var (
	// Validation errors, surfaced to the bidder and never sent to the ledger
	ErrBidTooLow       = errors.New("bid amount is below the minimum bid")
	ErrAuctionEnded    = errors.New("auction has ended")
	ErrNotSignedIn     = errors.New("please log in to place a bid")
	ErrNoPendingIntent = errors.New("no bid awaiting confirmation")
	ErrCommitInFlight  = errors.New("a bid is already being placed")

	// Commit errors
	ErrCommitFailed = errors.New("failed to place bid")

	// Session errors
	ErrSessionClosed     = errors.New("bid session is closed")
	ErrNoActiveSession   = errors.New("no item subscribed")
	ErrInvalidIncrement  = errors.New("unknown bid increment")
	ErrInvalidItem       = errors.New("invalid auction item")
	ErrInvalidTimeFormat = errors.New("invalid time format")

	// Ledger errors
	ErrLedgerUnavailable = errors.New("bid ledger unavailable")
	ErrLedgerResponse    = errors.New("unexpected bid ledger response")

	// WebSocket message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrItemRequired        = errors.New("item is required")
	ErrInvalidAmount       = errors.New("valid amount is required")
	ErrUnknownMessageType  = errors.New("unknown message type")

	// Broadcasting errors
	ErrBroadcastFailed = errors.New("broadcast failed")
)

// GenericCommitFailure is shown when the ledger gives no reason
const GenericCommitFailure = "Failed to place bid. Please try again."

// CommitError describes a failed commit. Rejected is true when the ledger
// answered and refused the bid, false when the request never completed.
type CommitError struct {
	Reason   string
	Rejected bool
	Err      error
}

func (e *CommitError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = ErrCommitFailed.Error()
	}
	if e.Err != nil {
		return reason + ": " + e.Err.Error()
	}
	return reason
}

// Unwrap lets errors.Is match ErrCommitFailed and the transport cause.
func (e *CommitError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCommitFailed, e.Err}
	}
	return []error{ErrCommitFailed}
}

// UserMessage returns the text shown to the bidder
func (e *CommitError) UserMessage() string {
	if e.Reason == "" {
		return GenericCommitFailure
	}
	return e.Reason
}
