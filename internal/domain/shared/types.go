package shared

// CommitResult is what the ledger confirmed for an accepted bid
type CommitResult struct {
	ItemID int64
	Amount int64
}

// NoticeLevel classifies a notice pushed to the bidder
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a toast-style message for the bidder
type Notice struct {
	Level   NoticeLevel
	Message string
	Amount  int64
}
