package db

import (
	"context"
	"database/sql"
	"fmt"

	"troffee-bid-sync/internal/domain/shared"

	"github.com/google/uuid"
)

const receiptsSchema = `
	CREATE TABLE IF NOT EXISTS bid_commit_receipts (
		id         UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		intent_id  UUID NOT NULL,
		item_id    BIGINT NOT NULL,
		bidder_id  BIGINT NOT NULL,
		amount     BIGINT NOT NULL,
		outcome    TEXT NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS bid_commit_receipts_session_idx
		ON bid_commit_receipts (session_id, created_at);
`

// ReceiptRepository journals commit attempts in PostgreSQL
type ReceiptRepository struct {
	conn *Connection
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(conn *Connection) *ReceiptRepository {
	return &ReceiptRepository{conn: conn}
}

// EnsureSchema creates the receipts table if it is missing
func (r *ReceiptRepository) EnsureSchema(ctx context.Context) error {
	return r.conn.ExecuteTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, receiptsSchema); err != nil {
			return fmt.Errorf("failed to create receipts schema: %w", err)
		}
		return nil
	})
}

// Create records a receipt
func (r *ReceiptRepository) Create(ctx context.Context, receipt *shared.CommitReceipt) error {
	query := `
		INSERT INTO bid_commit_receipts (id, session_id, intent_id, item_id, bidder_id, amount, outcome, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		receipt.ID,
		receipt.SessionID,
		receipt.IntentID,
		receipt.ItemID,
		receipt.BidderID,
		receipt.Amount,
		receipt.Outcome,
		receipt.Reason,
		receipt.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	return nil
}

// ListBySession returns the receipts of a bid session, oldest first
func (r *ReceiptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*shared.CommitReceipt, error) {
	query := `
		SELECT id, session_id, intent_id, item_id, bidder_id, amount, outcome, reason, created_at
		FROM bid_commit_receipts
		WHERE session_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*shared.CommitReceipt
	for rows.Next() {
		var receipt shared.CommitReceipt
		err := rows.Scan(
			&receipt.ID,
			&receipt.SessionID,
			&receipt.IntentID,
			&receipt.ItemID,
			&receipt.BidderID,
			&receipt.Amount,
			&receipt.Outcome,
			&receipt.Reason,
			&receipt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, &receipt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	return receipts, nil
}
