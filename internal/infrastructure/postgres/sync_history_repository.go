package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"finlink/internal/domain/synchistory"
)

func millisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// SyncHistoryRepository implements synchistory.Repository on Postgres.
// Entries are append-only; there is no update or delete path.
type SyncHistoryRepository struct {
	db *DB
}

func NewSyncHistoryRepository(db *DB) *SyncHistoryRepository {
	return &SyncHistoryRepository{db: db}
}

func (r *SyncHistoryRepository) Append(ctx context.Context, entry *synchistory.Entry) error {
	query := `
		INSERT INTO sync_history (
			id, connection_id, user_id, triggered_by, success, accounts_synced,
			transactions_synced, holdings_synced, liabilities_synced,
			errors, duration_ms, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ConnectionID,
		entry.UserID,
		entry.Trigger,
		entry.Success,
		entry.AccountsSynced,
		entry.TransactionsSynced,
		entry.HoldingsSynced,
		entry.LiabilitiesSynced,
		pq.Array(entry.Errors),
		entry.Duration.Milliseconds(),
		entry.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append sync history: %w", err)
	}
	return nil
}

func (r *SyncHistoryRepository) ListByConnectionID(ctx context.Context, connectionID int64, limit int) ([]*synchistory.Entry, error) {
	query := `
		SELECT id, connection_id, user_id, triggered_by, success, accounts_synced,
		       transactions_synced, holdings_synced, liabilities_synced,
		       errors, duration_ms, started_at
		FROM sync_history
		WHERE connection_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, connectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync history: %w", err)
	}
	defer rows.Close()

	var entries []*synchistory.Entry
	for rows.Next() {
		var entry synchistory.Entry
		var durationMS int64
		err := rows.Scan(
			&entry.ID,
			&entry.ConnectionID,
			&entry.UserID,
			&entry.Trigger,
			&entry.Success,
			&entry.AccountsSynced,
			&entry.TransactionsSynced,
			&entry.HoldingsSynced,
			&entry.LiabilitiesSynced,
			pq.Array(&entry.Errors),
			&durationMS,
			&entry.StartedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync history entry: %w", err)
		}
		entry.Duration = millisToDuration(durationMS)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
