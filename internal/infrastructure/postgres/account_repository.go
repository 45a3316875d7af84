package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finlink/internal/domain/account"
)

// AccountRepository implements account.Repository on Postgres.
type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `
	id, user_id, external_id, item_id, name, official_name, type, mask,
	balance, currency, sync_status, status_message, last_synced_at,
	created_at, updated_at`

func (r *AccountRepository) Upsert(ctx context.Context, params account.UpsertParams) (*account.Account, error) {
	query := `
		INSERT INTO accounts (
			user_id, external_id, item_id, name, official_name, type, mask,
			balance, currency, sync_status, last_synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			official_name = EXCLUDED.official_name,
			type = EXCLUDED.type,
			mask = EXCLUDED.mask,
			balance = EXCLUDED.balance,
			currency = EXCLUDED.currency,
			sync_status = EXCLUDED.sync_status,
			status_message = NULL,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING` + accountColumns

	row := r.db.QueryRowContext(ctx, query,
		params.UserID,
		params.ExternalID,
		params.ItemID,
		params.Name,
		nullableString(params.OfficialName),
		params.Type,
		nullableString(params.Mask),
		params.Balance,
		params.Currency,
		account.SyncStatusActive,
	)
	return scanAccount(row)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE id = $1`
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return acc, err
}

func (r *AccountRepository) GetByExternalID(ctx context.Context, userID int64, externalID string) (*account.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE user_id = $1 AND external_id = $2`
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, userID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return acc, err
}

func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *AccountRepository) ListByItemID(ctx context.Context, itemID string) ([]*account.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE item_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by item: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *AccountRepository) MarkDisconnectedByItemID(ctx context.Context, itemID, message string) (int64, error) {
	query := `
		UPDATE accounts
		SET sync_status = $1, status_message = $2, updated_at = NOW()
		WHERE item_id = $3`
	result, err := r.db.ExecContext(ctx, query, account.SyncStatusDisconnected, message, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark accounts disconnected: %w", err)
	}
	return result.RowsAffected()
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	var officialName, mask, statusMessage sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&acc.ID,
		&acc.UserID,
		&acc.ExternalID,
		&acc.ItemID,
		&acc.Name,
		&officialName,
		&acc.Type,
		&mask,
		&acc.Balance,
		&acc.Currency,
		&acc.SyncStatus,
		&statusMessage,
		&lastSyncedAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if officialName.Valid {
		acc.OfficialName = &officialName.String
	}
	if mask.Valid {
		acc.Mask = &mask.String
	}
	if statusMessage.Valid {
		acc.StatusMessage = &statusMessage.String
	}
	if lastSyncedAt.Valid {
		acc.LastSyncedAt = &lastSyncedAt.Time
	}
	return &acc, nil
}

func collectAccounts(rows *sql.Rows) ([]*account.Account, error) {
	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
