package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finlink/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository on Postgres.
type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, user_id, account_id, liability_account_id, external_id, amount,
	currency, date, name, merchant_name, category, pending,
	created_at, updated_at`

func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.UpsertResult, error) {
	query := `
		INSERT INTO transactions (
			user_id, account_id, liability_account_id, external_id, amount,
			currency, date, name, merchant_name, category, pending
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			date = EXCLUDED.date,
			name = EXCLUDED.name,
			merchant_name = EXCLUDED.merchant_name,
			category = EXCLUDED.category,
			pending = EXCLUDED.pending,
			updated_at = NOW()
		RETURNING` + transactionColumns + `, (xmax = 0) AS inserted`

	var tx transaction.Transaction
	var accountID, liabilityAccountID sql.NullInt64
	var merchantName, category sql.NullString
	var inserted bool

	err := r.db.QueryRowContext(ctx, query,
		params.UserID,
		nullableInt64(params.AccountID),
		nullableInt64(params.LiabilityAccountID),
		params.ExternalID,
		params.Amount,
		params.Currency,
		params.Date,
		params.Name,
		nullableString(params.MerchantName),
		nullableString(params.Category),
		params.Pending,
	).Scan(
		&tx.ID,
		&tx.UserID,
		&accountID,
		&liabilityAccountID,
		&tx.ExternalID,
		&tx.Amount,
		&tx.Currency,
		&tx.Date,
		&tx.Name,
		&merchantName,
		&category,
		&tx.Pending,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	if accountID.Valid {
		tx.AccountID = &accountID.Int64
	}
	if liabilityAccountID.Valid {
		tx.LiabilityAccountID = &liabilityAccountID.Int64
	}
	if merchantName.Valid {
		tx.MerchantName = &merchantName.String
	}
	if category.Valid {
		tx.Category = &category.String
	}
	return &transaction.UpsertResult{Transaction: &tx, Created: inserted}, nil
}

func (r *TransactionRepository) DeleteByExternalID(ctx context.Context, userID int64, externalID string) (bool, error) {
	query := `DELETE FROM transactions WHERE user_id = $1 AND external_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, externalID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*transaction.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions WHERE account_id = $1
		ORDER BY date DESC, id DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*transaction.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions WHERE user_id = $1
		ORDER BY date DESC, id DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction
	for rows.Next() {
		var tx transaction.Transaction
		var accountID, liabilityAccountID sql.NullInt64
		var merchantName, category sql.NullString

		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&accountID,
			&liabilityAccountID,
			&tx.ExternalID,
			&tx.Amount,
			&tx.Currency,
			&tx.Date,
			&tx.Name,
			&merchantName,
			&category,
			&tx.Pending,
			&tx.CreatedAt,
			&tx.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if accountID.Valid {
			tx.AccountID = &accountID.Int64
		}
		if liabilityAccountID.Valid {
			tx.LiabilityAccountID = &liabilityAccountID.Int64
		}
		if merchantName.Valid {
			tx.MerchantName = &merchantName.String
		}
		if category.Valid {
			tx.Category = &category.String
		}
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

func nullableInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
