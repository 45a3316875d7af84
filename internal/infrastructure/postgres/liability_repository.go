package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finlink/internal/domain/liability"
)

// LiabilityRepository implements liability.Repository on Postgres.
type LiabilityRepository struct {
	db *DB
}

func NewLiabilityRepository(db *DB) *LiabilityRepository {
	return &LiabilityRepository{db: db}
}

const liabilityColumns = `
	id, user_id, external_id, item_id, kind, name, mask, balance,
	credit_limit, currency, interest_rate, minimum_payment,
	next_payment_due_date, days_until_due, is_overdue,
	last_statement_balance, last_statement_date, origination_date,
	original_principal, created_at, updated_at`

func (r *LiabilityRepository) Upsert(ctx context.Context, params liability.UpsertParams) (*liability.Account, bool, error) {
	query := `
		INSERT INTO liability_accounts (
			user_id, external_id, item_id, kind, name, mask, balance,
			credit_limit, currency, interest_rate, minimum_payment,
			next_payment_due_date, days_until_due, is_overdue,
			last_statement_balance, last_statement_date, origination_date,
			original_principal
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			mask = EXCLUDED.mask,
			balance = EXCLUDED.balance,
			credit_limit = EXCLUDED.credit_limit,
			currency = EXCLUDED.currency,
			interest_rate = EXCLUDED.interest_rate,
			minimum_payment = EXCLUDED.minimum_payment,
			next_payment_due_date = EXCLUDED.next_payment_due_date,
			days_until_due = EXCLUDED.days_until_due,
			is_overdue = EXCLUDED.is_overdue,
			last_statement_balance = EXCLUDED.last_statement_balance,
			last_statement_date = EXCLUDED.last_statement_date,
			origination_date = EXCLUDED.origination_date,
			original_principal = EXCLUDED.original_principal,
			updated_at = NOW()
		RETURNING` + liabilityColumns + `, (xmax = 0) AS inserted`

	row := r.db.QueryRowContext(ctx, query,
		params.UserID,
		params.ExternalID,
		params.ItemID,
		params.Kind,
		params.Name,
		nullableString(params.Mask),
		params.Balance,
		nullableFloat64(params.CreditLimit),
		params.Currency,
		nullableFloat64(params.InterestRate),
		nullableFloat64(params.MinimumPayment),
		nullableTime(params.NextPaymentDueDate),
		nullableInt(params.DaysUntilDue),
		params.IsOverdue,
		nullableFloat64(params.LastStatementBalance),
		nullableTime(params.LastStatementDate),
		nullableTime(params.OriginationDate),
		nullableFloat64(params.OriginalPrincipal),
	)

	acc, inserted, err := scanLiabilityWithInserted(row)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert liability: %w", err)
	}
	return acc, inserted, nil
}

func (r *LiabilityRepository) GetByExternalID(ctx context.Context, userID int64, externalID string) (*liability.Account, error) {
	query := `SELECT` + liabilityColumns + ` FROM liability_accounts WHERE user_id = $1 AND external_id = $2`
	acc, err := scanLiability(r.db.QueryRowContext(ctx, query, userID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return acc, err
}

func (r *LiabilityRepository) ListByUserID(ctx context.Context, userID int64) ([]*liability.Account, error) {
	query := `SELECT` + liabilityColumns + ` FROM liability_accounts WHERE user_id = $1 ORDER BY kind, name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liabilities: %w", err)
	}
	defer rows.Close()
	return collectLiabilities(rows)
}

func (r *LiabilityRepository) ListByItemID(ctx context.Context, itemID string) ([]*liability.Account, error) {
	query := `SELECT` + liabilityColumns + ` FROM liability_accounts WHERE item_id = $1 ORDER BY kind, name`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liabilities by item: %w", err)
	}
	defer rows.Close()
	return collectLiabilities(rows)
}

func scanLiabilityInto(row rowScanner, acc *liability.Account, extra ...any) error {
	var mask sql.NullString
	var creditLimit, interestRate, minimumPayment, lastStatementBalance, originalPrincipal sql.NullFloat64
	var nextPaymentDueDate, lastStatementDate, originationDate sql.NullTime
	var daysUntilDue sql.NullInt64

	dest := []any{
		&acc.ID,
		&acc.UserID,
		&acc.ExternalID,
		&acc.ItemID,
		&acc.Kind,
		&acc.Name,
		&mask,
		&acc.Balance,
		&creditLimit,
		&acc.Currency,
		&interestRate,
		&minimumPayment,
		&nextPaymentDueDate,
		&daysUntilDue,
		&acc.IsOverdue,
		&lastStatementBalance,
		&lastStatementDate,
		&originationDate,
		&originalPrincipal,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}

	if mask.Valid {
		acc.Mask = &mask.String
	}
	if creditLimit.Valid {
		acc.CreditLimit = &creditLimit.Float64
	}
	if interestRate.Valid {
		acc.InterestRate = &interestRate.Float64
	}
	if minimumPayment.Valid {
		acc.MinimumPayment = &minimumPayment.Float64
	}
	if nextPaymentDueDate.Valid {
		acc.NextPaymentDueDate = &nextPaymentDueDate.Time
	}
	if daysUntilDue.Valid {
		days := int(daysUntilDue.Int64)
		acc.DaysUntilDue = &days
	}
	if lastStatementBalance.Valid {
		acc.LastStatementBalance = &lastStatementBalance.Float64
	}
	if lastStatementDate.Valid {
		acc.LastStatementDate = &lastStatementDate.Time
	}
	if originationDate.Valid {
		acc.OriginationDate = &originationDate.Time
	}
	if originalPrincipal.Valid {
		acc.OriginalPrincipal = &originalPrincipal.Float64
	}
	return nil
}

func scanLiability(row rowScanner) (*liability.Account, error) {
	var acc liability.Account
	if err := scanLiabilityInto(row, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func scanLiabilityWithInserted(row rowScanner) (*liability.Account, bool, error) {
	var acc liability.Account
	var inserted bool
	if err := scanLiabilityInto(row, &acc, &inserted); err != nil {
		return nil, false, err
	}
	return &acc, inserted, nil
}

func collectLiabilities(rows *sql.Rows) ([]*liability.Account, error) {
	var accounts []*liability.Account
	for rows.Next() {
		acc, err := scanLiability(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liability: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func nullableFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullableInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
