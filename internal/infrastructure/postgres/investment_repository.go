package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finlink/internal/domain/investment"
)

// SecurityRepository implements investment.SecurityRepository on Postgres.
type SecurityRepository struct {
	db *DB
}

func NewSecurityRepository(db *DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

const securityColumns = `
	id, external_id, ticker, name, type, isin, cusip, close_price,
	close_price_as_of, currency, created_at, updated_at`

func (r *SecurityRepository) Upsert(ctx context.Context, params investment.SecurityUpsertParams) (*investment.Security, error) {
	query := `
		INSERT INTO securities (
			external_id, ticker, name, type, isin, cusip, close_price,
			close_price_as_of, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_id) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			isin = EXCLUDED.isin,
			cusip = EXCLUDED.cusip,
			close_price = EXCLUDED.close_price,
			close_price_as_of = EXCLUDED.close_price_as_of,
			currency = EXCLUDED.currency,
			updated_at = NOW()
		RETURNING` + securityColumns

	row := r.db.QueryRowContext(ctx, query,
		params.ExternalID,
		params.Ticker,
		params.Name,
		params.Type,
		nullableString(params.ISIN),
		nullableString(params.CUSIP),
		nullableFloat64(params.ClosePrice),
		nullableTime(params.ClosePriceAsOf),
		params.Currency,
	)
	return scanSecurity(row)
}

func (r *SecurityRepository) GetByExternalID(ctx context.Context, externalID string) (*investment.Security, error) {
	query := `SELECT` + securityColumns + ` FROM securities WHERE external_id = $1`
	sec, err := scanSecurity(r.db.QueryRowContext(ctx, query, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sec, err
}

func scanSecurity(row rowScanner) (*investment.Security, error) {
	var sec investment.Security
	var isin, cusip sql.NullString
	var closePrice sql.NullFloat64
	var closePriceAsOf sql.NullTime

	err := row.Scan(
		&sec.ID,
		&sec.ExternalID,
		&sec.Ticker,
		&sec.Name,
		&sec.Type,
		&isin,
		&cusip,
		&closePrice,
		&closePriceAsOf,
		&sec.Currency,
		&sec.CreatedAt,
		&sec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if isin.Valid {
		sec.ISIN = &isin.String
	}
	if cusip.Valid {
		sec.CUSIP = &cusip.String
	}
	if closePrice.Valid {
		sec.ClosePrice = &closePrice.Float64
	}
	if closePriceAsOf.Valid {
		sec.ClosePriceAsOf = &closePriceAsOf.Time
	}
	return &sec, nil
}

// HoldingRepository implements investment.HoldingRepository on Postgres.
type HoldingRepository struct {
	db *DB
}

func NewHoldingRepository(db *DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

const holdingColumns = `
	id, account_id, security_id, external_security_id, quantity, cost_basis,
	average_cost_basis, institution_price, institution_value, currency,
	created_at, updated_at`

func (r *HoldingRepository) Upsert(ctx context.Context, params investment.HoldingUpsertParams) (*investment.Holding, bool, error) {
	query := `
		INSERT INTO holdings (
			account_id, security_id, external_security_id, quantity, cost_basis,
			average_cost_basis, institution_price, institution_value, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, external_security_id) DO UPDATE SET
			security_id = EXCLUDED.security_id,
			quantity = EXCLUDED.quantity,
			cost_basis = EXCLUDED.cost_basis,
			average_cost_basis = EXCLUDED.average_cost_basis,
			institution_price = EXCLUDED.institution_price,
			institution_value = EXCLUDED.institution_value,
			currency = EXCLUDED.currency,
			updated_at = NOW()
		RETURNING` + holdingColumns + `, (xmax = 0) AS inserted`

	var h investment.Holding
	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		params.AccountID,
		params.SecurityID,
		params.ExternalSecurityID,
		params.Quantity,
		params.CostBasis,
		params.AverageCostBasis,
		params.InstitutionPrice,
		params.InstitutionValue,
		params.Currency,
	).Scan(
		&h.ID,
		&h.AccountID,
		&h.SecurityID,
		&h.ExternalSecurityID,
		&h.Quantity,
		&h.CostBasis,
		&h.AverageCostBasis,
		&h.InstitutionPrice,
		&h.InstitutionValue,
		&h.Currency,
		&h.CreatedAt,
		&h.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert holding: %w", err)
	}
	return &h, inserted, nil
}

func (r *HoldingRepository) ListByAccountID(ctx context.Context, accountID int64) ([]*investment.Holding, error) {
	query := `SELECT` + holdingColumns + ` FROM holdings WHERE account_id = $1 ORDER BY institution_value DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()
	return collectHoldings(rows)
}

func (r *HoldingRepository) ListByUserID(ctx context.Context, userID int64) ([]*investment.Holding, error) {
	query := `
		SELECT h.id, h.account_id, h.security_id, h.external_security_id,
		       h.quantity, h.cost_basis, h.average_cost_basis,
		       h.institution_price, h.institution_value, h.currency,
		       h.created_at, h.updated_at
		FROM holdings h
		JOIN accounts a ON a.id = h.account_id
		WHERE a.user_id = $1
		ORDER BY h.institution_value DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()
	return collectHoldings(rows)
}

func collectHoldings(rows *sql.Rows) ([]*investment.Holding, error) {
	var holdings []*investment.Holding
	for rows.Next() {
		var h investment.Holding
		err := rows.Scan(
			&h.ID,
			&h.AccountID,
			&h.SecurityID,
			&h.ExternalSecurityID,
			&h.Quantity,
			&h.CostBasis,
			&h.AverageCostBasis,
			&h.InstitutionPrice,
			&h.InstitutionValue,
			&h.Currency,
			&h.CreatedAt,
			&h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}
	return holdings, rows.Err()
}

// InvestmentTransactionRepository implements
// investment.TransactionRepository on Postgres.
type InvestmentTransactionRepository struct {
	db *DB
}

func NewInvestmentTransactionRepository(db *DB) *InvestmentTransactionRepository {
	return &InvestmentTransactionRepository{db: db}
}

const investmentTransactionColumns = `
	id, account_id, external_id, external_security_id, type, date, name,
	quantity, amount, price, fees, currency, created_at, updated_at`

func (r *InvestmentTransactionRepository) Upsert(ctx context.Context, params investment.TransactionUpsertParams) (*investment.Transaction, bool, error) {
	query := `
		INSERT INTO investment_transactions (
			account_id, external_id, external_security_id, type, date, name,
			quantity, amount, price, fees, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO UPDATE SET
			type = EXCLUDED.type,
			date = EXCLUDED.date,
			name = EXCLUDED.name,
			quantity = EXCLUDED.quantity,
			amount = EXCLUDED.amount,
			price = EXCLUDED.price,
			fees = EXCLUDED.fees,
			currency = EXCLUDED.currency,
			updated_at = NOW()
		RETURNING` + investmentTransactionColumns + `, (xmax = 0) AS inserted`

	var tx investment.Transaction
	var externalSecurityID sql.NullString
	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		params.AccountID,
		params.ExternalID,
		nullableString(params.ExternalSecurityID),
		params.Type,
		params.Date,
		params.Name,
		params.Quantity,
		params.Amount,
		params.Price,
		params.Fees,
		params.Currency,
	).Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.ExternalID,
		&externalSecurityID,
		&tx.Type,
		&tx.Date,
		&tx.Name,
		&tx.Quantity,
		&tx.Amount,
		&tx.Price,
		&tx.Fees,
		&tx.Currency,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert investment transaction: %w", err)
	}
	if externalSecurityID.Valid {
		tx.ExternalSecurityID = &externalSecurityID.String
	}
	return &tx, inserted, nil
}

func (r *InvestmentTransactionRepository) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*investment.Transaction, error) {
	query := `SELECT` + investmentTransactionColumns + `
		FROM investment_transactions WHERE account_id = $1
		ORDER BY date DESC, id DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list investment transactions: %w", err)
	}
	defer rows.Close()

	var txs []*investment.Transaction
	for rows.Next() {
		var tx investment.Transaction
		var externalSecurityID sql.NullString
		err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&tx.ExternalID,
			&externalSecurityID,
			&tx.Type,
			&tx.Date,
			&tx.Name,
			&tx.Quantity,
			&tx.Amount,
			&tx.Price,
			&tx.Fees,
			&tx.Currency,
			&tx.CreatedAt,
			&tx.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment transaction: %w", err)
		}
		if externalSecurityID.Valid {
			tx.ExternalSecurityID = &externalSecurityID.String
		}
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}
