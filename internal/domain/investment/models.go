// Package investment stores securities, holdings, and investment
// transactions mirrored from the aggregator.
package investment

import (
	"context"
	"time"
)

// TickerUnknown stands in for securities the aggregator reports without
// a ticker symbol.
const TickerUnknown = "N/A"

// Security is a tradeable instrument shared across users. Rows are
// keyed by the aggregator's security id.
type Security struct {
	ID             int64      `json:"id"`
	ExternalID     string     `json:"external_id"`
	Ticker         string     `json:"ticker"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	ISIN           *string    `json:"isin,omitempty"`
	CUSIP          *string    `json:"cusip,omitempty"`
	ClosePrice     *float64   `json:"close_price,omitempty"`
	ClosePriceAsOf *time.Time `json:"close_price_as_of,omitempty"`
	Currency       string     `json:"currency"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Holding is a position in one security inside one investment account,
// keyed by (account id, external security id).
type Holding struct {
	ID                 int64     `json:"id"`
	AccountID          int64     `json:"account_id"`
	SecurityID         int64     `json:"security_id"`
	ExternalSecurityID string    `json:"external_security_id"`
	Quantity           float64   `json:"quantity"`
	CostBasis          float64   `json:"cost_basis"`
	AverageCostBasis   float64   `json:"average_cost_basis"`
	InstitutionPrice   float64   `json:"institution_price"`
	InstitutionValue   float64   `json:"institution_value"`
	Currency           string    `json:"currency"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TransactionType is the internal classification of an investment
// transaction.
type TransactionType string

const (
	TypeBuy        TransactionType = "buy"
	TypeSell       TransactionType = "sell"
	TypeDividend   TransactionType = "dividend"
	TypeInterest   TransactionType = "interest"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeFee        TransactionType = "fee"
	TypeTransfer   TransactionType = "transfer"
	TypeOther      TransactionType = "other"
)

// ClassifyType maps the aggregator's type/subtype pair onto the internal
// set. Cash movements split on subtype: dividends, interest, and
// contributions/withdrawals each get their own class; everything
// unrecognized is other.
func ClassifyType(extType, extSubtype string) TransactionType {
	switch extType {
	case "buy":
		return TypeBuy
	case "sell":
		return TypeSell
	case "cash":
		switch extSubtype {
		case "dividend":
			return TypeDividend
		case "interest":
			return TypeInterest
		case "contribution":
			return TypeDeposit
		case "withdrawal":
			return TypeWithdrawal
		}
		return TypeOther
	case "fee":
		return TypeFee
	case "transfer":
		return TypeTransfer
	case "dividend":
		return TypeDividend
	}
	return TypeOther
}

// Transaction is a single investment transaction keyed by the
// aggregator's transaction id.
type Transaction struct {
	ID                 int64           `json:"id"`
	AccountID          int64           `json:"account_id"`
	ExternalID         string          `json:"external_id"`
	ExternalSecurityID *string         `json:"external_security_id,omitempty"`
	Type               TransactionType `json:"type"`
	Date               time.Time       `json:"date"`
	Name               string          `json:"name"`
	Quantity           float64         `json:"quantity"`
	Amount             float64         `json:"amount"`
	Price              float64         `json:"price"`
	Fees               float64         `json:"fees"`
	Currency           string          `json:"currency"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SecurityUpsertParams writes one security keyed by its external id.
type SecurityUpsertParams struct {
	ExternalID     string
	Ticker         string
	Name           string
	Type           string
	ISIN           *string
	CUSIP          *string
	ClosePrice     *float64
	ClosePriceAsOf *time.Time
	Currency       string
}

// HoldingUpsertParams writes one holding keyed by
// (account id, external security id).
type HoldingUpsertParams struct {
	AccountID          int64
	SecurityID         int64
	ExternalSecurityID string
	Quantity           float64
	CostBasis          float64
	AverageCostBasis   float64
	InstitutionPrice   float64
	InstitutionValue   float64
	Currency           string
}

// TransactionUpsertParams writes one investment transaction keyed by
// its external id.
type TransactionUpsertParams struct {
	AccountID          int64
	ExternalID         string
	ExternalSecurityID *string
	Type               TransactionType
	Date               time.Time
	Name               string
	Quantity           float64
	Amount             float64
	Price              float64
	Fees               float64
	Currency           string
}

// SecurityRepository persists securities.
type SecurityRepository interface {
	Upsert(ctx context.Context, params SecurityUpsertParams) (*Security, error)
	GetByExternalID(ctx context.Context, externalID string) (*Security, error)
}

// HoldingRepository persists holdings.
type HoldingRepository interface {
	Upsert(ctx context.Context, params HoldingUpsertParams) (*Holding, bool, error)
	ListByAccountID(ctx context.Context, accountID int64) ([]*Holding, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Holding, error)
}

// TransactionRepository persists investment transactions.
type TransactionRepository interface {
	Upsert(ctx context.Context, params TransactionUpsertParams) (*Transaction, bool, error)
	ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*Transaction, error)
}
