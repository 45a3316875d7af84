// Package transaction stores cash and credit-card transactions mirrored
// from the aggregator's incremental sync feed.
package transaction

import (
	"context"
	"time"
)

// Transaction is a single posted or pending transaction. Exactly one of
// AccountID and LiabilityAccountID is set: cash transactions belong to
// a depository account, card transactions to a liability account.
type Transaction struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	AccountID          *int64     `json:"account_id,omitempty"`
	LiabilityAccountID *int64     `json:"liability_account_id,omitempty"`
	ExternalID         string     `json:"external_id"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	Date               time.Time  `json:"date"`
	Name               string     `json:"name"`
	MerchantName       *string    `json:"merchant_name,omitempty"`
	Category           *string    `json:"category,omitempty"`
	Pending            bool       `json:"pending"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// UpsertParams writes one transaction keyed by its external id.
type UpsertParams struct {
	UserID             int64
	AccountID          *int64
	LiabilityAccountID *int64
	ExternalID         string
	Amount             float64
	Currency           string
	Date               time.Time
	Name               string
	MerchantName       *string
	Category           *string
	Pending            bool
}

// UpsertResult reports whether the row was inserted or updated.
type UpsertResult struct {
	Transaction *Transaction
	Created     bool
}

// Repository persists transactions.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*UpsertResult, error)
	DeleteByExternalID(ctx context.Context, userID int64, externalID string) (bool, error)
	ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*Transaction, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
}
