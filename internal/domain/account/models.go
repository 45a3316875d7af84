// Package account holds depository and investment accounts mirrored
// from the aggregator. Rows are keyed by the aggregator's account id,
// so re-syncing updates in place instead of duplicating.
package account

import (
	"context"
	"time"
)

// SyncStatus marks whether the backing connection still feeds the account.
type SyncStatus string

const (
	SyncStatusActive       SyncStatus = "active"
	SyncStatusDisconnected SyncStatus = "disconnected"
)

// Account is a cash or investment account owned by a user.
type Account struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	ExternalID    string     `json:"external_id"`
	ItemID        string     `json:"item_id"`
	Name          string     `json:"name"`
	OfficialName  *string    `json:"official_name,omitempty"`
	Type          string     `json:"type"`
	Mask          *string    `json:"mask,omitempty"`
	Balance       float64    `json:"balance"`
	Currency      string     `json:"currency"`
	SyncStatus    SyncStatus `json:"sync_status"`
	StatusMessage *string    `json:"status_message,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Internal account types. The aggregator's subtype vocabulary is much
// wider; everything unrecognized lands on checking.
const (
	TypeChecking   = "checking"
	TypeSavings    = "savings"
	TypeInvestment = "investment"
)

var subtypeMap = map[string]string{
	"checking":        TypeChecking,
	"paypal":          TypeChecking,
	"prepaid":         TypeChecking,
	"cash management": TypeChecking,
	"savings":         TypeSavings,
	"money market":    TypeSavings,
	"cd":              TypeSavings,
	"hsa":             TypeSavings,
}

// MapSubtype converts an aggregator depository subtype to the internal
// account type, defaulting to checking.
func MapSubtype(subtype string) string {
	if mapped, ok := subtypeMap[subtype]; ok {
		return mapped
	}
	return TypeChecking
}

// UpsertParams is the aggregator-sourced state written on every sync.
type UpsertParams struct {
	UserID       int64
	ExternalID   string
	ItemID       string
	Name         string
	OfficialName *string
	Type         string
	Mask         *string
	Balance      float64
	Currency     string
}

// Repository persists accounts. Upsert is keyed by (user id, external id).
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByExternalID(ctx context.Context, userID int64, externalID string) (*Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)
	ListByItemID(ctx context.Context, itemID string) ([]*Account, error)
	MarkDisconnectedByItemID(ctx context.Context, itemID, message string) (int64, error)
}
