package sync

import (
	"time"

	"finlink/internal/domain/connection"
)

// ProductOutcome is what one pipeline reports for one run. Errors holds
// per-row failures that did not stop the run; a pipeline-level failure
// comes back as the Sync error instead.
type ProductOutcome struct {
	Product      connection.Product `json:"product"`
	Accounts     int                `json:"accounts"`
	Securities   int                `json:"securities"`
	Holdings     int                `json:"holdings"`
	Transactions int                `json:"transactions"`
	Liabilities  int                `json:"liabilities"`
	Created      int                `json:"created"`
	Updated      int                `json:"updated"`
	Removed      int                `json:"removed"`
	Errors       []string           `json:"errors,omitempty"`
}

// UnifiedSyncResult aggregates all pipeline outcomes for one sync run.
// Success means every enabled pipeline completed without a pipeline-level
// failure; per-row errors alone do not flip it.
type UnifiedSyncResult struct {
	ConnectionID int64                                    `json:"connection_id"`
	UserID       int64                                    `json:"user_id"`
	Success      bool                                     `json:"success"`
	Products     map[connection.Product]*ProductOutcome   `json:"products"`
	Errors       []string                                 `json:"errors,omitempty"`
	Duration     time.Duration                            `json:"duration"`
	StartedAt    time.Time                                `json:"started_at"`
}

// TotalAccounts sums account counts across pipelines.
func (r *UnifiedSyncResult) TotalAccounts() int {
	total := 0
	for _, outcome := range r.Products {
		total += outcome.Accounts
	}
	return total
}

// TotalTransactions sums transaction counts across pipelines.
func (r *UnifiedSyncResult) TotalTransactions() int {
	total := 0
	for _, outcome := range r.Products {
		total += outcome.Transactions
	}
	return total
}

// TotalHoldings sums holding counts across pipelines.
func (r *UnifiedSyncResult) TotalHoldings() int {
	total := 0
	for _, outcome := range r.Products {
		total += outcome.Holdings
	}
	return total
}

// TotalLiabilities sums liability counts across pipelines.
func (r *UnifiedSyncResult) TotalLiabilities() int {
	total := 0
	for _, outcome := range r.Products {
		total += outcome.Liabilities
	}
	return total
}

// ConnectionResult is the outcome of exchanging a public token: the
// persisted connection plus the initial sync that ran right after.
type ConnectionResult struct {
	Success         bool               `json:"success"`
	ConnectionID    int64              `json:"connection_id,omitempty"`
	ItemID          string             `json:"item_id,omitempty"`
	InstitutionName string             `json:"institution_name,omitempty"`
	AccountSource   string             `json:"account_source,omitempty"`
	Sync            *UnifiedSyncResult `json:"sync,omitempty"`
	Error           string             `json:"error,omitempty"`
}
