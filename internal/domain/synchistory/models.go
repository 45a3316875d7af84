// Package synchistory keeps an append-only audit trail of sync runs.
package synchistory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Trigger records what started a sync run.
type Trigger string

const (
	TriggerLink      Trigger = "link"
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Entry is one completed sync run. Entries are never updated or deleted.
type Entry struct {
	ID                 string        `json:"id"`
	ConnectionID       int64         `json:"connection_id"`
	UserID             int64         `json:"user_id"`
	Trigger            Trigger       `json:"trigger"`
	Success            bool          `json:"success"`
	AccountsSynced     int           `json:"accounts_synced"`
	TransactionsSynced int           `json:"transactions_synced"`
	HoldingsSynced     int           `json:"holdings_synced"`
	LiabilitiesSynced  int           `json:"liabilities_synced"`
	Errors             []string      `json:"errors,omitempty"`
	Duration           time.Duration `json:"duration"`
	StartedAt          time.Time     `json:"started_at"`
}

// NewEntry stamps a fresh id onto an entry.
func NewEntry(connectionID, userID int64, trigger Trigger, startedAt time.Time) *Entry {
	return &Entry{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		UserID:       userID,
		Trigger:      trigger,
		StartedAt:    startedAt,
	}
}

// Repository persists sync history entries.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByConnectionID(ctx context.Context, connectionID int64, limit int) ([]*Entry, error)
}
