// Package liability stores credit cards, mortgages, and student loans
// mirrored from the aggregator, plus the properties mortgages attach to.
package liability

import (
	"context"
	"time"
)

// Kind distinguishes the three liability products the aggregator reports.
type Kind string

const (
	KindCredit   Kind = "credit"
	KindMortgage Kind = "mortgage"
	KindStudent  Kind = "student"
)

// Account is one liability. Balance is reported positive (amount owed).
// DaysUntilDue and IsOverdue are derived at sync time from
// NextPaymentDueDate and recomputed on every sync.
type Account struct {
	ID                   int64      `json:"id"`
	UserID               int64      `json:"user_id"`
	ExternalID           string     `json:"external_id"`
	ItemID               string     `json:"item_id"`
	Kind                 Kind       `json:"kind"`
	Name                 string     `json:"name"`
	Mask                 *string    `json:"mask,omitempty"`
	Balance              float64    `json:"balance"`
	CreditLimit          *float64   `json:"credit_limit,omitempty"`
	Currency             string     `json:"currency"`
	InterestRate         *float64   `json:"interest_rate,omitempty"`
	MinimumPayment       *float64   `json:"minimum_payment,omitempty"`
	NextPaymentDueDate   *time.Time `json:"next_payment_due_date,omitempty"`
	DaysUntilDue         *int       `json:"days_until_due,omitempty"`
	IsOverdue            bool       `json:"is_overdue"`
	LastStatementBalance *float64   `json:"last_statement_balance,omitempty"`
	LastStatementDate    *time.Time `json:"last_statement_date,omitempty"`
	OriginationDate      *time.Time `json:"origination_date,omitempty"`
	OriginalPrincipal    *float64   `json:"original_principal,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ComputeDueFields derives the countdown to the next payment. A nil due
// date yields no countdown and not overdue; a due date earlier than now
// (by calendar day) is overdue with a negative countdown.
func ComputeDueFields(now time.Time, due *time.Time) (*int, bool) {
	if due == nil {
		return nil, false
	}
	today := truncateToDay(now)
	dueDay := truncateToDay(*due)
	days := int(dueDay.Sub(today).Hours() / 24)
	return &days, days < 0
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Property is a real-estate asset inferred from a mortgage's address.
// LiabilityID links it back to the mortgage that produced it.
type Property struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Street      string    `json:"street"`
	City        string    `json:"city"`
	Region      string    `json:"region"`
	PostalCode  string    `json:"postal_code"`
	Country     string    `json:"country"`
	LiabilityID *int64    `json:"liability_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpsertParams writes one liability keyed by (user id, external id).
type UpsertParams struct {
	UserID               int64
	ExternalID           string
	ItemID               string
	Kind                 Kind
	Name                 string
	Mask                 *string
	Balance              float64
	CreditLimit          *float64
	Currency             string
	InterestRate         *float64
	MinimumPayment       *float64
	NextPaymentDueDate   *time.Time
	DaysUntilDue         *int
	IsOverdue            bool
	LastStatementBalance *float64
	LastStatementDate    *time.Time
	OriginationDate      *time.Time
	OriginalPrincipal    *float64
}

// PropertyUpsertParams writes one property keyed by
// (user id, street, city, postal code).
type PropertyUpsertParams struct {
	UserID      int64
	Street      string
	City        string
	Region      string
	PostalCode  string
	Country     string
	LiabilityID *int64
}

// Repository persists liabilities.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Account, bool, error)
	GetByExternalID(ctx context.Context, userID int64, externalID string) (*Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)
	ListByItemID(ctx context.Context, itemID string) ([]*Account, error)
}

// PropertyRepository persists properties.
type PropertyRepository interface {
	Upsert(ctx context.Context, params PropertyUpsertParams) (*Property, error)
	GetByLiabilityID(ctx context.Context, liabilityID int64) (*Property, error)
	Update(ctx context.Context, id int64, params PropertyUpsertParams) (*Property, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Property, error)
}
