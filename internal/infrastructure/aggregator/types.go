package aggregator

import (
	"fmt"
	"time"
)

// Account is a raw account as the aggregator reports it.
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName *string  `json:"official_name"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
	Mask         *string  `json:"mask"`
	Balances     Balances `json:"balances"`
}

// Balances carries the balance block of an account.
type Balances struct {
	Available       *float64 `json:"available"`
	Current         *float64 `json:"current"`
	Limit           *float64 `json:"limit"`
	ISOCurrencyCode *string  `json:"iso_currency_code"`
}

// CurrentOrZero returns the current balance, treating a missing value as zero.
func (b Balances) CurrentOrZero() float64 {
	if b.Current == nil {
		return 0
	}
	return *b.Current
}

// Currency returns the ISO currency code, defaulting to USD.
func (b Balances) Currency() string {
	if b.ISOCurrencyCode == nil || *b.ISOCurrencyCode == "" {
		return "USD"
	}
	return *b.ISOCurrencyCode
}

// Security is a raw security record from the holdings endpoint.
type Security struct {
	SecurityID      string   `json:"security_id"`
	TickerSymbol    *string  `json:"ticker_symbol"`
	Name            *string  `json:"name"`
	Type            *string  `json:"type"`
	ISIN            *string  `json:"isin"`
	CUSIP           *string  `json:"cusip"`
	ClosePrice      *float64 `json:"close_price"`
	ClosePriceAsOf  *string  `json:"close_price_as_of"`
	ISOCurrencyCode *string  `json:"iso_currency_code"`
}

// GetClosePriceAsOf parses the close price date if present.
func (s *Security) GetClosePriceAsOf() (*time.Time, error) {
	return parseOptionalDate(s.ClosePriceAsOf, "close_price_as_of")
}

// Holding is a raw position from the holdings endpoint.
type Holding struct {
	AccountID        string   `json:"account_id"`
	SecurityID       string   `json:"security_id"`
	Quantity         float64  `json:"quantity"`
	CostBasis        *float64 `json:"cost_basis"`
	InstitutionPrice float64  `json:"institution_price"`
	InstitutionValue float64  `json:"institution_value"`
	ISOCurrencyCode  *string  `json:"iso_currency_code"`
}

// InvestmentTransaction is a raw transaction from the investments feed.
type InvestmentTransaction struct {
	InvestmentTransactionID string   `json:"investment_transaction_id"`
	AccountID               string   `json:"account_id"`
	SecurityID              *string  `json:"security_id"`
	Type                    string   `json:"type"`
	Subtype                 string   `json:"subtype"`
	DateString              string   `json:"date"`
	Name                    string   `json:"name"`
	Quantity                float64  `json:"quantity"`
	Amount                  float64  `json:"amount"`
	Price                   float64  `json:"price"`
	Fees                    *float64 `json:"fees"`
	ISOCurrencyCode         *string  `json:"iso_currency_code"`
}

// GetDate parses the transaction date.
func (t *InvestmentTransaction) GetDate() (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", t.DateString)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date '%s': %w", t.DateString, err)
	}
	return parsed, nil
}

// Transaction is a raw transaction from the incremental sync feed.
type Transaction struct {
	TransactionID   string   `json:"transaction_id"`
	AccountID       string   `json:"account_id"`
	Amount          float64  `json:"amount"`
	ISOCurrencyCode *string  `json:"iso_currency_code"`
	DateString      string   `json:"date"`
	Name            string   `json:"name"`
	MerchantName    *string  `json:"merchant_name"`
	Category        []string `json:"category"`
	Pending         bool     `json:"pending"`
}

// GetDate parses the transaction date.
func (t *Transaction) GetDate() (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", t.DateString)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date '%s': %w", t.DateString, err)
	}
	return parsed, nil
}

// PrimaryCategory returns the most specific category label if present.
func (t *Transaction) PrimaryCategory() *string {
	if len(t.Category) == 0 {
		return nil
	}
	last := t.Category[len(t.Category)-1]
	return &last
}

// RemovedTransaction identifies a transaction deleted upstream.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// APR is one APR entry on a credit liability.
type APR struct {
	APRPercentage float64 `json:"apr_percentage"`
	APRType       string  `json:"apr_type"`
}

// CreditLiability is the detailed credit-card block.
type CreditLiability struct {
	AccountID              *string  `json:"account_id"`
	APRs                   []APR    `json:"aprs"`
	IsOverdue              *bool    `json:"is_overdue"`
	LastPaymentAmount      *float64 `json:"last_payment_amount"`
	LastStatementBalance   *float64 `json:"last_statement_balance"`
	LastStatementIssueDate *string  `json:"last_statement_issue_date"`
	MinimumPaymentAmount   *float64 `json:"minimum_payment_amount"`
	NextPaymentDueDate     *string  `json:"next_payment_due_date"`
}

// PurchaseAPR returns the purchase APR, falling back to the first
// reported APR when no purchase entry exists.
func (c *CreditLiability) PurchaseAPR() *float64 {
	for _, apr := range c.APRs {
		if apr.APRType == "purchase_apr" {
			rate := apr.APRPercentage
			return &rate
		}
	}
	if len(c.APRs) > 0 {
		rate := c.APRs[0].APRPercentage
		return &rate
	}
	return nil
}

// GetNextPaymentDueDate parses the next payment due date if present.
func (c *CreditLiability) GetNextPaymentDueDate() (*time.Time, error) {
	return parseOptionalDate(c.NextPaymentDueDate, "next_payment_due_date")
}

// GetLastStatementIssueDate parses the last statement date if present.
func (c *CreditLiability) GetLastStatementIssueDate() (*time.Time, error) {
	return parseOptionalDate(c.LastStatementIssueDate, "last_statement_issue_date")
}

// InterestRate is the rate block on a mortgage.
type InterestRate struct {
	Percentage *float64 `json:"percentage"`
	Type       *string  `json:"type"`
}

// Address is the property address block on a mortgage.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// MortgageLiability is the detailed mortgage block.
type MortgageLiability struct {
	AccountID                  string       `json:"account_id"`
	InterestRate               InterestRate `json:"interest_rate"`
	NextMonthlyPayment         *float64     `json:"next_monthly_payment"`
	NextPaymentDueDate         *string      `json:"next_payment_due_date"`
	OriginationDate            *string      `json:"origination_date"`
	OriginationPrincipalAmount *float64     `json:"origination_principal_amount"`
	PropertyAddress            *Address     `json:"property_address"`
}

// GetNextPaymentDueDate parses the next payment due date if present.
func (m *MortgageLiability) GetNextPaymentDueDate() (*time.Time, error) {
	return parseOptionalDate(m.NextPaymentDueDate, "next_payment_due_date")
}

// GetOriginationDate parses the origination date if present.
func (m *MortgageLiability) GetOriginationDate() (*time.Time, error) {
	return parseOptionalDate(m.OriginationDate, "origination_date")
}

// StudentLoan is the detailed student-loan block.
type StudentLoan struct {
	AccountID                  string   `json:"account_id"`
	InterestRatePercentage     *float64 `json:"interest_rate_percentage"`
	MinimumPaymentAmount       *float64 `json:"minimum_payment_amount"`
	NextPaymentDueDate         *string  `json:"next_payment_due_date"`
	OriginationDate            *string  `json:"origination_date"`
	OriginationPrincipalAmount *float64 `json:"origination_principal_amount"`
	IsOverdue                  *bool    `json:"is_overdue"`
}

// GetNextPaymentDueDate parses the next payment due date if present.
func (s *StudentLoan) GetNextPaymentDueDate() (*time.Time, error) {
	return parseOptionalDate(s.NextPaymentDueDate, "next_payment_due_date")
}

// GetOriginationDate parses the origination date if present.
func (s *StudentLoan) GetOriginationDate() (*time.Time, error) {
	return parseOptionalDate(s.OriginationDate, "origination_date")
}

func parseOptionalDate(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s '%s': %w", field, *value, err)
	}
	return &parsed, nil
}

// ExchangeResult is the outcome of exchanging a public token.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// Institution describes the institution behind a link session.
type Institution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
}

// HoldingsResponse is the holdings endpoint payload.
type HoldingsResponse struct {
	Accounts   []Account  `json:"accounts"`
	Holdings   []Holding  `json:"holdings"`
	Securities []Security `json:"securities"`
}

// InvestmentTransactionsResponse is the investments feed payload.
type InvestmentTransactionsResponse struct {
	Accounts               []Account               `json:"accounts"`
	InvestmentTransactions []InvestmentTransaction `json:"investment_transactions"`
	Securities             []Security              `json:"securities"`
	TotalCount             int                     `json:"total_investment_transactions"`
}

// LiabilitiesResponse is the liabilities endpoint payload. Accounts
// carries every account on the item, including credit cards with no
// detailed liability block.
type LiabilitiesResponse struct {
	Accounts    []Account `json:"accounts"`
	Liabilities struct {
		Credit   []CreditLiability   `json:"credit"`
		Mortgage []MortgageLiability `json:"mortgage"`
		Student  []StudentLoan       `json:"student"`
	} `json:"liabilities"`
}

// TransactionsSyncResponse is one page of the incremental sync feed.
type TransactionsSyncResponse struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}
