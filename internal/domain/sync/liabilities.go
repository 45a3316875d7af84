package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"finlink/internal/domain/connection"
	"finlink/internal/domain/liability"
	"finlink/internal/domain/transaction"
	"finlink/internal/infrastructure/aggregator"
)

// LiabilityPipeline mirrors credit cards, mortgages, and student loans,
// links mortgages to properties, and pulls card transactions through
// the incremental feed.
type LiabilityPipeline struct {
	client       aggregator.ClientInterface
	vault        TokenDecrypter
	connRepo     connection.Repository
	liabRepo     liability.Repository
	propertyRepo liability.PropertyRepository
	txRepo       transaction.Repository
	now          func() time.Time
}

// NewLiabilityPipeline wires the liabilities pipeline.
func NewLiabilityPipeline(
	client aggregator.ClientInterface,
	vault TokenDecrypter,
	connRepo connection.Repository,
	liabRepo liability.Repository,
	propertyRepo liability.PropertyRepository,
	txRepo transaction.Repository,
) *LiabilityPipeline {
	return &LiabilityPipeline{
		client:       client,
		vault:        vault,
		connRepo:     connRepo,
		liabRepo:     liabRepo,
		propertyRepo: propertyRepo,
		txRepo:       txRepo,
		now:          time.Now,
	}
}

// Product implements Pipeline.
func (p *LiabilityPipeline) Product() connection.Product {
	return connection.ProductLiabilities
}

// Sync implements Pipeline.
func (p *LiabilityPipeline) Sync(ctx context.Context, conn *connection.Connection) (*ProductOutcome, error) {
	outcome := &ProductOutcome{Product: connection.ProductLiabilities}

	token, err := p.vault.Decrypt(conn.AccessToken)
	if err != nil {
		return outcome, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	resp, err := p.client.GetLiabilities(ctx, token)
	if err != nil {
		return outcome, fmt.Errorf("failed to fetch liabilities: %w", err)
	}

	rawAccounts := make(map[string]aggregator.Account, len(resp.Accounts))
	for _, raw := range resp.Accounts {
		rawAccounts[raw.AccountID] = raw
	}

	// Tracks which accounts got a detailed liability block, so the
	// fallback below only fills the gaps.
	detailed := make(map[string]bool)
	liabilityIDs := make(map[string]int64)

	for _, credit := range resp.Liabilities.Credit {
		if credit.AccountID == nil {
			outcome.Errors = append(outcome.Errors, "credit liability with no account id")
			continue
		}
		stored, err := p.upsertCredit(ctx, conn, credit, rawAccounts[*credit.AccountID])
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("credit %s: %v", *credit.AccountID, err))
			continue
		}
		detailed[*credit.AccountID] = true
		liabilityIDs[*credit.AccountID] = stored.ID
		outcome.Liabilities++
	}

	// Some institutions report a credit account without the detailed
	// block. Store what the raw account carries so the card still shows.
	for _, raw := range resp.Accounts {
		if raw.Type != "credit" || detailed[raw.AccountID] {
			continue
		}
		stored, _, err := p.liabRepo.Upsert(ctx, liability.UpsertParams{
			UserID:      conn.UserID,
			ExternalID:  raw.AccountID,
			ItemID:      conn.ItemID,
			Kind:        liability.KindCredit,
			Name:        raw.Name,
			Mask:        raw.Mask,
			Balance:     raw.Balances.CurrentOrZero(),
			CreditLimit: raw.Balances.Limit,
			Currency:    raw.Balances.Currency(),
		})
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("credit %s: %v", raw.AccountID, err))
			continue
		}
		liabilityIDs[raw.AccountID] = stored.ID
		outcome.Liabilities++
	}

	for _, mortgage := range resp.Liabilities.Mortgage {
		stored, err := p.upsertMortgage(ctx, conn, mortgage, rawAccounts[mortgage.AccountID])
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("mortgage %s: %v", mortgage.AccountID, err))
			continue
		}
		outcome.Liabilities++

		// Property linkage is best effort: a bad address never fails
		// the mortgage itself.
		if mortgage.PropertyAddress != nil {
			if err := p.linkProperty(ctx, conn.UserID, stored.ID, *mortgage.PropertyAddress); err != nil {
				log.Printf("Connection %d: property link for mortgage %s failed: %v", conn.ID, mortgage.AccountID, err)
			}
		}
	}

	for _, loan := range resp.Liabilities.Student {
		if err := p.upsertStudentLoan(ctx, conn, loan, rawAccounts[loan.AccountID]); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("student loan %s: %v", loan.AccountID, err))
			continue
		}
		outcome.Liabilities++
	}

	if err := p.syncCardTransactions(ctx, conn, token, liabilityIDs, outcome); err != nil {
		return outcome, err
	}

	log.Printf("Connection %d: liabilities sync liabilities=%d transactions=%d errors=%d",
		conn.ID, outcome.Liabilities, outcome.Transactions, len(outcome.Errors))
	return outcome, nil
}

func (p *LiabilityPipeline) upsertCredit(ctx context.Context, conn *connection.Connection, credit aggregator.CreditLiability, raw aggregator.Account) (*liability.Account, error) {
	dueDate, err := credit.GetNextPaymentDueDate()
	if err != nil {
		return nil, err
	}
	statementDate, err := credit.GetLastStatementIssueDate()
	if err != nil {
		return nil, err
	}
	daysUntilDue, overdue := liability.ComputeDueFields(p.now(), dueDate)
	if credit.IsOverdue != nil && *credit.IsOverdue {
		overdue = true
	}

	stored, _, err := p.liabRepo.Upsert(ctx, liability.UpsertParams{
		UserID:               conn.UserID,
		ExternalID:           *credit.AccountID,
		ItemID:               conn.ItemID,
		Kind:                 liability.KindCredit,
		Name:                 raw.Name,
		Mask:                 raw.Mask,
		Balance:              raw.Balances.CurrentOrZero(),
		CreditLimit:          raw.Balances.Limit,
		Currency:             raw.Balances.Currency(),
		InterestRate:         credit.PurchaseAPR(),
		MinimumPayment:       credit.MinimumPaymentAmount,
		NextPaymentDueDate:   dueDate,
		DaysUntilDue:         daysUntilDue,
		IsOverdue:            overdue,
		LastStatementBalance: credit.LastStatementBalance,
		LastStatementDate:    statementDate,
	})
	return stored, err
}

func (p *LiabilityPipeline) upsertMortgage(ctx context.Context, conn *connection.Connection, mortgage aggregator.MortgageLiability, raw aggregator.Account) (*liability.Account, error) {
	dueDate, err := mortgage.GetNextPaymentDueDate()
	if err != nil {
		return nil, err
	}
	origination, err := mortgage.GetOriginationDate()
	if err != nil {
		return nil, err
	}
	daysUntilDue, overdue := liability.ComputeDueFields(p.now(), dueDate)

	stored, _, err := p.liabRepo.Upsert(ctx, liability.UpsertParams{
		UserID:             conn.UserID,
		ExternalID:         mortgage.AccountID,
		ItemID:             conn.ItemID,
		Kind:               liability.KindMortgage,
		Name:               raw.Name,
		Mask:               raw.Mask,
		Balance:            raw.Balances.CurrentOrZero(),
		Currency:           raw.Balances.Currency(),
		InterestRate:       mortgage.InterestRate.Percentage,
		MinimumPayment:     mortgage.NextMonthlyPayment,
		NextPaymentDueDate: dueDate,
		DaysUntilDue:       daysUntilDue,
		IsOverdue:          overdue,
		OriginationDate:    origination,
		OriginalPrincipal:  mortgage.OriginationPrincipalAmount,
	})
	return stored, err
}

func (p *LiabilityPipeline) upsertStudentLoan(ctx context.Context, conn *connection.Connection, loan aggregator.StudentLoan, raw aggregator.Account) error {
	dueDate, err := loan.GetNextPaymentDueDate()
	if err != nil {
		return err
	}
	origination, err := loan.GetOriginationDate()
	if err != nil {
		return err
	}
	daysUntilDue, overdue := liability.ComputeDueFields(p.now(), dueDate)
	if loan.IsOverdue != nil && *loan.IsOverdue {
		overdue = true
	}

	_, _, err = p.liabRepo.Upsert(ctx, liability.UpsertParams{
		UserID:             conn.UserID,
		ExternalID:         loan.AccountID,
		ItemID:             conn.ItemID,
		Kind:               liability.KindStudent,
		Name:               raw.Name,
		Mask:               raw.Mask,
		Balance:            raw.Balances.CurrentOrZero(),
		Currency:           raw.Balances.Currency(),
		InterestRate:       loan.InterestRatePercentage,
		MinimumPayment:     loan.MinimumPaymentAmount,
		NextPaymentDueDate: dueDate,
		DaysUntilDue:       daysUntilDue,
		IsOverdue:          overdue,
		OriginationDate:    origination,
		OriginalPrincipal:  loan.OriginationPrincipalAmount,
	})
	return err
}

// linkProperty reconciles the mortgage's property record: an existing
// row already linked to the liability wins and has its address
// refreshed; otherwise the row is matched by address, creating it if
// nothing matches.
func (p *LiabilityPipeline) linkProperty(ctx context.Context, userID, liabilityID int64, addr aggregator.Address) error {
	if addr.Street == "" {
		return fmt.Errorf("address has no street")
	}
	params := liability.PropertyUpsertParams{
		UserID:      userID,
		Street:      addr.Street,
		City:        addr.City,
		Region:      addr.Region,
		PostalCode:  addr.PostalCode,
		Country:     addr.Country,
		LiabilityID: &liabilityID,
	}

	existing, err := p.propertyRepo.GetByLiabilityID(ctx, liabilityID)
	if err != nil {
		return err
	}
	if existing != nil {
		_, err := p.propertyRepo.Update(ctx, existing.ID, params)
		return err
	}

	_, err = p.propertyRepo.Upsert(ctx, params)
	return err
}

// syncCardTransactions pulls card activity through the incremental feed.
// The aggregator reports card amounts from the issuer's perspective
// (purchases positive); we flip the sign so spending is negative, like
// cash transactions.
func (p *LiabilityPipeline) syncCardTransactions(ctx context.Context, conn *connection.Connection, token string, liabilityIDs map[string]int64, outcome *ProductOutcome) error {
	cursor := ""
	if conn.LiabilitiesCursor != nil {
		cursor = *conn.LiabilitiesCursor
	}

	var added, modified []aggregator.Transaction
	var removed []aggregator.RemovedTransaction
	for {
		page, err := p.client.SyncTransactions(ctx, token, cursor)
		if err != nil {
			return fmt.Errorf("failed to sync card transactions: %w", err)
		}
		added = append(added, page.Added...)
		modified = append(modified, page.Modified...)
		removed = append(removed, page.Removed...)
		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	for _, raw := range append(added, modified...) {
		liabilityID, ok := liabilityIDs[raw.AccountID]
		if !ok {
			continue
		}
		date, err := raw.GetDate()
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("card transaction %s: %v", raw.TransactionID, err))
			continue
		}
		currency := "USD"
		if raw.ISOCurrencyCode != nil && *raw.ISOCurrencyCode != "" {
			currency = *raw.ISOCurrencyCode
		}
		_, err = p.txRepo.Upsert(ctx, transaction.UpsertParams{
			UserID:             conn.UserID,
			LiabilityAccountID: &liabilityID,
			ExternalID:         raw.TransactionID,
			Amount:             -raw.Amount,
			Currency:           currency,
			Date:               date,
			Name:               raw.Name,
			MerchantName:       raw.MerchantName,
			Category:           raw.PrimaryCategory(),
			Pending:            raw.Pending,
		})
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("card transaction %s: %v", raw.TransactionID, err))
			continue
		}
		outcome.Transactions++
	}

	for _, gone := range removed {
		deleted, err := p.txRepo.DeleteByExternalID(ctx, conn.UserID, gone.TransactionID)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("remove %s: %v", gone.TransactionID, err))
			continue
		}
		if deleted {
			outcome.Removed++
		}
	}

	return p.connRepo.UpdateLiabilitiesCursor(ctx, conn.ID, cursor)
}
