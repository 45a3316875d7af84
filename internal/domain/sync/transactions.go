package sync

import (
	"context"
	"fmt"
	"log"

	"finlink/internal/domain/account"
	"finlink/internal/domain/connection"
	"finlink/internal/domain/transaction"
	"finlink/internal/infrastructure/aggregator"
)

// TransactionPipeline mirrors depository accounts and their transactions.
// Transactions come from the aggregator's incremental feed; the cursor
// is persisted only after the full batch has been applied, so a crash
// mid-batch replays the batch instead of losing it.
type TransactionPipeline struct {
	client      aggregator.ClientInterface
	vault       TokenDecrypter
	connRepo    connection.Repository
	accountRepo account.Repository
	txRepo      transaction.Repository
}

// TokenDecrypter is the slice of the credential vault the pipelines need.
type TokenDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// NewTransactionPipeline wires the transactions pipeline.
func NewTransactionPipeline(
	client aggregator.ClientInterface,
	vault TokenDecrypter,
	connRepo connection.Repository,
	accountRepo account.Repository,
	txRepo transaction.Repository,
) *TransactionPipeline {
	return &TransactionPipeline{
		client:      client,
		vault:       vault,
		connRepo:    connRepo,
		accountRepo: accountRepo,
		txRepo:      txRepo,
	}
}

// Product implements Pipeline.
func (p *TransactionPipeline) Product() connection.Product {
	return connection.ProductTransactions
}

// Sync implements Pipeline.
func (p *TransactionPipeline) Sync(ctx context.Context, conn *connection.Connection) (*ProductOutcome, error) {
	outcome := &ProductOutcome{Product: connection.ProductTransactions}

	token, err := p.vault.Decrypt(conn.AccessToken)
	if err != nil {
		return outcome, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	rawAccounts, err := p.client.GetAccounts(ctx, token)
	if err != nil {
		return outcome, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	// Map from the aggregator's account id to our row id, used to
	// attach transactions below.
	accountIDs := make(map[string]int64)
	for _, raw := range rawAccounts {
		if raw.Type != "depository" {
			continue
		}
		upserted, err := p.accountRepo.Upsert(ctx, account.UpsertParams{
			UserID:       conn.UserID,
			ExternalID:   raw.AccountID,
			ItemID:       conn.ItemID,
			Name:         raw.Name,
			OfficialName: raw.OfficialName,
			Type:         account.MapSubtype(raw.Subtype),
			Mask:         raw.Mask,
			Balance:      raw.Balances.CurrentOrZero(),
			Currency:     raw.Balances.Currency(),
		})
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("account %s: %v", raw.AccountID, err))
			continue
		}
		accountIDs[raw.AccountID] = upserted.ID
		outcome.Accounts++
	}

	cursor := ""
	if conn.TransactionsCursor != nil {
		cursor = *conn.TransactionsCursor
	}

	// Drain the feed first so one batch is applied as a unit.
	var added, modified []aggregator.Transaction
	var removed []aggregator.RemovedTransaction
	for {
		page, err := p.client.SyncTransactions(ctx, token, cursor)
		if err != nil {
			return outcome, fmt.Errorf("failed to sync transactions: %w", err)
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
		accountID, ok := accountIDs[raw.AccountID]
		if !ok {
			// Credit-card rows are handled by the liabilities pipeline.
			continue
		}
		if err := p.applyTransaction(ctx, conn.UserID, accountID, raw); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("transaction %s: %v", raw.TransactionID, err))
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

	if err := p.connRepo.UpdateTransactionsCursor(ctx, conn.ID, cursor); err != nil {
		return outcome, fmt.Errorf("failed to persist cursor: %w", err)
	}

	log.Printf("Connection %d: transactions sync accounts=%d transactions=%d removed=%d errors=%d",
		conn.ID, outcome.Accounts, outcome.Transactions, outcome.Removed, len(outcome.Errors))
	return outcome, nil
}

func (p *TransactionPipeline) applyTransaction(ctx context.Context, userID, accountID int64, raw aggregator.Transaction) error {
	date, err := raw.GetDate()
	if err != nil {
		return err
	}
	currency := "USD"
	if raw.ISOCurrencyCode != nil && *raw.ISOCurrencyCode != "" {
		currency = *raw.ISOCurrencyCode
	}
	_, err = p.txRepo.Upsert(ctx, transaction.UpsertParams{
		UserID:       userID,
		AccountID:    &accountID,
		ExternalID:   raw.TransactionID,
		Amount:       raw.Amount,
		Currency:     currency,
		Date:         date,
		Name:         raw.Name,
		MerchantName: raw.MerchantName,
		Category:     raw.PrimaryCategory(),
		Pending:      raw.Pending,
	})
	return err
}
