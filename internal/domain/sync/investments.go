package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"finlink/internal/domain/account"
	"finlink/internal/domain/connection"
	"finlink/internal/domain/investment"
	"finlink/internal/infrastructure/aggregator"
)

// defaultTransactionWindowDays bounds the investment transaction
// backfill on each sync. Anything older is already in storage from
// previous runs.
const defaultTransactionWindowDays = 90

// InvestmentPipeline mirrors investment accounts, securities, holdings,
// and investment transactions.
type InvestmentPipeline struct {
	client      aggregator.ClientInterface
	vault       TokenDecrypter
	accountRepo account.Repository
	secRepo     investment.SecurityRepository
	holdingRepo investment.HoldingRepository
	invTxRepo   investment.TransactionRepository
	windowDays  int
	now         func() time.Time
}

// NewInvestmentPipeline wires the investments pipeline. windowDays <= 0
// selects the default backfill window.
func NewInvestmentPipeline(
	client aggregator.ClientInterface,
	vault TokenDecrypter,
	accountRepo account.Repository,
	secRepo investment.SecurityRepository,
	holdingRepo investment.HoldingRepository,
	invTxRepo investment.TransactionRepository,
	windowDays int,
) *InvestmentPipeline {
	if windowDays <= 0 {
		windowDays = defaultTransactionWindowDays
	}
	return &InvestmentPipeline{
		client:      client,
		vault:       vault,
		accountRepo: accountRepo,
		secRepo:     secRepo,
		holdingRepo: holdingRepo,
		invTxRepo:   invTxRepo,
		windowDays:  windowDays,
		now:         time.Now,
	}
}

// Product implements Pipeline.
func (p *InvestmentPipeline) Product() connection.Product {
	return connection.ProductInvestments
}

// Sync implements Pipeline.
func (p *InvestmentPipeline) Sync(ctx context.Context, conn *connection.Connection) (*ProductOutcome, error) {
	outcome := &ProductOutcome{Product: connection.ProductInvestments}

	token, err := p.vault.Decrypt(conn.AccessToken)
	if err != nil {
		return outcome, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	holdings, err := p.client.GetHoldings(ctx, token)
	if err != nil {
		return outcome, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	// Securities first: holdings and transactions reference them.
	securityIDs := make(map[string]int64)
	for _, raw := range holdings.Securities {
		stored, err := p.upsertSecurity(ctx, raw)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("security %s: %v", raw.SecurityID, err))
			continue
		}
		securityIDs[raw.SecurityID] = stored.ID
		outcome.Securities++
	}

	accountIDs := make(map[string]int64)
	for _, raw := range holdings.Accounts {
		if raw.Type != "investment" {
			continue
		}
		upserted, err := p.accountRepo.Upsert(ctx, account.UpsertParams{
			UserID:       conn.UserID,
			ExternalID:   raw.AccountID,
			ItemID:       conn.ItemID,
			Name:         raw.Name,
			OfficialName: raw.OfficialName,
			Type:         account.TypeInvestment,
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

	for _, raw := range holdings.Holdings {
		accountID, ok := accountIDs[raw.AccountID]
		if !ok {
			continue
		}
		securityID, ok := securityIDs[raw.SecurityID]
		if !ok {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("holding %s/%s: unknown security", raw.AccountID, raw.SecurityID))
			continue
		}
		if err := p.upsertHolding(ctx, accountID, securityID, raw); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("holding %s/%s: %v", raw.AccountID, raw.SecurityID, err))
			continue
		}
		outcome.Holdings++
	}

	if err := p.syncTransactions(ctx, token, accountIDs, outcome); err != nil {
		return outcome, err
	}

	log.Printf("Connection %d: investments sync accounts=%d securities=%d holdings=%d transactions=%d errors=%d",
		conn.ID, outcome.Accounts, outcome.Securities, outcome.Holdings, outcome.Transactions, len(outcome.Errors))
	return outcome, nil
}

func (p *InvestmentPipeline) upsertSecurity(ctx context.Context, raw aggregator.Security) (*investment.Security, error) {
	asOf, err := raw.GetClosePriceAsOf()
	if err != nil {
		return nil, err
	}

	ticker := investment.TickerUnknown
	if raw.TickerSymbol != nil && *raw.TickerSymbol != "" {
		ticker = *raw.TickerSymbol
	}
	name := ticker
	if raw.Name != nil && *raw.Name != "" {
		name = *raw.Name
	}
	secType := "other"
	if raw.Type != nil && *raw.Type != "" {
		secType = *raw.Type
	}
	currency := "USD"
	if raw.ISOCurrencyCode != nil && *raw.ISOCurrencyCode != "" {
		currency = *raw.ISOCurrencyCode
	}

	return p.secRepo.Upsert(ctx, investment.SecurityUpsertParams{
		ExternalID:     raw.SecurityID,
		Ticker:         ticker,
		Name:           name,
		Type:           secType,
		ISIN:           raw.ISIN,
		CUSIP:          raw.CUSIP,
		ClosePrice:     raw.ClosePrice,
		ClosePriceAsOf: asOf,
		Currency:       currency,
	})
}

func (p *InvestmentPipeline) upsertHolding(ctx context.Context, accountID, securityID int64, raw aggregator.Holding) error {
	costBasis := 0.0
	if raw.CostBasis != nil {
		costBasis = *raw.CostBasis
	}
	// A zero quantity with a nonzero cost basis happens on fully sold
	// positions; guard the division.
	avgCostBasis := 0.0
	if raw.Quantity != 0 {
		avgCostBasis = costBasis / raw.Quantity
	}
	currency := "USD"
	if raw.ISOCurrencyCode != nil && *raw.ISOCurrencyCode != "" {
		currency = *raw.ISOCurrencyCode
	}

	_, _, err := p.holdingRepo.Upsert(ctx, investment.HoldingUpsertParams{
		AccountID:          accountID,
		SecurityID:         securityID,
		ExternalSecurityID: raw.SecurityID,
		Quantity:           raw.Quantity,
		CostBasis:          costBasis,
		AverageCostBasis:   avgCostBasis,
		InstitutionPrice:   raw.InstitutionPrice,
		InstitutionValue:   raw.InstitutionValue,
		Currency:           currency,
	})
	return err
}

func (p *InvestmentPipeline) syncTransactions(ctx context.Context, token string, accountIDs map[string]int64, outcome *ProductOutcome) error {
	end := p.now()
	start := end.AddDate(0, 0, -p.windowDays)

	resp, err := p.client.GetInvestmentTransactions(ctx, token, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch investment transactions: %w", err)
	}

	for _, raw := range resp.InvestmentTransactions {
		accountID, ok := accountIDs[raw.AccountID]
		if !ok {
			continue
		}
		date, err := raw.GetDate()
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("investment transaction %s: %v", raw.InvestmentTransactionID, err))
			continue
		}
		fees := 0.0
		if raw.Fees != nil {
			fees = *raw.Fees
		}
		currency := "USD"
		if raw.ISOCurrencyCode != nil && *raw.ISOCurrencyCode != "" {
			currency = *raw.ISOCurrencyCode
		}
		_, _, err = p.invTxRepo.Upsert(ctx, investment.TransactionUpsertParams{
			AccountID:          accountID,
			ExternalID:         raw.InvestmentTransactionID,
			ExternalSecurityID: raw.SecurityID,
			Type:               investment.ClassifyType(raw.Type, raw.Subtype),
			Date:               date,
			Name:               raw.Name,
			Quantity:           raw.Quantity,
			Amount:             raw.Amount,
			Price:              raw.Price,
			Fees:               fees,
			Currency:           currency,
		})
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("investment transaction %s: %v", raw.InvestmentTransactionID, err))
			continue
		}
		outcome.Transactions++
	}
	return nil
}
