package aggregator

import (
	"context"
	"time"
)

// ClientInterface defines the methods the sync engine needs from the
// aggregator client.
type ClientInterface interface {
	Environment() Environment
	CreateLinkToken(ctx context.Context, userID string, products []string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error)
	RemoveItem(ctx context.Context, accessToken string) error
	GetAccounts(ctx context.Context, accessToken string) ([]Account, error)
	GetHoldings(ctx context.Context, accessToken string) (*HoldingsResponse, error)
	GetInvestmentTransactions(ctx context.Context, accessToken string, start, end time.Time) (*InvestmentTransactionsResponse, error)
	GetLiabilities(ctx context.Context, accessToken string) (*LiabilitiesResponse, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*TransactionsSyncResponse, error)
	GetInstitution(ctx context.Context, institutionID string) (*Institution, error)
	SandboxCreatePublicToken(ctx context.Context, institutionID string, products []string) (string, error)
}
