package sync

import (
	"context"
	"time"

	"finlink/internal/domain/account"
	"finlink/internal/domain/connection"
	"finlink/internal/domain/investment"
	"finlink/internal/domain/liability"
	"finlink/internal/domain/synchistory"
	"finlink/internal/domain/transaction"
	"finlink/internal/infrastructure/aggregator"
)

// MockClient implements aggregator.ClientInterface.
type MockClient struct {
	EnvironmentFunc               func() aggregator.Environment
	CreateLinkTokenFunc           func(ctx context.Context, userID string, products []string) (string, error)
	ExchangePublicTokenFunc       func(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error)
	RemoveItemFunc                func(ctx context.Context, accessToken string) error
	GetAccountsFunc               func(ctx context.Context, accessToken string) ([]aggregator.Account, error)
	GetHoldingsFunc               func(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error)
	GetInvestmentTransactionsFunc func(ctx context.Context, accessToken string, start, end time.Time) (*aggregator.InvestmentTransactionsResponse, error)
	GetLiabilitiesFunc            func(ctx context.Context, accessToken string) (*aggregator.LiabilitiesResponse, error)
	SyncTransactionsFunc          func(ctx context.Context, accessToken, cursor string) (*aggregator.TransactionsSyncResponse, error)
	GetInstitutionFunc            func(ctx context.Context, institutionID string) (*aggregator.Institution, error)
	SandboxCreatePublicTokenFunc  func(ctx context.Context, institutionID string, products []string) (string, error)
}

func (m *MockClient) Environment() aggregator.Environment {
	if m.EnvironmentFunc != nil {
		return m.EnvironmentFunc()
	}
	return aggregator.EnvSandbox
}

func (m *MockClient) CreateLinkToken(ctx context.Context, userID string, products []string) (string, error) {
	return m.CreateLinkTokenFunc(ctx, userID, products)
}

func (m *MockClient) ExchangePublicToken(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error) {
	return m.ExchangePublicTokenFunc(ctx, publicToken)
}

func (m *MockClient) RemoveItem(ctx context.Context, accessToken string) error {
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockClient) GetAccounts(ctx context.Context, accessToken string) ([]aggregator.Account, error) {
	return m.GetAccountsFunc(ctx, accessToken)
}

func (m *MockClient) GetHoldings(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error) {
	return m.GetHoldingsFunc(ctx, accessToken)
}

func (m *MockClient) GetInvestmentTransactions(ctx context.Context, accessToken string, start, end time.Time) (*aggregator.InvestmentTransactionsResponse, error) {
	return m.GetInvestmentTransactionsFunc(ctx, accessToken, start, end)
}

func (m *MockClient) GetLiabilities(ctx context.Context, accessToken string) (*aggregator.LiabilitiesResponse, error) {
	return m.GetLiabilitiesFunc(ctx, accessToken)
}

func (m *MockClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*aggregator.TransactionsSyncResponse, error) {
	return m.SyncTransactionsFunc(ctx, accessToken, cursor)
}

func (m *MockClient) GetInstitution(ctx context.Context, institutionID string) (*aggregator.Institution, error) {
	if m.GetInstitutionFunc != nil {
		return m.GetInstitutionFunc(ctx, institutionID)
	}
	return &aggregator.Institution{InstitutionID: institutionID, Name: "Test Bank"}, nil
}

func (m *MockClient) SandboxCreatePublicToken(ctx context.Context, institutionID string, products []string) (string, error) {
	return m.SandboxCreatePublicTokenFunc(ctx, institutionID, products)
}

// MockVault implements TokenVault without real crypto.
type MockVault struct {
	EncryptFunc func(plaintext string) (string, error)
	DecryptFunc func(ciphertext string) (string, error)
}

func (m *MockVault) Encrypt(plaintext string) (string, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(plaintext)
	}
	return "enc:" + plaintext, nil
}

func (m *MockVault) Decrypt(ciphertext string) (string, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ciphertext)
	}
	if len(ciphertext) > 4 && ciphertext[:4] == "enc:" {
		return ciphertext[4:], nil
	}
	return ciphertext, nil
}

// MockConnectionRepo implements connection.Repository.
type MockConnectionRepo struct {
	CreateFunc                   func(ctx context.Context, params connection.CreateParams) (*connection.Connection, error)
	GetByIDFunc                  func(ctx context.Context, id int64) (*connection.Connection, error)
	GetByItemIDFunc              func(ctx context.Context, itemID string) (*connection.Connection, error)
	ListByUserIDFunc             func(ctx context.Context, userID int64) ([]*connection.Connection, error)
	ListActiveFunc               func(ctx context.Context) ([]*connection.Connection, error)
	UpdateProductsFunc           func(ctx context.Context, id int64, products []connection.Product, isUnified bool) error
	UpdateTransactionsCursorFunc func(ctx context.Context, id int64, cursor string) error
	UpdateLiabilitiesCursorFunc  func(ctx context.Context, id int64, cursor string) error
	RecordSyncSuccessFunc        func(ctx context.Context, id int64, at time.Time) error
	RecordSyncFailureFunc        func(ctx context.Context, id int64, message string) error
	DisconnectFunc               func(ctx context.Context, id int64) error
}

func (m *MockConnectionRepo) Create(ctx context.Context, params connection.CreateParams) (*connection.Connection, error) {
	return m.CreateFunc(ctx, params)
}

func (m *MockConnectionRepo) GetByID(ctx context.Context, id int64) (*connection.Connection, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockConnectionRepo) GetByItemID(ctx context.Context, itemID string) (*connection.Connection, error) {
	if m.GetByItemIDFunc != nil {
		return m.GetByItemIDFunc(ctx, itemID)
	}
	return nil, nil
}

func (m *MockConnectionRepo) ListByUserID(ctx context.Context, userID int64) ([]*connection.Connection, error) {
	return m.ListByUserIDFunc(ctx, userID)
}

func (m *MockConnectionRepo) ListActive(ctx context.Context) ([]*connection.Connection, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return nil, nil
}

func (m *MockConnectionRepo) UpdateProducts(ctx context.Context, id int64, products []connection.Product, isUnified bool) error {
	return m.UpdateProductsFunc(ctx, id, products, isUnified)
}

func (m *MockConnectionRepo) UpdateTransactionsCursor(ctx context.Context, id int64, cursor string) error {
	if m.UpdateTransactionsCursorFunc != nil {
		return m.UpdateTransactionsCursorFunc(ctx, id, cursor)
	}
	return nil
}

func (m *MockConnectionRepo) UpdateLiabilitiesCursor(ctx context.Context, id int64, cursor string) error {
	if m.UpdateLiabilitiesCursorFunc != nil {
		return m.UpdateLiabilitiesCursorFunc(ctx, id, cursor)
	}
	return nil
}

func (m *MockConnectionRepo) RecordSyncSuccess(ctx context.Context, id int64, at time.Time) error {
	if m.RecordSyncSuccessFunc != nil {
		return m.RecordSyncSuccessFunc(ctx, id, at)
	}
	return nil
}

func (m *MockConnectionRepo) RecordSyncFailure(ctx context.Context, id int64, message string) error {
	if m.RecordSyncFailureFunc != nil {
		return m.RecordSyncFailureFunc(ctx, id, message)
	}
	return nil
}

func (m *MockConnectionRepo) Disconnect(ctx context.Context, id int64) error {
	if m.DisconnectFunc != nil {
		return m.DisconnectFunc(ctx, id)
	}
	return nil
}

// MockAccountRepo implements account.Repository.
type MockAccountRepo struct {
	UpsertFunc                   func(ctx context.Context, params account.UpsertParams) (*account.Account, error)
	GetByIDFunc                  func(ctx context.Context, id int64) (*account.Account, error)
	GetByExternalIDFunc          func(ctx context.Context, userID int64, externalID string) (*account.Account, error)
	ListByUserIDFunc             func(ctx context.Context, userID int64) ([]*account.Account, error)
	ListByItemIDFunc             func(ctx context.Context, itemID string) ([]*account.Account, error)
	MarkDisconnectedByItemIDFunc func(ctx context.Context, itemID, message string) (int64, error)
}

func (m *MockAccountRepo) Upsert(ctx context.Context, params account.UpsertParams) (*account.Account, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockAccountRepo) GetByExternalID(ctx context.Context, userID int64, externalID string) (*account.Account, error) {
	return m.GetByExternalIDFunc(ctx, userID, externalID)
}

func (m *MockAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	return m.ListByUserIDFunc(ctx, userID)
}

func (m *MockAccountRepo) ListByItemID(ctx context.Context, itemID string) ([]*account.Account, error) {
	return m.ListByItemIDFunc(ctx, itemID)
}

func (m *MockAccountRepo) MarkDisconnectedByItemID(ctx context.Context, itemID, message string) (int64, error) {
	if m.MarkDisconnectedByItemIDFunc != nil {
		return m.MarkDisconnectedByItemIDFunc(ctx, itemID, message)
	}
	return 0, nil
}

// MockTransactionRepo implements transaction.Repository.
type MockTransactionRepo struct {
	UpsertFunc             func(ctx context.Context, params transaction.UpsertParams) (*transaction.UpsertResult, error)
	DeleteByExternalIDFunc func(ctx context.Context, userID int64, externalID string) (bool, error)
	ListByAccountIDFunc    func(ctx context.Context, accountID int64, limit int) ([]*transaction.Transaction, error)
	ListByUserIDFunc       func(ctx context.Context, userID int64, limit int) ([]*transaction.Transaction, error)
}

func (m *MockTransactionRepo) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.UpsertResult, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockTransactionRepo) DeleteByExternalID(ctx context.Context, userID int64, externalID string) (bool, error) {
	if m.DeleteByExternalIDFunc != nil {
		return m.DeleteByExternalIDFunc(ctx, userID, externalID)
	}
	return false, nil
}

func (m *MockTransactionRepo) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*transaction.Transaction, error) {
	return m.ListByAccountIDFunc(ctx, accountID, limit)
}

func (m *MockTransactionRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*transaction.Transaction, error) {
	return m.ListByUserIDFunc(ctx, userID, limit)
}

// MockSecurityRepo implements investment.SecurityRepository.
type MockSecurityRepo struct {
	UpsertFunc          func(ctx context.Context, params investment.SecurityUpsertParams) (*investment.Security, error)
	GetByExternalIDFunc func(ctx context.Context, externalID string) (*investment.Security, error)
}

func (m *MockSecurityRepo) Upsert(ctx context.Context, params investment.SecurityUpsertParams) (*investment.Security, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockSecurityRepo) GetByExternalID(ctx context.Context, externalID string) (*investment.Security, error) {
	return m.GetByExternalIDFunc(ctx, externalID)
}

// MockHoldingRepo implements investment.HoldingRepository.
type MockHoldingRepo struct {
	UpsertFunc          func(ctx context.Context, params investment.HoldingUpsertParams) (*investment.Holding, bool, error)
	ListByAccountIDFunc func(ctx context.Context, accountID int64) ([]*investment.Holding, error)
	ListByUserIDFunc    func(ctx context.Context, userID int64) ([]*investment.Holding, error)
}

func (m *MockHoldingRepo) Upsert(ctx context.Context, params investment.HoldingUpsertParams) (*investment.Holding, bool, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockHoldingRepo) ListByAccountID(ctx context.Context, accountID int64) ([]*investment.Holding, error) {
	return m.ListByAccountIDFunc(ctx, accountID)
}

func (m *MockHoldingRepo) ListByUserID(ctx context.Context, userID int64) ([]*investment.Holding, error) {
	return m.ListByUserIDFunc(ctx, userID)
}

// MockInvestmentTxRepo implements investment.TransactionRepository.
type MockInvestmentTxRepo struct {
	UpsertFunc          func(ctx context.Context, params investment.TransactionUpsertParams) (*investment.Transaction, bool, error)
	ListByAccountIDFunc func(ctx context.Context, accountID int64, limit int) ([]*investment.Transaction, error)
}

func (m *MockInvestmentTxRepo) Upsert(ctx context.Context, params investment.TransactionUpsertParams) (*investment.Transaction, bool, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockInvestmentTxRepo) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*investment.Transaction, error) {
	return m.ListByAccountIDFunc(ctx, accountID, limit)
}

// MockLiabilityRepo implements liability.Repository.
type MockLiabilityRepo struct {
	UpsertFunc          func(ctx context.Context, params liability.UpsertParams) (*liability.Account, bool, error)
	GetByExternalIDFunc func(ctx context.Context, userID int64, externalID string) (*liability.Account, error)
	ListByUserIDFunc    func(ctx context.Context, userID int64) ([]*liability.Account, error)
	ListByItemIDFunc    func(ctx context.Context, itemID string) ([]*liability.Account, error)
}

func (m *MockLiabilityRepo) Upsert(ctx context.Context, params liability.UpsertParams) (*liability.Account, bool, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockLiabilityRepo) GetByExternalID(ctx context.Context, userID int64, externalID string) (*liability.Account, error) {
	return m.GetByExternalIDFunc(ctx, userID, externalID)
}

func (m *MockLiabilityRepo) ListByUserID(ctx context.Context, userID int64) ([]*liability.Account, error) {
	return m.ListByUserIDFunc(ctx, userID)
}

func (m *MockLiabilityRepo) ListByItemID(ctx context.Context, itemID string) ([]*liability.Account, error) {
	return m.ListByItemIDFunc(ctx, itemID)
}

// MockPropertyRepo implements liability.PropertyRepository.
type MockPropertyRepo struct {
	UpsertFunc           func(ctx context.Context, params liability.PropertyUpsertParams) (*liability.Property, error)
	GetByLiabilityIDFunc func(ctx context.Context, liabilityID int64) (*liability.Property, error)
	UpdateFunc           func(ctx context.Context, id int64, params liability.PropertyUpsertParams) (*liability.Property, error)
	ListByUserIDFunc     func(ctx context.Context, userID int64) ([]*liability.Property, error)
}

func (m *MockPropertyRepo) Upsert(ctx context.Context, params liability.PropertyUpsertParams) (*liability.Property, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockPropertyRepo) GetByLiabilityID(ctx context.Context, liabilityID int64) (*liability.Property, error) {
	if m.GetByLiabilityIDFunc != nil {
		return m.GetByLiabilityIDFunc(ctx, liabilityID)
	}
	return nil, nil
}

func (m *MockPropertyRepo) Update(ctx context.Context, id int64, params liability.PropertyUpsertParams) (*liability.Property, error) {
	return m.UpdateFunc(ctx, id, params)
}

func (m *MockPropertyRepo) ListByUserID(ctx context.Context, userID int64) ([]*liability.Property, error) {
	return m.ListByUserIDFunc(ctx, userID)
}

// MockHistoryRepo implements synchistory.Repository.
type MockHistoryRepo struct {
	AppendFunc             func(ctx context.Context, entry *synchistory.Entry) error
	ListByConnectionIDFunc func(ctx context.Context, connectionID int64, limit int) ([]*synchistory.Entry, error)
}

func (m *MockHistoryRepo) Append(ctx context.Context, entry *synchistory.Entry) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}
	return nil
}

func (m *MockHistoryRepo) ListByConnectionID(ctx context.Context, connectionID int64, limit int) ([]*synchistory.Entry, error) {
	return m.ListByConnectionIDFunc(ctx, connectionID, limit)
}

// MockPipeline implements Pipeline.
type MockPipeline struct {
	ProductValue connection.Product
	SyncFunc     func(ctx context.Context, conn *connection.Connection) (*ProductOutcome, error)
}

func (m *MockPipeline) Product() connection.Product {
	return m.ProductValue
}

func (m *MockPipeline) Sync(ctx context.Context, conn *connection.Connection) (*ProductOutcome, error) {
	return m.SyncFunc(ctx, conn)
}
