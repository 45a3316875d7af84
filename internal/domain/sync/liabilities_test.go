package sync

import (
	"context"
	"testing"

	"finlink/internal/domain/liability"
	"finlink/internal/domain/transaction"
	"finlink/internal/infrastructure/aggregator"
)

func boolPtr(b bool) *bool { return &b }

func liabilitiesFixture() *aggregator.LiabilitiesResponse {
	resp := &aggregator.LiabilitiesResponse{
		Accounts: []aggregator.Account{
			{AccountID: "card-1", Name: "Rewards Card", Type: "credit", Subtype: "credit card",
				Balances: aggregator.Balances{Current: floatPtr(820.50), Limit: floatPtr(5000), ISOCurrencyCode: strPtr("USD")}},
			{AccountID: "card-2", Name: "Store Card", Type: "credit", Subtype: "credit card",
				Balances: aggregator.Balances{Current: floatPtr(120), ISOCurrencyCode: strPtr("USD")}},
			{AccountID: "mort-1", Name: "Home Loan", Type: "loan", Subtype: "mortgage",
				Balances: aggregator.Balances{Current: floatPtr(245000), ISOCurrencyCode: strPtr("USD")}},
			{AccountID: "loan-1", Name: "Student Loan", Type: "loan", Subtype: "student",
				Balances: aggregator.Balances{Current: floatPtr(31000), ISOCurrencyCode: strPtr("USD")}},
		},
	}
	resp.Liabilities.Credit = []aggregator.CreditLiability{
		{
			AccountID:            strPtr("card-1"),
			APRs:                 []aggregator.APR{{APRPercentage: 21.49, APRType: "purchase_apr"}},
			MinimumPaymentAmount: floatPtr(35),
			NextPaymentDueDate:   strPtr("2025-07-01"),
			LastStatementBalance: floatPtr(640.10),
			IsOverdue:            boolPtr(false),
		},
	}
	resp.Liabilities.Mortgage = []aggregator.MortgageLiability{
		{
			AccountID:                  "mort-1",
			InterestRate:               aggregator.InterestRate{Percentage: floatPtr(5.25)},
			NextMonthlyPayment:         floatPtr(1850),
			NextPaymentDueDate:         strPtr("2025-07-01"),
			OriginationDate:            strPtr("2020-03-15"),
			OriginationPrincipalAmount: floatPtr(300000),
			PropertyAddress: &aggregator.Address{
				Street: "123 Main St", City: "Springfield", Region: "IL", PostalCode: "62704", Country: "US",
			},
		},
	}
	resp.Liabilities.Student = []aggregator.StudentLoan{
		{
			AccountID:              "loan-1",
			InterestRatePercentage: floatPtr(4.5),
			MinimumPaymentAmount:   floatPtr(180),
			NextPaymentDueDate:     strPtr("2025-07-10"),
		},
	}
	return resp
}

func TestLiabilityPipelineSync(t *testing.T) {
	conn := testConnection(`["liabilities"]`)

	client := &MockClient{
		GetLiabilitiesFunc: func(ctx context.Context, accessToken string) (*aggregator.LiabilitiesResponse, error) {
			return liabilitiesFixture(), nil
		},
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string) (*aggregator.TransactionsSyncResponse, error) {
			return &aggregator.TransactionsSyncResponse{
				Added: []aggregator.Transaction{
					{TransactionID: "ctx-1", AccountID: "card-1", Amount: 52.30, DateString: "2025-06-05", Name: "Grocery"},
					{TransactionID: "ctx-2", AccountID: "acc-unrelated", Amount: 10, DateString: "2025-06-05", Name: "Skipped"},
				},
				NextCursor: "liab-cursor-1",
			}, nil
		},
	}

	var upserted []liability.UpsertParams
	var nextID int64
	liabRepo := &MockLiabilityRepo{
		UpsertFunc: func(ctx context.Context, params liability.UpsertParams) (*liability.Account, bool, error) {
			upserted = append(upserted, params)
			nextID++
			return &liability.Account{ID: nextID, ExternalID: params.ExternalID, Kind: params.Kind}, true, nil
		},
	}

	var propertyParams *liability.PropertyUpsertParams
	propertyRepo := &MockPropertyRepo{
		UpsertFunc: func(ctx context.Context, params liability.PropertyUpsertParams) (*liability.Property, error) {
			propertyParams = &params
			return &liability.Property{ID: 1}, nil
		},
	}

	var cardTx []transaction.UpsertParams
	txRepo := &MockTransactionRepo{
		UpsertFunc: func(ctx context.Context, params transaction.UpsertParams) (*transaction.UpsertResult, error) {
			cardTx = append(cardTx, params)
			return &transaction.UpsertResult{Created: true}, nil
		},
	}

	var persistedCursor string
	connRepo := &MockConnectionRepo{
		UpdateLiabilitiesCursorFunc: func(ctx context.Context, id int64, cursor string) error {
			persistedCursor = cursor
			return nil
		},
	}

	pipeline := NewLiabilityPipeline(client, &MockVault{}, connRepo, liabRepo, propertyRepo, txRepo)
	outcome, err := pipeline.Sync(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// card-1 detailed, card-2 fallback, mortgage, student loan.
	if outcome.Liabilities != 4 {
		t.Errorf("expected 4 liabilities, got %d", outcome.Liabilities)
	}

	kinds := map[liability.Kind]int{}
	fallbackSeen := false
	for _, params := range upserted {
		kinds[params.Kind]++
		if params.ExternalID == "card-2" {
			fallbackSeen = true
			if params.InterestRate != nil || params.MinimumPayment != nil {
				t.Error("fallback card must only carry raw account data")
			}
			if params.Balance != 120 {
				t.Errorf("fallback card balance = %f", params.Balance)
			}
		}
		if params.ExternalID == "card-1" {
			if params.InterestRate == nil || *params.InterestRate != 21.49 {
				t.Errorf("expected purchase APR on card-1, got %v", params.InterestRate)
			}
			if params.CreditLimit == nil || *params.CreditLimit != 5000 {
				t.Errorf("expected credit limit from raw account, got %v", params.CreditLimit)
			}
		}
		if params.ExternalID == "mort-1" && params.OriginalPrincipal == nil {
			t.Error("expected origination principal on the mortgage")
		}
	}
	if !fallbackSeen {
		t.Error("credit account without a detailed block must still be stored")
	}
	if kinds[liability.KindCredit] != 2 || kinds[liability.KindMortgage] != 1 || kinds[liability.KindStudent] != 1 {
		t.Errorf("unexpected kind distribution: %v", kinds)
	}

	if propertyParams == nil {
		t.Fatal("expected mortgage address to create a property")
	}
	if propertyParams.Street != "123 Main St" || propertyParams.LiabilityID == nil {
		t.Errorf("unexpected property params: %+v", propertyParams)
	}

	if len(cardTx) != 1 {
		t.Fatalf("expected 1 card transaction, got %d", len(cardTx))
	}
	if cardTx[0].Amount != -52.30 {
		t.Errorf("card transaction sign must be inverted, got %f", cardTx[0].Amount)
	}
	if cardTx[0].LiabilityAccountID == nil || cardTx[0].AccountID != nil {
		t.Error("card transaction must target the liability account")
	}
	if persistedCursor != "liab-cursor-1" {
		t.Errorf("expected liabilities cursor persisted, got %q", persistedCursor)
	}
}

func TestLiabilityPipelinePropertyFailureIsIsolated(t *testing.T) {
	conn := testConnection(`["liabilities"]`)

	fixture := liabilitiesFixture()
	fixture.Liabilities.Credit = nil
	fixture.Liabilities.Student = nil
	fixture.Accounts = fixture.Accounts[2:3]

	client := &MockClient{
		GetLiabilitiesFunc: func(ctx context.Context, accessToken string) (*aggregator.LiabilitiesResponse, error) {
			return fixture, nil
		},
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string) (*aggregator.TransactionsSyncResponse, error) {
			return &aggregator.TransactionsSyncResponse{NextCursor: "c"}, nil
		},
	}
	liabRepo := &MockLiabilityRepo{
		UpsertFunc: func(ctx context.Context, params liability.UpsertParams) (*liability.Account, bool, error) {
			return &liability.Account{ID: 1, Kind: params.Kind}, true, nil
		},
	}
	propertyRepo := &MockPropertyRepo{
		UpsertFunc: func(ctx context.Context, params liability.PropertyUpsertParams) (*liability.Property, error) {
			return nil, context.DeadlineExceeded
		},
	}

	pipeline := NewLiabilityPipeline(client, &MockVault{}, &MockConnectionRepo{}, liabRepo, propertyRepo, &MockTransactionRepo{})
	outcome, err := pipeline.Sync(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Liabilities != 1 {
		t.Errorf("mortgage should survive a property failure, got %d liabilities", outcome.Liabilities)
	}
	if len(outcome.Errors) != 0 {
		t.Errorf("property failure must not surface as a row error: %v", outcome.Errors)
	}
}

func TestLiabilityPipelineLinkedPropertyAddressRefresh(t *testing.T) {
	conn := testConnection(`["liabilities"]`)

	fixture := liabilitiesFixture()
	fixture.Liabilities.Credit = nil
	fixture.Liabilities.Student = nil
	fixture.Accounts = fixture.Accounts[2:3]

	client := &MockClient{
		GetLiabilitiesFunc: func(ctx context.Context, accessToken string) (*aggregator.LiabilitiesResponse, error) {
			return fixture, nil
		},
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string) (*aggregator.TransactionsSyncResponse, error) {
			return &aggregator.TransactionsSyncResponse{NextCursor: "c"}, nil
		},
	}
	liabRepo := &MockLiabilityRepo{
		UpsertFunc: func(ctx context.Context, params liability.UpsertParams) (*liability.Account, bool, error) {
			return &liability.Account{ID: 9, Kind: params.Kind}, false, nil
		},
	}

	// The liability already has a property linked under its old address.
	var updatedID int64
	var updatedParams liability.PropertyUpsertParams
	propertyRepo := &MockPropertyRepo{
		GetByLiabilityIDFunc: func(ctx context.Context, liabilityID int64) (*liability.Property, error) {
			return &liability.Property{ID: 42, Street: "9 Old Rd"}, nil
		},
		UpdateFunc: func(ctx context.Context, id int64, params liability.PropertyUpsertParams) (*liability.Property, error) {
			updatedID = id
			updatedParams = params
			return &liability.Property{ID: id}, nil
		},
		UpsertFunc: func(ctx context.Context, params liability.PropertyUpsertParams) (*liability.Property, error) {
			t.Fatal("linked property must be updated in place, not re-matched by address")
			return nil, nil
		},
	}

	pipeline := NewLiabilityPipeline(client, &MockVault{}, &MockConnectionRepo{}, liabRepo, propertyRepo, &MockTransactionRepo{})
	if _, err := pipeline.Sync(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updatedID != 42 {
		t.Fatalf("expected the linked property row to be updated, got id %d", updatedID)
	}
	if updatedParams.Street != "123 Main St" {
		t.Errorf("expected refreshed street, got %q", updatedParams.Street)
	}
	if updatedParams.LiabilityID == nil || *updatedParams.LiabilityID != 9 {
		t.Errorf("expected liability link preserved, got %v", updatedParams.LiabilityID)
	}
}

func TestLiabilityPipelineOverdueFromDueDate(t *testing.T) {
	conn := testConnection(`["liabilities"]`)

	fixture := &aggregator.LiabilitiesResponse{
		Accounts: []aggregator.Account{
			{AccountID: "card-1", Name: "Card", Type: "credit",
				Balances: aggregator.Balances{Current: floatPtr(100)}},
		},
	}
	fixture.Liabilities.Credit = []aggregator.CreditLiability{
		{AccountID: strPtr("card-1"), NextPaymentDueDate: strPtr("2000-01-01")},
	}

	client := &MockClient{
		GetLiabilitiesFunc: func(ctx context.Context, accessToken string) (*aggregator.LiabilitiesResponse, error) {
			return fixture, nil
		},
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string) (*aggregator.TransactionsSyncResponse, error) {
			return &aggregator.TransactionsSyncResponse{}, nil
		},
	}

	var stored *liability.UpsertParams
	liabRepo := &MockLiabilityRepo{
		UpsertFunc: func(ctx context.Context, params liability.UpsertParams) (*liability.Account, bool, error) {
			stored = &params
			return &liability.Account{ID: 1}, true, nil
		},
	}

	pipeline := NewLiabilityPipeline(client, &MockVault{}, &MockConnectionRepo{}, liabRepo, &MockPropertyRepo{}, &MockTransactionRepo{})
	if _, err := pipeline.Sync(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil {
		t.Fatal("expected a stored liability")
	}
	if !stored.IsOverdue {
		t.Error("a past due date must mark the liability overdue")
	}
	if stored.DaysUntilDue == nil || *stored.DaysUntilDue >= 0 {
		t.Errorf("expected negative days until due, got %v", stored.DaysUntilDue)
	}
}
