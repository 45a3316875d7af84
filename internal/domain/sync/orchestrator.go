package sync

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finlink/internal/domain/account"
	"finlink/internal/domain/connection"
	"finlink/internal/domain/syncerr"
	"finlink/internal/domain/synchistory"
	"finlink/internal/infrastructure/aggregator"
)

// TokenVault is the slice of the credential vault the orchestrator needs.
type TokenVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Notifier pushes sync alerts to the connection's owner. Optional.
type Notifier interface {
	SyncFailed(ctx context.Context, conn *connection.Connection, errs []string)
	ConnectionDisconnected(ctx context.Context, conn *connection.Connection)
}

// Orchestrator owns the connection lifecycle: link sessions, token
// exchange, product changes, disconnects, and the unified sync that
// fans out to the product pipelines. It is the only writer of
// connection status.
type Orchestrator struct {
	client      aggregator.ClientInterface
	vault       TokenVault
	connRepo    connection.Repository
	accountRepo account.Repository
	historyRepo synchistory.Repository
	pipelines   map[connection.Product]Pipeline
	notifier    Notifier

	syncDuration metric.Float64Histogram
	syncTotal    metric.Int64Counter
}

// NewOrchestrator wires the orchestrator. notifier may be nil.
func NewOrchestrator(
	client aggregator.ClientInterface,
	vault TokenVault,
	connRepo connection.Repository,
	accountRepo account.Repository,
	historyRepo synchistory.Repository,
	pipelines []Pipeline,
	notifier Notifier,
) *Orchestrator {
	byProduct := make(map[connection.Product]Pipeline, len(pipelines))
	for _, p := range pipelines {
		byProduct[p.Product()] = p
	}

	meter := otel.Meter("finlink.sync")
	syncDuration, err := meter.Float64Histogram(
		"sync.duration",
		metric.WithDescription("Duration of product pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Printf("Failed to create sync.duration histogram: %v", err)
	}
	syncTotal, err := meter.Int64Counter(
		"sync.total",
		metric.WithDescription("Total product pipeline runs"),
	)
	if err != nil {
		log.Printf("Failed to create sync.total counter: %v", err)
	}

	return &Orchestrator{
		client:       client,
		vault:        vault,
		connRepo:     connRepo,
		accountRepo:  accountRepo,
		historyRepo:  historyRepo,
		pipelines:    byProduct,
		notifier:     notifier,
		syncDuration: syncDuration,
		syncTotal:    syncTotal,
	}
}

// CreateLinkToken starts a link session for the user. An empty or
// unrecognized product list falls back to transactions.
func (o *Orchestrator) CreateLinkToken(ctx context.Context, userID int64, products []string) (string, error) {
	normalized := connection.NormalizeProducts(products)
	if len(normalized) == 0 {
		normalized = []connection.Product{connection.ProductTransactions}
	}
	names := make([]string, len(normalized))
	for i, p := range normalized {
		names[i] = string(p)
	}

	token, err := o.client.CreateLinkToken(ctx, strconv.FormatInt(userID, 10), names)
	if err != nil {
		return "", fmt.Errorf("failed to create link token: %w", err)
	}
	return token, nil
}

// ExchangeParams carries the output of a completed link session.
type ExchangeParams struct {
	UserID          int64
	PublicToken     string
	InstitutionID   string
	InstitutionName string
	Products        []string
	Trigger         synchistory.Trigger
}

// ExchangePublicToken trades the public token for an access token,
// persists the connection with the token encrypted, and runs the first
// sync. Failures come back inside the result rather than as an error so
// callers always get a reportable outcome.
func (o *Orchestrator) ExchangePublicToken(ctx context.Context, params ExchangeParams) *ConnectionResult {
	if params.PublicToken == "" {
		return &ConnectionResult{Error: "public token is required"}
	}

	products := connection.NormalizeProducts(params.Products)
	if len(products) == 0 {
		products = []connection.Product{connection.ProductTransactions}
	}

	exchanged, err := o.client.ExchangePublicToken(ctx, params.PublicToken)
	if err != nil {
		return &ConnectionResult{Error: fmt.Sprintf("failed to exchange public token: %v", err)}
	}

	encrypted, err := o.vault.Encrypt(exchanged.AccessToken)
	if err != nil {
		return &ConnectionResult{Error: fmt.Sprintf("failed to encrypt access token: %v", err)}
	}

	// The provider hands back the same item id when a user relinks an
	// institution they already connected. Reuse that row instead of
	// spawning a duplicate connection.
	if existing, err := o.connRepo.GetByItemID(ctx, exchanged.ItemID); err == nil && existing != nil {
		if existing.UserID != params.UserID {
			return &ConnectionResult{Error: "item is already linked to another user"}
		}
		result := &ConnectionResult{
			Success:         true,
			ConnectionID:    existing.ID,
			ItemID:          existing.ItemID,
			InstitutionName: existing.InstitutionName,
			AccountSource:   accountSource(existing.EnabledProducts()),
		}
		return o.runInitialSync(ctx, result, params.Trigger)
	}

	institutionName := params.InstitutionName
	if institutionName == "" && params.InstitutionID != "" {
		if inst, err := o.client.GetInstitution(ctx, params.InstitutionID); err == nil {
			institutionName = inst.Name
		}
	}

	conn, err := o.connRepo.Create(ctx, connection.CreateParams{
		UserID:          params.UserID,
		ItemID:          exchanged.ItemID,
		InstitutionID:   params.InstitutionID,
		InstitutionName: institutionName,
		AccessToken:     encrypted,
		Products:        products,
		IsUnified:       len(products) > 1,
	})
	if err != nil {
		return &ConnectionResult{Error: fmt.Sprintf("failed to persist connection: %v", err)}
	}

	result := &ConnectionResult{
		Success:         true,
		ConnectionID:    conn.ID,
		ItemID:          conn.ItemID,
		InstitutionName: institutionName,
		AccountSource:   accountSource(products),
	}

	return o.runInitialSync(ctx, result, params.Trigger)
}

// runInitialSync runs the first sync for a freshly linked (or relinked)
// connection. The connection persisted, so the link itself succeeded,
// but the caller must still see when the first sync does not land.
func (o *Orchestrator) runInitialSync(ctx context.Context, result *ConnectionResult, trigger synchistory.Trigger) *ConnectionResult {
	if trigger == "" {
		trigger = synchistory.TriggerLink
	}
	syncResult, err := o.SyncConnection(ctx, result.ConnectionID, trigger)
	if err != nil {
		log.Printf("Connection %d: initial sync failed: %v", result.ConnectionID, err)
		result.Error = fmt.Sprintf("initial sync failed: %v", err)
	}
	result.Sync = syncResult
	return result
}

// accountSource picks the display hint for where the linked accounts
// surface: investments win over liabilities, liabilities over cash.
func accountSource(products []connection.Product) string {
	hasInvestments, hasLiabilities := false, false
	for _, p := range products {
		switch p {
		case connection.ProductInvestments:
			hasInvestments = true
		case connection.ProductLiabilities:
			hasLiabilities = true
		}
	}
	switch {
	case hasInvestments:
		return "investment"
	case hasLiabilities:
		return "liability"
	default:
		return "cash"
	}
}

// SyncConnection runs every enabled pipeline for the connection. A
// pipeline failure is isolated: the remaining pipelines still run, the
// failure lands in the result, and the connection flips to sync_failed.
func (o *Orchestrator) SyncConnection(ctx context.Context, connectionID int64, trigger synchistory.Trigger) (*UnifiedSyncResult, error) {
	conn, err := o.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, &syncerr.NotFoundError{Resource: "connection", ID: strconv.FormatInt(connectionID, 10)}
	}
	if conn.Status == connection.StatusDisconnected {
		return nil, syncerr.NewValidation("connection %d is disconnected", connectionID)
	}

	started := time.Now()
	result := &UnifiedSyncResult{
		ConnectionID: conn.ID,
		UserID:       conn.UserID,
		Success:      true,
		Products:     make(map[connection.Product]*ProductOutcome),
		StartedAt:    started,
	}

	// Pipelines run in the canonical product order so transaction
	// accounts exist before investments and liabilities reference them.
	for _, product := range connection.SupportedProducts {
		if !conn.HasProduct(product) {
			continue
		}
		pipeline, ok := o.pipelines[product]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("no pipeline for product %s", product))
			result.Success = false
			continue
		}

		pipelineStart := time.Now()
		outcome, err := o.runPipeline(ctx, pipeline, conn)
		o.recordPipelineMetrics(ctx, product, err == nil, time.Since(pipelineStart))

		if outcome != nil {
			result.Products[product] = outcome
		}
		if err != nil {
			psErr := &syncerr.ProductSyncError{Product: string(product), Err: err}
			result.Errors = append(result.Errors, psErr.Error())
			result.Success = false
		}
	}

	result.Duration = time.Since(started)

	if result.Success {
		if err := o.connRepo.RecordSyncSuccess(ctx, conn.ID, time.Now()); err != nil {
			log.Printf("Connection %d: failed to record sync success: %v", conn.ID, err)
		}
	} else {
		message := "sync failed"
		if len(result.Errors) > 0 {
			message = result.Errors[0]
		}
		if err := o.connRepo.RecordSyncFailure(ctx, conn.ID, message); err != nil {
			log.Printf("Connection %d: failed to record sync failure: %v", conn.ID, err)
		}
		if o.notifier != nil {
			o.notifier.SyncFailed(ctx, conn, result.Errors)
		}
	}

	o.appendHistory(ctx, conn, trigger, result)

	log.Printf("Connection %d: sync completed success=%v products=%d errors=%d duration=%s",
		conn.ID, result.Success, len(result.Products), len(result.Errors), result.Duration)
	return result, nil
}

// runPipeline isolates a panicking pipeline so one product cannot take
// down the whole run.
func (o *Orchestrator) runPipeline(ctx context.Context, pipeline Pipeline, conn *connection.Connection) (outcome *ProductOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
	}()
	return pipeline.Sync(ctx, conn)
}

func (o *Orchestrator) recordPipelineMetrics(ctx context.Context, product connection.Product, success bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("product", string(product)),
		attribute.Bool("success", success),
	)
	if o.syncDuration != nil {
		o.syncDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if o.syncTotal != nil {
		o.syncTotal.Add(ctx, 1, attrs)
	}
}

func (o *Orchestrator) appendHistory(ctx context.Context, conn *connection.Connection, trigger synchistory.Trigger, result *UnifiedSyncResult) {
	entry := synchistory.NewEntry(conn.ID, conn.UserID, trigger, result.StartedAt)
	entry.Success = result.Success
	entry.AccountsSynced = result.TotalAccounts()
	entry.TransactionsSynced = result.TotalTransactions()
	entry.HoldingsSynced = result.TotalHoldings()
	entry.LiabilitiesSynced = result.TotalLiabilities()
	entry.Errors = result.Errors
	entry.Duration = result.Duration
	if err := o.historyRepo.Append(ctx, entry); err != nil {
		log.Printf("Connection %d: failed to append sync history: %v", conn.ID, err)
	}
}

// SyncAllForUser syncs every non-disconnected connection the user owns.
func (o *Orchestrator) SyncAllForUser(ctx context.Context, userID int64, trigger synchistory.Trigger) ([]*UnifiedSyncResult, error) {
	conns, err := o.connRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	results := make([]*UnifiedSyncResult, 0, len(conns))
	for _, conn := range conns {
		if conn.Status == connection.StatusDisconnected {
			continue
		}
		result, err := o.SyncConnection(ctx, conn.ID, trigger)
		if err != nil {
			log.Printf("Connection %d: sync failed: %v", conn.ID, err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// UpdateConnectionProducts changes which products the connection syncs.
func (o *Orchestrator) UpdateConnectionProducts(ctx context.Context, connectionID int64, products []string) error {
	normalized := connection.NormalizeProducts(products)
	if len(normalized) == 0 {
		return syncerr.NewValidation("at least one supported product is required")
	}

	conn, err := o.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return &syncerr.NotFoundError{Resource: "connection", ID: strconv.FormatInt(connectionID, 10)}
	}
	if conn.Status == connection.StatusDisconnected {
		return syncerr.NewValidation("connection %d is disconnected", connectionID)
	}

	return o.connRepo.UpdateProducts(ctx, connectionID, normalized, len(normalized) > 1)
}

// DisconnectConnection revokes the access token at the provider, clears
// it locally, and flips the connection and its accounts to disconnected.
// Disconnecting an already disconnected connection is a no-op.
func (o *Orchestrator) DisconnectConnection(ctx context.Context, connectionID int64) error {
	conn, err := o.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return &syncerr.NotFoundError{Resource: "connection", ID: strconv.FormatInt(connectionID, 10)}
	}
	if !conn.Status.CanTransition(connection.StatusDisconnected) {
		return nil
	}

	// Revocation at the provider is best effort: the local disconnect
	// must land even when the provider is unreachable.
	if token, err := o.vault.Decrypt(conn.AccessToken); err == nil {
		if err := o.client.RemoveItem(ctx, token); err != nil {
			log.Printf("Connection %d: provider revocation failed: %v", conn.ID, err)
		}
	} else {
		log.Printf("Connection %d: could not decrypt token for revocation: %v", conn.ID, err)
	}

	if err := o.connRepo.Disconnect(ctx, connectionID); err != nil {
		return fmt.Errorf("failed to disconnect connection: %w", err)
	}

	message := fmt.Sprintf("Connection to %s was disconnected", conn.InstitutionName)
	if _, err := o.accountRepo.MarkDisconnectedByItemID(ctx, conn.ItemID, message); err != nil {
		log.Printf("Connection %d: failed to mark accounts disconnected: %v", conn.ID, err)
	}

	if o.notifier != nil {
		o.notifier.ConnectionDisconnected(ctx, conn)
	}
	return nil
}

// SeedSandboxConnection links a sandbox institution without a real link
// session. Refused outside the sandbox environment.
func (o *Orchestrator) SeedSandboxConnection(ctx context.Context, userID int64, institutionID string, products []string) (*ConnectionResult, error) {
	if o.client.Environment() != aggregator.EnvSandbox {
		return nil, syncerr.NewValidation("sandbox seeding is only available in the sandbox environment")
	}

	normalized := connection.NormalizeProducts(products)
	if len(normalized) == 0 {
		normalized = []connection.Product{connection.ProductTransactions}
	}
	names := make([]string, len(normalized))
	for i, p := range normalized {
		names[i] = string(p)
	}

	publicToken, err := o.client.SandboxCreatePublicToken(ctx, institutionID, names)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox public token: %w", err)
	}

	return o.ExchangePublicToken(ctx, ExchangeParams{
		UserID:        userID,
		PublicToken:   publicToken,
		InstitutionID: institutionID,
		Products:      names,
		Trigger:       synchistory.TriggerLink,
	}), nil
}
