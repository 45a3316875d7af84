package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"finlink/internal/domain/connection"
	"finlink/internal/domain/sync"
	"finlink/internal/domain/synchistory"
)

// ConnectionSyncJob runs a unified sync for one connection.
type ConnectionSyncJob struct {
	connectionID int64
	orchestrator *sync.Orchestrator
}

// NewConnectionSyncJob creates a sync job for a connection.
func NewConnectionSyncJob(connectionID int64, orchestrator *sync.Orchestrator) *ConnectionSyncJob {
	return &ConnectionSyncJob{
		connectionID: connectionID,
		orchestrator: orchestrator,
	}
}

// Execute runs the unified sync across the connection's enabled products.
func (j *ConnectionSyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting scheduled sync for connection %d", j.connectionID)

	result, err := j.orchestrator.SyncConnection(ctx, j.connectionID, synchistory.TriggerScheduled)
	if err != nil {
		log.Printf("Scheduled sync failed for connection %d: %v", j.connectionID, err)
		return fmt.Errorf("sync failed: %w", err)
	}

	if !result.Success {
		log.Printf("Scheduled sync for connection %d completed with errors: accounts=%d transactions=%d errors=%d",
			j.connectionID, result.TotalAccounts(), result.TotalTransactions(), len(result.Errors))
		return fmt.Errorf("sync completed with %d errors", len(result.Errors))
	}

	log.Printf("Scheduled sync for connection %d completed: accounts=%d transactions=%d holdings=%d liabilities=%d",
		j.connectionID, result.TotalAccounts(), result.TotalTransactions(), result.TotalHoldings(), result.TotalLiabilities())

	return nil
}

// ConnectionID returns the connection this job syncs.
func (j *ConnectionSyncJob) ConnectionID() string {
	return strconv.FormatInt(j.connectionID, 10)
}

// Description returns a human-readable description of the job.
func (j *ConnectionSyncJob) Description() string {
	return fmt.Sprintf("Unified sync for connection %d", j.connectionID)
}

// ActiveConnectionJobProvider enumerates active connections and builds one
// sync job per connection. Disconnected connections are never scheduled.
func ActiveConnectionJobProvider(connRepo connection.Repository, orchestrator *sync.Orchestrator) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		connections, err := connRepo.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active connections: %w", err)
		}

		jobs := make([]Job, 0, len(connections))
		for _, conn := range connections {
			jobs = append(jobs, NewConnectionSyncJob(conn.ID, orchestrator))
		}

		return jobs, nil
	}
}
