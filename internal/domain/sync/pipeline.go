// Package sync runs the product pipelines that mirror aggregator data
// into local storage and the orchestrator that coordinates them per
// connection.
package sync

import (
	"context"

	"finlink/internal/domain/connection"
)

// Pipeline syncs one product for one connection. Implementations never
// touch connection status; the orchestrator owns the status machine.
// A returned error means the whole pipeline failed; recoverable per-row
// problems are accumulated in the outcome's Errors instead.
type Pipeline interface {
	Product() connection.Product
	Sync(ctx context.Context, conn *connection.Connection) (*ProductOutcome, error)
}
