package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finlink/internal/domain/connection"
)

// ConnectionRepository implements connection.Repository on Postgres.
type ConnectionRepository struct {
	db *DB
}

func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

const connectionColumns = `
	id, user_id, item_id, institution_id, institution_name, access_token,
	products, is_unified, status, consecutive_failures, last_error,
	transactions_cursor, liabilities_cursor, connected_at, last_synced_at,
	created_at, updated_at`

func (r *ConnectionRepository) Create(ctx context.Context, params connection.CreateParams) (*connection.Connection, error) {
	query := `
		INSERT INTO connections (
			user_id, item_id, institution_id, institution_name, access_token,
			products, is_unified, status, connected_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING` + connectionColumns

	row := r.db.QueryRowContext(ctx, query,
		params.UserID,
		params.ItemID,
		params.InstitutionID,
		params.InstitutionName,
		params.AccessToken,
		connection.EncodeProducts(params.Products),
		params.IsUnified,
		connection.StatusConnected,
	)
	return scanConnection(row)
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id int64) (*connection.Connection, error) {
	query := `SELECT` + connectionColumns + ` FROM connections WHERE id = $1`
	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return conn, err
}

func (r *ConnectionRepository) GetByItemID(ctx context.Context, itemID string) (*connection.Connection, error) {
	query := `SELECT` + connectionColumns + ` FROM connections WHERE item_id = $1`
	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return conn, err
}

func (r *ConnectionRepository) ListByUserID(ctx context.Context, userID int64) ([]*connection.Connection, error) {
	query := `SELECT` + connectionColumns + ` FROM connections WHERE user_id = $1 ORDER BY connected_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()
	return collectConnections(rows)
}

func (r *ConnectionRepository) ListActive(ctx context.Context) ([]*connection.Connection, error) {
	query := `SELECT` + connectionColumns + ` FROM connections WHERE status != $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, connection.StatusDisconnected)
	if err != nil {
		return nil, fmt.Errorf("failed to list active connections: %w", err)
	}
	defer rows.Close()
	return collectConnections(rows)
}

func (r *ConnectionRepository) UpdateProducts(ctx context.Context, id int64, products []connection.Product, isUnified bool) error {
	query := `
		UPDATE connections
		SET products = $1, is_unified = $2, updated_at = NOW()
		WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, connection.EncodeProducts(products), isUnified, id)
	if err != nil {
		return fmt.Errorf("failed to update products: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) UpdateTransactionsCursor(ctx context.Context, id int64, cursor string) error {
	query := `UPDATE connections SET transactions_cursor = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, cursor, id); err != nil {
		return fmt.Errorf("failed to update transactions cursor: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) UpdateLiabilitiesCursor(ctx context.Context, id int64, cursor string) error {
	query := `UPDATE connections SET liabilities_cursor = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, cursor, id); err != nil {
		return fmt.Errorf("failed to update liabilities cursor: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) RecordSyncSuccess(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE connections
		SET status = $1, consecutive_failures = 0, last_error = NULL,
		    last_synced_at = $2, updated_at = NOW()
		WHERE id = $3 AND status != $4`
	_, err := r.db.ExecContext(ctx, query, connection.StatusConnected, at, id, connection.StatusDisconnected)
	if err != nil {
		return fmt.Errorf("failed to record sync success: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) RecordSyncFailure(ctx context.Context, id int64, message string) error {
	query := `
		UPDATE connections
		SET status = $1, consecutive_failures = consecutive_failures + 1,
		    last_error = $2, updated_at = NOW()
		WHERE id = $3 AND status != $4`
	_, err := r.db.ExecContext(ctx, query, connection.StatusSyncFailed, message, id, connection.StatusDisconnected)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}

// Disconnect clears the stored access token; a disconnected connection
// can never reach the provider again.
func (r *ConnectionRepository) Disconnect(ctx context.Context, id int64) error {
	query := `
		UPDATE connections
		SET status = $1, access_token = '', updated_at = NOW()
		WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, connection.StatusDisconnected, id); err != nil {
		return fmt.Errorf("failed to disconnect connection: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*connection.Connection, error) {
	var conn connection.Connection
	var lastError, transactionsCursor, liabilitiesCursor sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&conn.ItemID,
		&conn.InstitutionID,
		&conn.InstitutionName,
		&conn.AccessToken,
		&conn.Products,
		&conn.IsUnified,
		&conn.Status,
		&conn.ConsecutiveFailures,
		&lastError,
		&transactionsCursor,
		&liabilitiesCursor,
		&conn.ConnectedAt,
		&lastSyncedAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastError.Valid {
		conn.LastError = &lastError.String
	}
	if transactionsCursor.Valid {
		conn.TransactionsCursor = &transactionsCursor.String
	}
	if liabilitiesCursor.Valid {
		conn.LiabilitiesCursor = &liabilitiesCursor.String
	}
	if lastSyncedAt.Valid {
		conn.LastSyncedAt = &lastSyncedAt.Time
	}
	return &conn, nil
}

func collectConnections(rows *sql.Rows) ([]*connection.Connection, error) {
	var conns []*connection.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}
