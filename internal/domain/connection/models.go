// Package connection defines the link between a user and an institution
// at the aggregator: one item id, one encrypted access token, and the
// set of products the connection syncs.
package connection

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Status tracks the health of a connection. Disconnected is terminal.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusSyncFailed   Status = "sync_failed"
	StatusDisconnected Status = "disconnected"
)

// CanTransition reports whether the status machine allows moving from
// the current status to next. Connected and SyncFailed flip freely
// between each other; nothing leaves Disconnected.
func (s Status) CanTransition(next Status) bool {
	if s == StatusDisconnected {
		return false
	}
	switch next {
	case StatusConnected, StatusSyncFailed, StatusDisconnected:
		return true
	}
	return false
}

// Product is a data product a connection can sync.
type Product string

const (
	ProductTransactions Product = "transactions"
	ProductInvestments  Product = "investments"
	ProductLiabilities  Product = "liabilities"
)

// SupportedProducts lists every product the sync engine implements.
var SupportedProducts = []Product{ProductTransactions, ProductInvestments, ProductLiabilities}

// IsSupported reports whether p names a known product.
func (p Product) IsSupported() bool {
	switch p {
	case ProductTransactions, ProductInvestments, ProductLiabilities:
		return true
	}
	return false
}

// Connection is a single linked institution. AccessToken is stored
// encrypted and must pass through the vault before use; Products holds
// the encoded product list (see ParseProducts).
type Connection struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"user_id"`
	ItemID              string     `json:"item_id"`
	InstitutionID       string     `json:"institution_id"`
	InstitutionName     string     `json:"institution_name"`
	AccessToken         string     `json:"-"`
	Products            string     `json:"products"`
	IsUnified           bool       `json:"is_unified"`
	Status              Status     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           *string    `json:"last_error,omitempty"`
	TransactionsCursor  *string    `json:"-"`
	LiabilitiesCursor   *string    `json:"-"`
	ConnectedAt         time.Time  `json:"connected_at"`
	LastSyncedAt        *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// EnabledProducts decodes the stored product list.
func (c *Connection) EnabledProducts() []Product {
	return ParseProducts(c.Products)
}

// HasProduct reports whether the connection syncs the given product.
func (c *Connection) HasProduct(p Product) bool {
	for _, enabled := range c.EnabledProducts() {
		if enabled == p {
			return true
		}
	}
	return false
}

// ParseProducts decodes a stored product list. New rows hold a JSON
// array; rows written before the unified engine hold a comma-separated
// string. Anything unreadable falls back to transactions only.
func ParseProducts(stored string) []Product {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return []Product{ProductTransactions}
	}

	if strings.HasPrefix(stored, "[") {
		var names []string
		if err := json.Unmarshal([]byte(stored), &names); err == nil {
			if products := normalize(names); len(products) > 0 {
				return products
			}
		}
		return []Product{ProductTransactions}
	}

	if products := normalize(strings.Split(stored, ",")); len(products) > 0 {
		return products
	}
	return []Product{ProductTransactions}
}

// EncodeProducts serializes a product list in the canonical JSON form.
func EncodeProducts(products []Product) string {
	if len(products) == 0 {
		products = []Product{ProductTransactions}
	}
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = string(p)
	}
	encoded, _ := json.Marshal(names)
	return string(encoded)
}

// NormalizeProducts lowercases, trims, deduplicates, and drops unknown
// product names from raw caller input.
func NormalizeProducts(names []string) []Product {
	return normalize(names)
}

func normalize(names []string) []Product {
	seen := make(map[Product]bool, len(names))
	products := make([]Product, 0, len(names))
	for _, name := range names {
		p := Product(strings.ToLower(strings.TrimSpace(name)))
		if !p.IsSupported() || seen[p] {
			continue
		}
		seen[p] = true
		products = append(products, p)
	}
	return products
}

// CreateParams carries everything needed to persist a new connection.
type CreateParams struct {
	UserID          int64
	ItemID          string
	InstitutionID   string
	InstitutionName string
	AccessToken     string
	Products        []Product
	IsUnified       bool
}

// Repository persists connections. Status writes happen through the
// dedicated methods so failure counters stay consistent with status.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Connection, error)
	GetByID(ctx context.Context, id int64) (*Connection, error)
	GetByItemID(ctx context.Context, itemID string) (*Connection, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Connection, error)
	ListActive(ctx context.Context) ([]*Connection, error)
	UpdateProducts(ctx context.Context, id int64, products []Product, isUnified bool) error
	UpdateTransactionsCursor(ctx context.Context, id int64, cursor string) error
	UpdateLiabilitiesCursor(ctx context.Context, id int64, cursor string) error
	RecordSyncSuccess(ctx context.Context, id int64, at time.Time) error
	RecordSyncFailure(ctx context.Context, id int64, message string) error
	Disconnect(ctx context.Context, id int64) error
}
