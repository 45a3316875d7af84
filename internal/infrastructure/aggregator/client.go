// Package aggregator is the HTTP client for the account aggregation
// provider: link sessions, token exchange, and the per-product data
// endpoints the sync pipelines read from.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"finlink/internal/domain/syncerr"
)

// Environment selects which provider cluster requests go to.
type Environment string

const (
	EnvSandbox     Environment = "sandbox"
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// BaseURL returns the API origin for the environment.
func (e Environment) BaseURL() string {
	switch e {
	case EnvDevelopment:
		return "https://development.plaid.com"
	case EnvProduction:
		return "https://production.plaid.com"
	default:
		return "https://sandbox.plaid.com"
	}
}

const defaultTimeout = 90 * time.Second

// Config carries the API credentials injected from the environment.
type Config struct {
	ClientID    string
	Secret      string
	Environment Environment
	WebhookURL  string
}

// Client talks to the aggregator. Credentials ride in every request
// body, per the provider's auth scheme.
type Client struct {
	httpClient *http.Client
	cfg        Config
	baseURL    string
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a client for the configured environment.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cfg:        cfg,
		baseURL:    cfg.Environment.BaseURL(),
	}
}

// Environment reports which cluster the client targets. The sandbox
// seeding path uses this as its safety check.
func (c *Client) Environment() Environment {
	return c.cfg.Environment
}

type errorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// post sends an authenticated JSON request and decodes the response
// into out. Non-2xx responses surface as ExternalServiceError carrying
// the provider's error code.
func (c *Client) post(ctx context.Context, path string, payload map[string]any, out any) error {
	payload["client_id"] = c.cfg.ClientID
	payload["secret"] = c.cfg.Secret

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.ErrorCode == "" {
			return &syncerr.ExternalServiceError{
				Status:  resp.StatusCode,
				Message: string(respBody),
			}
		}
		return &syncerr.ExternalServiceError{
			Status:  resp.StatusCode,
			Code:    errResp.ErrorCode,
			Message: errResp.ErrorMessage,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// CreateLinkToken starts a link session scoped to the given products.
func (c *Client) CreateLinkToken(ctx context.Context, userID string, products []string) (string, error) {
	var out struct {
		LinkToken string `json:"link_token"`
	}
	body := map[string]any{
		"user":          map[string]any{"client_user_id": userID},
		"client_name":   "finlink",
		"products":      products,
		"country_codes": []string{"US"},
		"language":      "en",
	}
	if c.cfg.WebhookURL != "" {
		body["webhook"] = c.cfg.WebhookURL
	}
	err := c.post(ctx, "/link/token/create", body, &out)
	if err != nil {
		return "", err
	}
	return out.LinkToken, nil
}

// ExchangePublicToken trades the short-lived public token from the link
// flow for the item's long-lived access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	var out ExchangeResult
	err := c.post(ctx, "/item/public_token/exchange", map[string]any{
		"public_token": publicToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveItem revokes the access token at the provider.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/item/remove", map[string]any{
		"access_token": accessToken,
	}, nil)
}

// GetAccounts fetches all accounts on the item with current balances.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var out struct {
		Accounts []Account `json:"accounts"`
	}
	err := c.post(ctx, "/accounts/balance/get", map[string]any{
		"access_token": accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// GetHoldings fetches investment accounts, positions, and securities.
func (c *Client) GetHoldings(ctx context.Context, accessToken string) (*HoldingsResponse, error) {
	var out HoldingsResponse
	err := c.post(ctx, "/investments/holdings/get", map[string]any{
		"access_token": accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInvestmentTransactions fetches investment transactions in the
// given date window.
func (c *Client) GetInvestmentTransactions(ctx context.Context, accessToken string, start, end time.Time) (*InvestmentTransactionsResponse, error) {
	var out InvestmentTransactionsResponse
	err := c.post(ctx, "/investments/transactions/get", map[string]any{
		"access_token": accessToken,
		"start_date":   start.Format("2006-01-02"),
		"end_date":     end.Format("2006-01-02"),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiabilities fetches the item's accounts plus detailed credit,
// mortgage, and student-loan blocks.
func (c *Client) GetLiabilities(ctx context.Context, accessToken string) (*LiabilitiesResponse, error) {
	var out LiabilitiesResponse
	err := c.post(ctx, "/liabilities/get", map[string]any{
		"access_token": accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncTransactions fetches one page of the incremental feed. An empty
// cursor starts from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*TransactionsSyncResponse, error) {
	payload := map[string]any{
		"access_token": accessToken,
		"count":        500,
	}
	if cursor != "" {
		payload["cursor"] = cursor
	}
	var out TransactionsSyncResponse
	if err := c.post(ctx, "/transactions/sync", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInstitution resolves an institution id to its display name.
func (c *Client) GetInstitution(ctx context.Context, institutionID string) (*Institution, error) {
	var out struct {
		Institution Institution `json:"institution"`
	}
	err := c.post(ctx, "/institutions/get_by_id", map[string]any{
		"institution_id": institutionID,
		"country_codes":  []string{"US"},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Institution, nil
}

// SandboxCreatePublicToken mints a public token for a sandbox
// institution without a real link session. Sandbox cluster only.
func (c *Client) SandboxCreatePublicToken(ctx context.Context, institutionID string, products []string) (string, error) {
	var out struct {
		PublicToken string `json:"public_token"`
	}
	err := c.post(ctx, "/sandbox/public_token/create", map[string]any{
		"institution_id":   institutionID,
		"initial_products": products,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.PublicToken, nil
}
