package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"finlink/internal/domain/connection"
	"finlink/internal/domain/sync"
	"finlink/internal/domain/synchistory"
	"finlink/internal/shared/middleware"
)

// SyncService is the slice of the orchestrator the connection handler uses.
type SyncService interface {
	CreateLinkToken(ctx context.Context, userID int64, products []string) (string, error)
	ExchangePublicToken(ctx context.Context, params sync.ExchangeParams) *sync.ConnectionResult
	SyncConnection(ctx context.Context, connectionID int64, trigger synchistory.Trigger) (*sync.UnifiedSyncResult, error)
	SyncAllForUser(ctx context.Context, userID int64, trigger synchistory.Trigger) ([]*sync.UnifiedSyncResult, error)
	UpdateConnectionProducts(ctx context.Context, connectionID int64, products []string) error
	DisconnectConnection(ctx context.Context, connectionID int64) error
	SeedSandboxConnection(ctx context.Context, userID int64, institutionID string, products []string) (*sync.ConnectionResult, error)
}

// ConnectionHandler exposes the link flow and connection lifecycle over HTTP.
type ConnectionHandler struct {
	syncService SyncService
	connRepo    connection.Repository
	historyRepo synchistory.Repository
}

func NewConnectionHandler(syncService SyncService, connRepo connection.Repository, historyRepo synchistory.Repository) *ConnectionHandler {
	return &ConnectionHandler{
		syncService: syncService,
		connRepo:    connRepo,
		historyRepo: historyRepo,
	}
}

type CreateLinkTokenRequest struct {
	Products []string `json:"products"`
}

type CreateLinkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

type ExchangeTokenRequest struct {
	PublicToken     string   `json:"public_token"`
	InstitutionID   string   `json:"institution_id"`
	InstitutionName string   `json:"institution_name"`
	Products        []string `json:"products"`
}

type UpdateProductsRequest struct {
	Products []string `json:"products"`
}

type SandboxSeedRequest struct {
	InstitutionID string   `json:"institution_id"`
	Products      []string `json:"products"`
}

// ConnectionResponse is the wire shape for a connection. The product
// list is decoded from storage so clients never see the encoding.
type ConnectionResponse struct {
	*connection.Connection
	Products []connection.Product `json:"products"`
}

func toConnectionResponse(conn *connection.Connection) ConnectionResponse {
	return ConnectionResponse{Connection: conn, Products: conn.EnabledProducts()}
}

// HandleCreateLinkToken starts a link session for the authenticated user.
func (h *ConnectionHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateLinkTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.syncService.CreateLinkToken(r.Context(), userID, req.Products)
	if err != nil {
		writeError(w, err, "Failed to create link token")
		return
	}

	writeJSON(w, http.StatusOK, CreateLinkTokenResponse{LinkToken: token})
}

// HandleExchangeToken completes the link flow: trades the public token
// for credentials, persists the connection, and runs the initial sync.
func (h *ConnectionHandler) HandleExchangeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ExchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		http.Error(w, "public_token is required", http.StatusBadRequest)
		return
	}

	result := h.syncService.ExchangePublicToken(r.Context(), sync.ExchangeParams{
		UserID:          userID,
		PublicToken:     req.PublicToken,
		InstitutionID:   req.InstitutionID,
		InstitutionName: req.InstitutionName,
		Products:        req.Products,
		Trigger:         synchistory.TriggerLink,
	})

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

// HandleListConnections returns all connections for the authenticated user.
func (h *ConnectionHandler) HandleListConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	connections, err := h.connRepo.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing connections for user %d: %v", userID, err)
		http.Error(w, "Failed to list connections", http.StatusInternalServerError)
		return
	}

	response := make([]ConnectionResponse, 0, len(connections))
	for _, conn := range connections {
		response = append(response, toConnectionResponse(conn))
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleConnectionByID handles GET (detail) and DELETE (disconnect)
// on a single connection.
func (h *ConnectionHandler) HandleConnectionByID(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.ownedConnection(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toConnectionResponse(conn))
	case http.MethodDelete:
		if err := h.syncService.DisconnectConnection(r.Context(), conn.ID); err != nil {
			writeError(w, err, "Failed to disconnect connection")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSyncConnection triggers a manual sync for one connection.
func (h *ConnectionHandler) HandleSyncConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, ok := h.ownedConnection(w, r)
	if !ok {
		return
	}

	result, err := h.syncService.SyncConnection(r.Context(), conn.ID, synchistory.TriggerManual)
	if err != nil {
		writeError(w, err, "Failed to sync connection")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleSyncAll runs a sync for every non-disconnected connection the
// authenticated user owns.
func (h *ConnectionHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	results, err := h.syncService.SyncAllForUser(r.Context(), userID, synchistory.TriggerManual)
	if err != nil {
		writeError(w, err, "Failed to sync connections")
		return
	}
	if results == nil {
		results = []*sync.UnifiedSyncResult{}
	}

	writeJSON(w, http.StatusOK, results)
}

// HandleUpdateProducts replaces the product set a connection syncs.
func (h *ConnectionHandler) HandleUpdateProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, ok := h.ownedConnection(w, r)
	if !ok {
		return
	}

	var req UpdateProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.syncService.UpdateConnectionProducts(r.Context(), conn.ID, req.Products); err != nil {
		writeError(w, err, "Failed to update products")
		return
	}

	updated, err := h.connRepo.GetByID(r.Context(), conn.ID)
	if err != nil || updated == nil {
		log.Printf("Error reloading connection %d: %v", conn.ID, err)
		http.Error(w, "Failed to load connection", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toConnectionResponse(updated))
}

// HandleSyncHistory returns the most recent sync runs for a connection.
func (h *ConnectionHandler) HandleSyncHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, ok := h.ownedConnection(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.historyRepo.ListByConnectionID(r.Context(), conn.ID, limit)
	if err != nil {
		log.Printf("Error listing sync history for connection %d: %v", conn.ID, err)
		http.Error(w, "Failed to list sync history", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []*synchistory.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleSandboxSeed creates a sandbox connection without the link flow.
// Refused outside the sandbox environment.
func (h *ConnectionHandler) HandleSandboxSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SandboxSeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.syncService.SeedSandboxConnection(r.Context(), userID, req.InstitutionID, req.Products)
	if err != nil {
		writeError(w, err, "Failed to seed sandbox connection")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ownedConnection loads the connection from the {id} path segment and
// verifies it belongs to the authenticated user.
func (h *ConnectionHandler) ownedConnection(w http.ResponseWriter, r *http.Request) (*connection.Connection, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid connection ID", http.StatusBadRequest)
		return nil, false
	}

	conn, err := h.connRepo.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Error loading connection %d: %v", id, err)
		http.Error(w, "Failed to load connection", http.StatusInternalServerError)
		return nil, false
	}
	if conn == nil || conn.UserID != userID {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return nil, false
	}

	return conn, true
}
