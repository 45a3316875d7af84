package main

import (
	"log"
	"net/http"

	httphandlers "finlink/internal/interfaces/http"
	"finlink/internal/shared/config"
	"finlink/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)

	// Link flow
	mux.Handle("/api/link/token", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleCreateLinkToken)))
	mux.Handle("/api/link/exchange", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleExchangeToken)))

	// Connections
	mux.Handle("/api/connections", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleListConnections)))
	mux.Handle("/api/connections/sync", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleSyncAll)))
	mux.Handle("/api/connections/{id}", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleConnectionByID)))
	mux.Handle("/api/connections/{id}/sync", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleSyncConnection)))
	mux.Handle("/api/connections/{id}/products", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleUpdateProducts)))
	mux.Handle("/api/connections/{id}/history", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleSyncHistory)))

	// Sandbox helpers
	mux.Handle("/api/sandbox/seed", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleSandboxSeed)))

	// Synced data
	mux.Handle("/api/accounts", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleListAccounts)))
	mux.Handle("/api/accounts/{id}/transactions", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleAccountTransactions)))
	mux.Handle("/api/investments/holdings", authMiddleware(http.HandlerFunc(deps.InvestmentHandler.HandleListHoldings)))
	mux.Handle("/api/liabilities", authMiddleware(http.HandlerFunc(deps.LiabilityHandler.HandleListLiabilities)))
	mux.Handle("/api/liabilities/properties", authMiddleware(http.HandlerFunc(deps.LiabilityHandler.HandleListProperties)))

	// Notifications
	mux.Handle("/api/notifications/register-device", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleRegisterDevice)))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	// Apply request tracing when telemetry is enabled
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
