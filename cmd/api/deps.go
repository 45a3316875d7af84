package main

import (
	"context"
	"log"

	"finlink/internal/domain/connection"
	"finlink/internal/domain/notification"
	"finlink/internal/domain/sync"
	"finlink/internal/infrastructure/aggregator"
	"finlink/internal/infrastructure/crypto"
	"finlink/internal/infrastructure/firebase"
	"finlink/internal/infrastructure/postgres"
	httphandlers "finlink/internal/interfaces/http"
	"finlink/internal/shared/auth"
	"finlink/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	ConnectionHandler   *httphandlers.ConnectionHandler
	AccountHandler      *httphandlers.AccountHandler
	InvestmentHandler   *httphandlers.InvestmentHandler
	LiabilityHandler    *httphandlers.LiabilityHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Auth
	JWT *auth.JWT

	// Sync engine (for the scheduler job provider)
	Orchestrator *sync.Orchestrator
	ConnRepo     connection.Repository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize credential vault
	vault, err := crypto.NewVault(cfg.Encryption.MasterKey)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	connRepo := postgres.NewConnectionRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	securityRepo := postgres.NewSecurityRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	investmentTxRepo := postgres.NewInvestmentTransactionRepository(db)
	liabilityRepo := postgres.NewLiabilityRepository(db)
	propertyRepo := postgres.NewPropertyRepository(db)
	historyRepo := postgres.NewSyncHistoryRepository(db)
	deviceTokenRepo := postgres.NewDeviceTokenRepository(db)

	// Initialize aggregator client
	client := aggregator.NewClient(aggregator.Config{
		ClientID:    cfg.Aggregator.ClientID,
		Secret:      cfg.Aggregator.Secret,
		Environment: aggregator.Environment(cfg.Aggregator.Environment),
		WebhookURL:  cfg.Aggregator.WebhookURL,
	})

	// Initialize push messaging if configured
	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, deviceTokenRepo.DeactivateToken)
		if err != nil {
			log.Printf("Warning: Failed to initialize Firebase client: %v", err)
		} else {
			messenger = fcmClient
			log.Println("Firebase messaging initialized")
		}
	}
	notificationService := notification.NewService(deviceTokenRepo, messenger)

	// Initialize sync pipelines and orchestrator
	pipelines := []sync.Pipeline{
		sync.NewTransactionPipeline(client, vault, connRepo, accountRepo, transactionRepo),
		sync.NewInvestmentPipeline(client, vault, accountRepo, securityRepo, holdingRepo, investmentTxRepo, cfg.Sync.InvestmentWindowDays),
		sync.NewLiabilityPipeline(client, vault, connRepo, liabilityRepo, propertyRepo, transactionRepo),
	}
	orchestrator := sync.NewOrchestrator(client, vault, connRepo, accountRepo, historyRepo, pipelines, notificationService)

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	// Initialize handlers
	connectionHandler := httphandlers.NewConnectionHandler(orchestrator, connRepo, historyRepo)
	accountHandler := httphandlers.NewAccountHandler(accountRepo, transactionRepo)
	investmentHandler := httphandlers.NewInvestmentHandler(holdingRepo)
	liabilityHandler := httphandlers.NewLiabilityHandler(liabilityRepo, propertyRepo)
	notificationHandler := httphandlers.NewNotificationHandler(notificationService)

	return &Dependencies{
		DB:                  db,
		ConnectionHandler:   connectionHandler,
		AccountHandler:      accountHandler,
		InvestmentHandler:   investmentHandler,
		LiabilityHandler:    liabilityHandler,
		NotificationHandler: notificationHandler,
		JWT:                 jwt,
		Orchestrator:        orchestrator,
		ConnRepo:            connRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
