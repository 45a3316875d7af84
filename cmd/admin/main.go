package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"finlink/internal/domain/sync"
	"finlink/internal/domain/synchistory"
	"finlink/internal/infrastructure/aggregator"
	"finlink/internal/infrastructure/crypto"
	"finlink/internal/infrastructure/postgres"
	"finlink/internal/shared/config"
)

const usage = `Finlink Admin CLI - Management commands for the Finlink API

Usage:
  admin <command> [options]

Commands:
  sync         Run a full product sync for existing connections
  disconnect   Disconnect a connection and revoke its access token

Examples:
  # Sync a specific connection
  admin sync --connection-id=1

  # Sync multiple connections
  admin sync --connection-id=1,2,3

  # Sync every active connection
  admin sync --all

  # Run with timeout
  admin sync --connection-id=1 --timeout=5m

  # Disconnect a connection
  admin disconnect --connection-id=1`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "sync":
		runSync(os.Args[2:])
	case "disconnect":
		runDisconnect(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

// buildEngine wires the sync engine against the live database. The
// admin CLI runs without a notifier; results print to stdout instead.
func buildEngine(cfg *config.Config) (*postgres.DB, *sync.Orchestrator, *postgres.ConnectionRepository, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, nil, nil, err
	}

	vault, err := crypto.NewVault(cfg.Encryption.MasterKey)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	connRepo := postgres.NewConnectionRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	securityRepo := postgres.NewSecurityRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	investmentTxRepo := postgres.NewInvestmentTransactionRepository(db)
	liabilityRepo := postgres.NewLiabilityRepository(db)
	propertyRepo := postgres.NewPropertyRepository(db)
	historyRepo := postgres.NewSyncHistoryRepository(db)

	client := aggregator.NewClient(aggregator.Config{
		ClientID:    cfg.Aggregator.ClientID,
		Secret:      cfg.Aggregator.Secret,
		Environment: aggregator.Environment(cfg.Aggregator.Environment),
	})

	pipelines := []sync.Pipeline{
		sync.NewTransactionPipeline(client, vault, connRepo, accountRepo, transactionRepo),
		sync.NewInvestmentPipeline(client, vault, accountRepo, securityRepo, holdingRepo, investmentTxRepo, cfg.Sync.InvestmentWindowDays),
		sync.NewLiabilityPipeline(client, vault, connRepo, liabilityRepo, propertyRepo, transactionRepo),
	}
	orchestrator := sync.NewOrchestrator(client, vault, connRepo, accountRepo, historyRepo, pipelines, nil)

	return db, orchestrator, connRepo, nil
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	connIDStr := fs.String("connection-id", "", "Connection ID(s) to sync (comma-separated for multiple)")
	allConnections := fs.Bool("all", false, "Sync all active connections")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Println("Usage: admin sync [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin sync --connection-id=1")
		fmt.Println("  admin sync --connection-id=1,2,3")
		fmt.Println("  admin sync --all")
		fmt.Println("  admin sync --all --timeout=1h")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *connIDStr == "" && !*allConnections {
		fmt.Println("Error: must specify --connection-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	// Parse timeout
	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, orchestrator, connRepo, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var connIDs []int64

	if *allConnections {
		conns, err := connRepo.ListActive(ctx)
		if err != nil {
			log.Fatalf("Failed to list connections: %v", err)
		}
		for _, c := range conns {
			connIDs = append(connIDs, c.ID)
		}
		log.Printf("Found %d active connections", len(connIDs))
	} else {
		// Parse connection IDs from comma-separated string
		parts := strings.Split(*connIDStr, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			id, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				log.Fatalf("Invalid connection ID '%s': %v", p, err)
			}
			connIDs = append(connIDs, id)
		}
	}

	if len(connIDs) == 0 {
		log.Println("No connections to process")
		return
	}

	log.Printf("Starting sync for %d connection(s)", len(connIDs))
	startTime := time.Now()

	failures := 0
	for _, id := range connIDs {
		result, err := orchestrator.SyncConnection(ctx, id, synchistory.TriggerManual)
		if err != nil {
			failures++
			fmt.Printf("\n=== Connection %d ===\n", id)
			fmt.Printf("  Sync failed: %v\n", err)
			continue
		}
		if !result.Success {
			failures++
		}
		printResult(result)
	}

	elapsed := time.Since(startTime)
	log.Printf("Sync completed in %v (%d/%d succeeded)", elapsed, len(connIDs)-failures, len(connIDs))
	if failures > 0 {
		os.Exit(1)
	}
}

func printResult(result *sync.UnifiedSyncResult) {
	fmt.Printf("\n=== Connection %d ===\n", result.ConnectionID)
	fmt.Printf("  Success:      %t\n", result.Success)
	fmt.Printf("  Accounts:     %d\n", result.TotalAccounts())
	fmt.Printf("  Transactions: %d\n", result.TotalTransactions())
	fmt.Printf("  Holdings:     %d\n", result.TotalHoldings())

	for product, outcome := range result.Products {
		fmt.Printf("  [%s] created=%d updated=%d removed=%d\n", product, outcome.Created, outcome.Updated, outcome.Removed)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:       %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}

func runDisconnect(args []string) {
	fs := flag.NewFlagSet("disconnect", flag.ExitOnError)

	connID := fs.Int64("connection-id", 0, "Connection ID to disconnect")

	fs.Usage = func() {
		fmt.Println("Usage: admin disconnect [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin disconnect --connection-id=1")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *connID == 0 {
		fmt.Println("Error: must specify --connection-id")
		fs.Usage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, orchestrator, _, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := orchestrator.DisconnectConnection(ctx, *connID); err != nil {
		log.Fatalf("Disconnect failed: %v", err)
	}

	fmt.Printf("Connection %d disconnected\n", *connID)
}
