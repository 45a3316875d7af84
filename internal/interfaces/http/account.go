package http

import (
	"log"
	"net/http"
	"strconv"

	"finlink/internal/domain/account"
	"finlink/internal/domain/transaction"
	"finlink/internal/shared/middleware"
)

// AccountHandler exposes synced accounts and their cash transactions.
type AccountHandler struct {
	accountRepo     account.Repository
	transactionRepo transaction.Repository
}

func NewAccountHandler(accountRepo account.Repository, transactionRepo transaction.Repository) *AccountHandler {
	return &AccountHandler{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// HandleListAccounts returns all synced accounts for the authenticated user.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accounts, err := h.accountRepo.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing accounts for user %d: %v", userID, err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	if accounts == nil {
		accounts = []*account.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleAccountTransactions returns recent transactions for one account.
func (h *AccountHandler) HandleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accountID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	acc, err := h.accountRepo.GetByID(r.Context(), accountID)
	if err != nil {
		log.Printf("Error loading account %d: %v", accountID, err)
		http.Error(w, "Failed to load account", http.StatusInternalServerError)
		return
	}
	if acc == nil || acc.UserID != userID {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	transactions, err := h.transactionRepo.ListByAccountID(r.Context(), accountID, limit)
	if err != nil {
		log.Printf("Error listing transactions for account %d: %v", accountID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	if transactions == nil {
		transactions = []*transaction.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}
