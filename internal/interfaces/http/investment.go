package http

import (
	"log"
	"net/http"

	"finlink/internal/domain/investment"
	"finlink/internal/shared/middleware"
)

// InvestmentHandler exposes synced holdings.
type InvestmentHandler struct {
	holdingRepo investment.HoldingRepository
}

func NewInvestmentHandler(holdingRepo investment.HoldingRepository) *InvestmentHandler {
	return &InvestmentHandler{holdingRepo: holdingRepo}
}

// HandleListHoldings returns all holdings for the authenticated user.
func (h *InvestmentHandler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	holdings, err := h.holdingRepo.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing holdings for user %d: %v", userID, err)
		http.Error(w, "Failed to list holdings", http.StatusInternalServerError)
		return
	}

	if holdings == nil {
		holdings = []*investment.Holding{}
	}
	writeJSON(w, http.StatusOK, holdings)
}
