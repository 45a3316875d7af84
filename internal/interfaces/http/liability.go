package http

import (
	"log"
	"net/http"

	"finlink/internal/domain/liability"
	"finlink/internal/shared/middleware"
)

// LiabilityHandler exposes synced liability accounts and linked properties.
type LiabilityHandler struct {
	liabilityRepo liability.Repository
	propertyRepo  liability.PropertyRepository
}

func NewLiabilityHandler(liabilityRepo liability.Repository, propertyRepo liability.PropertyRepository) *LiabilityHandler {
	return &LiabilityHandler{
		liabilityRepo: liabilityRepo,
		propertyRepo:  propertyRepo,
	}
}

// HandleListLiabilities returns all liability accounts for the authenticated user.
func (h *LiabilityHandler) HandleListLiabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	liabilities, err := h.liabilityRepo.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing liabilities for user %d: %v", userID, err)
		http.Error(w, "Failed to list liabilities", http.StatusInternalServerError)
		return
	}

	if liabilities == nil {
		liabilities = []*liability.Account{}
	}
	writeJSON(w, http.StatusOK, liabilities)
}

// HandleListProperties returns properties linked to the user's mortgages.
func (h *LiabilityHandler) HandleListProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	properties, err := h.propertyRepo.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing properties for user %d: %v", userID, err)
		http.Error(w, "Failed to list properties", http.StatusInternalServerError)
		return
	}

	if properties == nil {
		properties = []*liability.Property{}
	}
	writeJSON(w, http.StatusOK, properties)
}
