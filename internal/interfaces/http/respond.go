package http

import (
	"encoding/json"
	"log"
	"net/http"

	"finlink/internal/domain/syncerr"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case syncerr.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case syncerr.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("%s: %v", fallback, err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}
