package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/CrowderSoup/kanban-board/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return false
	}
	return true
}

// requireTitle trims title and rejects it when blank.
func requireTitle(w http.ResponseWriter, title *string) bool {
	*title = strings.TrimSpace(*title)
	if *title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps a store error to a status code.
func writeError(w http.ResponseWriter, err error) {
	var opErr *services.OpError
	switch {
	case errors.Is(err, services.ErrColumnNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrChecklistNotFound),
		errors.Is(err, services.ErrChecklistItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrNotPermutation),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrLabelNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrNoBoard):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrOwnerImmutable):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrNoFileStore):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	case errors.As(err, &opErr):
		http.Error(w, "Storage error", http.StatusBadGateway)
	default:
		log.Printf("Unexpected error: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
	}
}
