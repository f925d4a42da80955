package rest

import (
	"log"
	"net/http"

	"feepay-engine/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

// getBalances serves the initial balance load for a student. Like every
// balance read, it is a fresh round trip.
func (h *Handler) getBalances(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.GetUserID(r.Context()); err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	studentID := chi.URLParam(r, "student_id")
	if studentID == "" {
		ErrorBadRequest(w, "student_id is required")
		return
	}

	balances, err := h.balances.Fetch(r.Context(), studentID)
	if err != nil {
		log.Printf("[HTTP] getBalances error: %v", err)
		ErrorInternal(w, "failed to load balances")
		return
	}

	Success(w, "", balances)
}
