package rest

import (
	"errors"
	"log"
	"net/http"

	"feepay-engine/internal/domain"
	"feepay-engine/internal/service"
	"feepay-engine/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateOpenSessionRequest(r)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ErrorBadRequest(w, ve.Message)
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	sess, err := h.sessions.Open(r.Context(), userID, req.StudentIdentifier)
	if err != nil {
		log.Printf("[HTTP] openSession error: %v", err)
		ErrorFromEngine(w, err)
		return
	}

	Success(w, "payment session opened", sess.Snapshot())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) *service.PaymentSession {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return nil
	}

	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		ErrorBadRequest(w, "session_id is required")
		return nil
	}

	sess, err := h.sessions.Get(sessionID, userID)
	if err != nil {
		ErrorNotFound(w, "payment session not found")
		return nil
	}

	return sess
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	Success(w, "", sess.Snapshot())
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "session_id")
	if err := h.sessions.Close(sessionID, userID); err != nil {
		ErrorNotFound(w, "payment session not found")
		return
	}

	Success(w, "payment session closed", nil)
}

func (h *Handler) toggleCategory(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	req, err := ValidateToggleRequest(r)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ErrorBadRequest(w, ve.Message)
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	key := domain.CategoryKey{Category: req.Category, TermNumber: req.TermNumber}
	if err := sess.ToggleCategory(key, req.Included); err != nil {
		ErrorFromEngine(w, err)
		return
	}

	Success(w, "", sess.Snapshot())
}

func (h *Handler) setCustomAmount(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	req, err := ValidateCustomAmountRequest(r)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ErrorBadRequest(w, ve.Message)
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	if req.Clear() {
		err = sess.ClearCustomAmount()
	} else {
		err = sess.SetCustomAmount(req.Parsed())
	}
	if err != nil {
		ErrorFromEngine(w, err)
		return
	}

	Success(w, "", sess.Snapshot())
}

func (h *Handler) submitPayment(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	req, err := ValidateSubmitRequest(r)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ErrorBadRequest(w, ve.Message)
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	err = sess.Submit(req.PaymentMethod, service.BuildOptions{
		CustomPurpose: req.CustomPurpose,
		Remarks:       req.Remarks,
	})
	if err != nil {
		ErrorFromEngine(w, err)
		return
	}

	// the attempt runs in the background; the UI observes it via the
	// session snapshot and websocket events
	SuccessAccepted(w, "payment submitted", sess.Snapshot())
}
