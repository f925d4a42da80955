package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"feepay-engine/internal/domain"
	"feepay-engine/internal/service"
)

type APIResponse struct {
	ErrorCode int         `json:"error_code"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func Response(w http.ResponseWriter, message string, data interface{}, errorCode int, status string, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	response := APIResponse{
		ErrorCode: errorCode,
		Status:    status,
		Message:   message,
		Data:      data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[HTTP] write response error: %v", err)
	}
}

func Success(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusOK)
}

func SuccessAccepted(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusAccepted)
}

func Error(w http.ResponseWriter, message string, errorCode int, httpStatus int) {
	Response(w, message, nil, errorCode, "error", httpStatus)
}

func ErrorBadRequest(w http.ResponseWriter, message string) {
	Error(w, message, 400, http.StatusBadRequest)
}

func ErrorUnauthorized(w http.ResponseWriter, message string) {
	Error(w, message, 401, http.StatusUnauthorized)
}

func ErrorNotFound(w http.ResponseWriter, message string) {
	Error(w, message, 404, http.StatusNotFound)
}

func ErrorInternal(w http.ResponseWriter, message string) {
	Error(w, message, 500, http.StatusInternalServerError)
}

// ErrorFromEngine maps the engine's error kinds onto HTTP statuses.
// A validation failure is the caller's to fix; a rejection carries the
// ledger's message verbatim; an unknown outcome tells the user to verify
// before retrying instead of resubmitting blindly.
func ErrorFromEngine(w http.ResponseWriter, err error) {
	var (
		ve *domain.ValidationError
		re *domain.SubmissionRejectedError
		ue *domain.UnknownOutcomeError
		ge *domain.ReceiptGenerationError
	)

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		ErrorNotFound(w, "payment session not found")
	case errors.As(err, &ve):
		ErrorBadRequest(w, ve.Message)
	case errors.As(err, &re):
		Error(w, re.Error(), 422, http.StatusUnprocessableEntity)
	case errors.As(err, &ue):
		Error(w, ue.Error()+"; verify the payment before retrying", 502, http.StatusBadGateway)
	case errors.As(err, &ge):
		Error(w, ge.Error(), 502, http.StatusBadGateway)
	default:
		ErrorInternal(w, err.Error())
	}
}
