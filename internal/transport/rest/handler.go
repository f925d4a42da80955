package rest

import (
	"context"
	"io"
	"net/http"
	"time"

	"feepay-engine/internal/domain"
	"feepay-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ReceiptService is the receipt lifecycle surface the handlers need.
type ReceiptService interface {
	Regenerate(ctx context.Context, transactionRef string, userID int64) (*domain.ReceiptHandle, error)
	Preview(h *domain.ReceiptHandle) (io.ReadCloser, error)
	Download(h *domain.ReceiptHandle) (io.ReadCloser, string, error)
	Print(h *domain.ReceiptHandle) (io.ReadCloser, error)
	Release(h *domain.ReceiptHandle) error
	ArchiveURL(ctx context.Context, transactionRef string) string
	ListReceipts(ctx context.Context, userID int64) ([]service.ReceiptRecord, error)
}

// BalanceReader serves the initial balance load; reads are always fresh.
type BalanceReader interface {
	Fetch(ctx context.Context, studentID string) ([]domain.FeeCategoryBalance, error)
}

type Handler struct {
	sessions *service.SessionRegistry
	receipts ReceiptService
	balances BalanceReader
}

func NewHandler(sessions *service.SessionRegistry, receipts ReceiptService, balances BalanceReader) *Handler {
	return &Handler{
		sessions: sessions,
		receipts: receipts,
		balances: balances,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Get("/balances/{student_id}", h.getBalances)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.openSession)
		r.Get("/{session_id}", h.getSession)
		r.Delete("/{session_id}", h.closeSession)
		r.Post("/{session_id}/selection/toggle", h.toggleCategory)
		r.Post("/{session_id}/selection/custom", h.setCustomAmount)
		r.Post("/{session_id}/submit", h.submitPayment)
		r.Get("/{session_id}/receipt", h.previewReceipt)
		r.Get("/{session_id}/receipt/download", h.downloadReceipt)
		r.Get("/{session_id}/receipt/print", h.printReceipt)
	})

	r.Route("/receipts", func(r chi.Router) {
		r.Get("/", h.listReceipts)
		r.Post("/regenerate", h.regenerateReceipt)
	})

	return r
}
