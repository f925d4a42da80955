package rest

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"feepay-engine/internal/domain"
	"feepay-engine/internal/transport/auth"
)

func (h *Handler) previewReceipt(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	reader, err := h.receipts.Preview(sess.Handle())
	if err != nil {
		ErrorNotFound(w, "no receipt available")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[HTTP] previewReceipt write error: %v", err)
	}
}

func (h *Handler) downloadReceipt(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	reader, filename, err := h.receipts.Download(sess.Handle())
	if err != nil {
		ErrorNotFound(w, "no receipt available")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[HTTP] downloadReceipt write error: %v", err)
	}
}

func (h *Handler) printReceipt(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	reader, err := h.receipts.Print(sess.Handle())
	if err != nil {
		ErrorNotFound(w, "no receipt available")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Print-Ready", "true")
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[HTTP] printReceipt write error: %v", err)
	}
}

// regenerateReceipt re-prints a historical payment's receipt. The handle
// is scoped to this request: acquired, streamed, then released on every
// exit path.
func (h *Handler) regenerateReceipt(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateRegenerateRequest(r)
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

	handle, err := h.receipts.Regenerate(r.Context(), req.TransactionRef, userID)
	if err != nil {
		log.Printf("[HTTP] regenerateReceipt error: %v", err)
		ErrorFromEngine(w, err)
		return
	}
	defer func() {
		if err := h.receipts.Release(handle); err != nil {
			log.Printf("[HTTP] release receipt handle error: %v", err)
		}
	}()

	reader, filename, err := h.receipts.Download(handle)
	if err != nil {
		ErrorInternal(w, "failed to read receipt artifact")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Transaction-Ref", handle.TransactionRef)
	// a time-limited link to the durable archive copy, when one exists
	if u := h.receipts.ArchiveURL(r.Context(), handle.TransactionRef); u != "" {
		w.Header().Set("X-Archive-Url", u)
	}
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[HTTP] regenerateReceipt write error: %v", err)
	}
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	records, err := h.receipts.ListReceipts(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] listReceipts error: %v", err)
		ErrorInternal(w, "failed to list receipts")
		return
	}

	Success(w, "", records)
}
