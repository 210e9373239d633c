package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/covtrace/tracerd/internal/domain"
	"github.com/covtrace/tracerd/internal/metrics"
)

type submitRequest struct {
	// Pointer distinguishes a missing field from an (invalid) zero value.
	Code *domain.ContactCode `json:"code"`
}

type submitResponse struct {
	Accepted bool `json:"accepted"`
}

// handleSubmit implements POST /submit: record a diagnosed user's contact
// code. A duplicate within the recency horizon responds 200 with
// accepted=false rather than an error.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxBody())
	defer body.Close()
	var req submitRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid contact code")
		return
	}
	if req.Code == nil {
		h.writeError(ctx, w, http.StatusBadRequest, "missing contact code")
		return
	}
	accepted, err := h.Service.Submit(ctx, *req.Code)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	if accepted {
		h.inc(metrics.CounterCodesSubmitted)
	} else {
		h.inc(metrics.CounterCodesDuplicate)
	}
	h.writeJSON(w, http.StatusOK, submitResponse{Accepted: accepted})
}
