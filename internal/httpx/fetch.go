package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/covtrace/tracerd/internal/domain"
	"github.com/covtrace/tracerd/internal/metrics"
)

type fetchResponse struct {
	Codes []domain.ContactCode `json:"codes"`
}

// handleFetch implements GET /fetch/{unix_ts}: return every code submitted
// since the given UTC timestamp, for clients that sync and match locally.
func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	const prefix = "/fetch/"
	raw := r.URL.Path[len(prefix):]
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ts < 0 {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid timestamp")
		return
	}
	codes, svcErr := h.Service.Fetch(ctx, time.Unix(ts, 0).UTC())
	if svcErr != nil {
		h.mapServiceError(ctx, w, svcErr)
		return
	}
	h.inc(metrics.CounterFetchRequests)
	if codes == nil {
		codes = []domain.ContactCode{}
	}
	h.writeJSON(w, http.StatusOK, fetchResponse{Codes: codes})
}
