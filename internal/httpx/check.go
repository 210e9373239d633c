package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/covtrace/tracerd/internal/domain"
	"github.com/covtrace/tracerd/internal/metrics"
)

type checkRequest struct {
	Contacts []domain.BroadcastID `json:"contacts"`
}

type checkResponse struct {
	Match bool `json:"match"`
}

// handleCheck implements POST /check: report whether any of the observed
// broadcast identifiers was derived from an active submitted code.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxBody())
	defer body.Close()
	var req checkRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid broadcast id list")
		return
	}
	if h.MaxContacts > 0 && len(req.Contacts) > h.MaxContacts {
		h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "too many contacts")
		return
	}
	observed := make(map[domain.BroadcastID]struct{}, len(req.Contacts))
	for _, id := range req.Contacts {
		observed[id] = struct{}{}
	}
	match, err := h.Service.Check(ctx, observed)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.inc(metrics.CounterCheckRequests)
	if match {
		h.inc(metrics.CounterCheckMatches)
	}
	h.observe(metrics.SummaryCheckContactsPerRequest, int64(len(req.Contacts)))
	h.writeJSON(w, http.StatusOK, checkResponse{Match: match})
}
