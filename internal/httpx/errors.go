package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/covtrace/tracerd/internal/app"
	"github.com/covtrace/tracerd/internal/domain"
)

// writeJSON writes v as a JSON body with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, struct {
		Error string `json:"error"`
	}{Error: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps domain/store/service errors to HTTP responses.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		slog.Warn("service error", "cid", cid, "code", "invalid_code")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid contact code")
	case errors.Is(err, domain.ErrInvalidBroadcastID):
		slog.Warn("service error", "cid", cid, "code", "invalid_broadcast_id")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid broadcast id")
	case errors.Is(err, app.ErrRangeTooLarge):
		slog.Warn("service error", "cid", cid, "code", "range_too_large")
		h.writeError(ctx, w, http.StatusBadRequest, "range too large")
	case errors.Is(err, app.ErrCorruptData):
		// Operator attention required; the store does not self-repair.
		slog.Error("service error", "cid", cid, "code", "corrupt_data")
		h.writeError(ctx, w, http.StatusInternalServerError, "storage error")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		slog.Debug("service error", "cid", cid, "code", "canceled")
	default:
		slog.Error("unhandled service error", "cid", cid, "code", "unhandled", "err", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}
