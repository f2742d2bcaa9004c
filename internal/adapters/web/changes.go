package web

import (
	"net/http"

	"stockroom/internal/core"

	"github.com/go-chi/chi/v5"
)

// submitChange handles POST /api/changes.
// The requester identity always comes from the authenticated session, never
// from the request body.
func (h *Handler) submitChange(w http.ResponseWriter, r *http.Request) {
	var req core.ChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RequestedBy = authFromContext(r.Context()).Username

	result, err := h.svc.SubmitChange(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// listChanges handles GET /api/changes?status=pending.
func (h *Handler) listChanges(w http.ResponseWriter, r *http.Request) {
	var status *core.ChangeStatus
	if s := r.URL.Query().Get("status"); s != "" {
		cs := core.ChangeStatus(s)
		switch cs {
		case core.StatusPending, core.StatusApproved, core.StatusRejected:
			status = &cs
		default:
			writeError(w, r, "unknown status filter: "+s, "BAD_REQUEST", http.StatusBadRequest)
			return
		}
	}

	result, err := h.svc.ListChanges(r.Context(), status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getChange handles GET /api/changes/{id}.
func (h *Handler) getChange(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetChange(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// approveChange handles POST /api/changes/{id}/approve.
func (h *Handler) approveChange(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, core.StatusApproved)
}

// rejectChange handles POST /api/changes/{id}/reject.
func (h *Handler) rejectChange(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, core.StatusRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decision core.ChangeStatus) {
	decidedBy := authFromContext(r.Context()).Username
	result, err := h.svc.DecideChange(r.Context(), chi.URLParam(r, "id"), decision, decidedBy)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// rejectBatch handles POST /api/changes/batch/{batchID}/reject.
func (h *Handler) rejectBatch(w http.ResponseWriter, r *http.Request) {
	decidedBy := authFromContext(r.Context()).Username
	result, err := h.svc.RejectBatch(r.Context(), chi.URLParam(r, "batchID"), decidedBy)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// runLowStockCheck handles POST /api/alerts/low-stock/run — the same
// idempotent operation the weekly scheduler triggers via cmd/alert-check.
func (h *Handler) runLowStockCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunLowStockCheck(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}
