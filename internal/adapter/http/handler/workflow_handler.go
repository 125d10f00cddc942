package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avlor/fraudgate/internal/adapter/http/dto"
	"github.com/avlor/fraudgate/internal/orchestrator"
)

// WorkflowHandler exposes workflow state and the out-of-band signals
// that release waiting workflows.
type WorkflowHandler struct {
	engine *orchestrator.Engine
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(engine *orchestrator.Engine) *WorkflowHandler {
	return &WorkflowHandler{engine: engine}
}

// Get retrieves a workflow checkpoint by ID.
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	state, err := h.engine.GetWorkflow(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get workflow", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WorkflowFromDomain(state))
}

// SignalReview records a reviewer's verdict for an escalated workflow.
func (h *WorkflowHandler) SignalReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ReviewSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "")
		return
	}

	if err := h.engine.SignalHumanReview(r.Context(), id, req.Decision, req.Actor, req.Reason); err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to signal review", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// SignalManagerApproval records a manager's approve/deny for an
// above-ceiling amount.
func (h *WorkflowHandler) SignalManagerApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ManagerSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "")
		return
	}

	if err := h.engine.SignalManagerApproval(r.Context(), id, req.Approved, req.Actor, req.Reason); err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to signal manager approval", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// SignalOverride records an out-of-band override. A completed workflow
// gets an amendment decision row; a waiting one is released.
func (h *WorkflowHandler) SignalOverride(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ReviewSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "")
		return
	}

	if err := h.engine.SignalManualOverride(r.Context(), id, req.Decision, req.Actor, req.Reason); err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to signal override", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
