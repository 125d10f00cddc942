package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avlor/fraudgate/internal/adapter/http/dto"
	"github.com/avlor/fraudgate/internal/orchestrator"
	"github.com/avlor/fraudgate/internal/usecase"
)

// TransactionHandler handles transaction submission and lookups.
type TransactionHandler struct {
	engine       *orchestrator.Engine
	txnRepo      usecase.TransactionRepository
	decisionRepo usecase.DecisionRepository
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(engine *orchestrator.Engine, txnRepo usecase.TransactionRepository, decisionRepo usecase.DecisionRepository) *TransactionHandler {
	return &TransactionHandler{
		engine:       engine,
		txnRepo:      txnRepo,
		decisionRepo: decisionRepo,
	}
}

// Submit accepts a transaction into the processing pipeline. The
// response carries the workflow id; processing is asynchronous.
func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn := req.ToDomain()
	state, err := h.engine.Submit(r.Context(), txn)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to submit transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, dto.SubmitResponse{
		Transaction: dto.TransactionFromDomain(txn),
		WorkflowID:  state.ID,
	})
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.txnRepo.GetByID(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// ListDecisions returns all decision rows for a transaction, oldest
// first. Amendments appear after the rows they amend.
func (h *TransactionHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	decisions, err := h.decisionRepo.ListByTransactionID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list decisions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.DecisionsFromDomain(decisions))
}

// GetWorkflow returns the workflow checkpoint for a transaction.
func (h *TransactionHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	state, err := h.engine.GetWorkflowByTransaction(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get workflow", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WorkflowFromDomain(state))
}
