package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avlor/fraudgate/internal/adapter/http/dto"
	"github.com/avlor/fraudgate/internal/usecase"
)

// ReviewHandler exposes the human review queue.
type ReviewHandler struct {
	reviewRepo usecase.ReviewRepository
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewRepo usecase.ReviewRepository) *ReviewHandler {
	return &ReviewHandler{reviewRepo: reviewRepo}
}

// ListPending returns open reviews, most urgent first.
func (h *ReviewHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)

	reviews, err := h.reviewRepo.ListPending(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reviews", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReviewsFromDomain(reviews))
}

// Get retrieves a review by ID.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing review ID", "")
		return
	}

	review, err := h.reviewRepo.GetByID(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get review", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReviewFromDomain(review))
}
