package handlers

import (
	"net/http"

	"github.com/ecosort/recycle-assistant/internal/api/middleware"
	"github.com/ecosort/recycle-assistant/internal/service"
)

type HistoryHandler struct {
	recommendations *service.RecommendationService
}

func NewHistoryHandler(recommendations *service.RecommendationService) *HistoryHandler {
	return &HistoryHandler{recommendations: recommendations}
}

type LogViewRequest struct {
	ItemID uint `json:"item_id" validate:"required,gt=0"`
}

// Create records that the caller viewed an item.
func (h *HistoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req LogViewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	entry, err := h.recommendations.LogView(r.Context(), userID, req.ItemID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, "history recorded", entry)
}

func (h *HistoryHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.GetUserID(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	recs, err := h.recommendations.GetRecommendations(r.Context(), actorID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "recommendations fetched successfully", recs)
}
