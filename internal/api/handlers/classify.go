package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ecosort/recycle-assistant/internal/api/middleware"
	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/service"
)

type ClassifyHandler struct {
	classifications *service.ClassificationService
	maxUploadBytes  int64
}

func NewClassifyHandler(classifications *service.ClassificationService, maxUploadBytes int64) *ClassifyHandler {
	return &ClassifyHandler{classifications: classifications, maxUploadBytes: maxUploadBytes}
}

func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
		respondError(w, r, err)
		return
	}

	image, closeImage, err := formImage(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer closeImage()
	if image == nil {
		badRequest(w, r, "image is required")
		return
	}

	data, err := io.ReadAll(image.Data)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: unreadable image", domain.ErrInvalidInput))
		return
	}

	outcome, err := h.classifications.Classify(r.Context(), userID, data, image.ContentType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "image classified", outcome)
}

func (h *ClassifyHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	limit, err := queryInt(r, "limit", service.DefaultPageLimit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rows, err := h.classifications.History(r.Context(), userID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "", rows)
}
