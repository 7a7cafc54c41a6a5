package handlers

import (
	"net/http"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/service"
)

type CategoryHandler struct {
	catalog *service.CatalogService
}

func NewCategoryHandler(catalog *service.CatalogService) *CategoryHandler {
	return &CategoryHandler{catalog: catalog}
}

type CreateCategoryRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	ImageLink string `json:"image_link" validate:"max=512"`
}

type UpdateCategoryRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	ImageLink *string `json:"image_link" validate:"omitempty,max=512"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "categories retrieved", categories)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "category retrieved", category)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), service.CreateCategoryInput{
		Name:      req.Name,
		ImageLink: req.ImageLink,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, "category successfully created", category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req UpdateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, domain.CategoryPatch{
		Name:      req.Name,
		ImageLink: req.ImageLink,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "category successfully updated", category)
}
