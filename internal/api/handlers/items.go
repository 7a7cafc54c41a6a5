package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/ecosort/recycle-assistant/internal/validation"
)

type ItemHandler struct {
	catalog        *service.CatalogService
	maxUploadBytes int64
}

func NewItemHandler(catalog *service.CatalogService, maxUploadBytes int64) *ItemHandler {
	return &ItemHandler{catalog: catalog, maxUploadBytes: maxUploadBytes}
}

// CreateItemForm mirrors the multipart fields of an item upload.
type CreateItemForm struct {
	Name         string `form:"name" validate:"required,max=100"`
	Description  string `form:"description" validate:"max=2000"`
	Recycle      string `form:"recycle" validate:"max=2000"`
	CategoryName string `form:"category_name" validate:"required"`
}

// PageMeta describes where a listing page sits in the whole result set.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultPageLimit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	category, err := queryInt(r, "category", 0)
	if err != nil || category < 0 {
		respondError(w, r, fmt.Errorf("%w: category must be a category id", domain.ErrInvalidInput))
		return
	}

	result, err := h.catalog.ListItems(r.Context(), domain.ItemFilter{
		Name:       r.URL.Query().Get("name"),
		CategoryID: uint(category),
	}, page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, Response{
		Status: "success",
		Data:   result.Items,
		Meta: PageMeta{
			Page:       result.Page,
			Limit:      result.Limit,
			TotalItems: result.TotalItems,
			TotalPages: result.TotalPages,
		},
	})
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "item successfully retrieved", item)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
		respondError(w, r, err)
		return
	}

	form := CreateItemForm{
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		Recycle:      r.FormValue("recycle"),
		CategoryName: r.FormValue("category_name"),
	}
	if err := validation.Struct(&form); err != nil {
		respondError(w, r, err)
		return
	}
	flags, err := parseItemFlags(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	image, closeImage, err := formImage(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer closeImage()

	item, err := h.catalog.CreateItem(r.Context(), service.CreateItemInput{
		Name:         form.Name,
		Description:  form.Description,
		Recycle:      form.Recycle,
		IsReusable:   flags.isTrue(0),
		IsRecyclable: flags.isTrue(1),
		IsHazardous:  flags.isTrue(2),
		CategoryName: form.CategoryName,
		Image:        image,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, "item successfully created", item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
		respondError(w, r, err)
		return
	}

	flags, err := parseItemFlags(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	image, closeImage, err := formImage(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer closeImage()

	item, err := h.catalog.UpdateItem(r.Context(), id, domain.ItemPatch{
		Name:         formString(r, "name"),
		Description:  formString(r, "description"),
		Recycle:      formString(r, "recycle"),
		IsReusable:   flags[0],
		IsRecyclable: flags[1],
		IsHazardous:  flags[2],
		CategoryName: formString(r, "category_name"),
	}, image)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "item successfully updated", item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.catalog.DeleteItem(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, fmt.Sprintf("item %d deleted", id), nil)
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidInput, tooLarge.Limit)
		}
		return fmt.Errorf("%w: expected a multipart/form-data body", domain.ErrInvalidInput)
	}
	return nil
}

// itemFlags holds is_reusable, is_recyclable and is_hazardous in that order.
type itemFlags [3]*bool

func (f itemFlags) isTrue(i int) bool {
	return f[i] != nil && *f[i]
}

func parseItemFlags(r *http.Request) (itemFlags, error) {
	var flags itemFlags
	for i, name := range []string{"is_reusable", "is_recyclable", "is_hazardous"} {
		v, err := formBool(r, name)
		if err != nil {
			return flags, err
		}
		flags[i] = v
	}
	return flags, nil
}

// formImage returns the optional "image" part. The returned func closes it.
func formImage(r *http.Request) (*service.ImageUpload, func(), error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: unreadable image part", domain.ErrInvalidInput)
	}
	return &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Data:        file,
	}, func() { file.Close() }, nil
}

func partContentType(header *multipart.FileHeader) string {
	return strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
}
