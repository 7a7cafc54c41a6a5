package handlers

import (
	"net/http"

	"github.com/ecosort/recycle-assistant/internal/api/middleware"
	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.GetUserID(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.userService.GetUser(r.Context(), actorID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "user retrieved", user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.GetUserID(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), actorID, id, domain.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "user successfully updated", user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.GetUserID(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.userService.DisableUser(r.Context(), actorID, id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, "user disabled", nil)
}
