package handlers

import (
	"net/http"
	"strconv"

	"ecopark-admin/internal/models"
	"ecopark-admin/internal/services"

	"github.com/go-chi/chi/v5"
)

// PhotoHandler handles photo review HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
	}
}

// ReviewRequest is the body of POST /api/v1/photos/{id}/review
type ReviewRequest struct {
	Annotation *string `json:"annotation" validate:"omitempty,max=2000"`
}

type neighborsResponse struct {
	PrevID *string `json:"prev_id"`
	NextID *string `json:"next_id"`
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// ListPhotos handles GET /api/v1/photos
func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := services.ListPhotosRequest{
		Category: models.Category(q.Get("category")),
		Sort:     q.Get("sort"),
		Cursor:   q.Get("cursor"),
	}
	if raw := q.Get("reviewed"); raw != "" {
		reviewed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, "reviewed must be a boolean", http.StatusBadRequest)
			return
		}
		req.Reviewed = reviewed
	}

	page, err := h.photoService.ListPhotos(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to list photos")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetPhoto handles GET /api/v1/photos/{id}
func (h *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := h.photoService.GetPhoto(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "Failed to get photo")
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// GetNeighbors handles GET /api/v1/photos/{id}/neighbors
func (h *PhotoHandler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	neighbors, err := h.photoService.Neighbors(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "Failed to find neighbors")
		return
	}
	respondJSON(w, http.StatusOK, neighborsResponse{
		PrevID: optionalID(neighbors.PrevID),
		NextID: optionalID(neighbors.NextID),
	})
}

// Review handles POST /api/v1/photos/{id}/review
func (h *PhotoHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.photoService.Review(r.Context(), chi.URLParam(r, "id"), req.Annotation); err != nil {
		respondServiceError(w, err, "Failed to review photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unreview handles POST /api/v1/photos/{id}/unreview
func (h *PhotoHandler) Unreview(w http.ResponseWriter, r *http.Request) {
	if err := h.photoService.Unreview(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "Failed to unreview photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePhoto handles DELETE /api/v1/photos/{id}
func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.photoService.DeletePhoto(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "Failed to delete photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveImage handles DELETE /api/v1/photos/{id}/images/{index}
func (h *PhotoHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, "index must be an integer", http.StatusBadRequest)
		return
	}

	if err := h.photoService.RemoveImage(r.Context(), chi.URLParam(r, "id"), index); err != nil {
		respondServiceError(w, err, "Failed to remove image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
