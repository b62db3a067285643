package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"ecopark-admin/internal/export"
	"ecopark-admin/internal/models"
	"ecopark-admin/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler handles spreadsheet export HTTP requests
type ExportHandler struct {
	exportService *services.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// ExportRequest is the body of POST /api/v1/exports
type ExportRequest struct {
	Enrich bool `json:"enrich"`
}

func enrichParam(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("enrich")
	if raw == "" {
		return true, nil
	}
	return strconv.ParseBool(raw)
}

// DownloadCategory handles GET /api/v1/exports/{category}
func (h *ExportHandler) DownloadCategory(w http.ResponseWriter, r *http.Request) {
	category := models.Category(chi.URLParam(r, "category"))
	if !category.Known() {
		respondError(w, "unknown category", http.StatusNotFound)
		return
	}

	enrich, err := enrichParam(r)
	if err != nil {
		respondError(w, "enrich must be a boolean", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	rows, err := h.exportService.WriteCategory(r.Context(), &buf, category, enrich)
	if err != nil {
		respondServiceError(w, err, "Failed to export category")
		return
	}

	name := export.FileName(category)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s_reviewed_data.xlsx"; filename*=UTF-8''%s`, category, url.PathEscape(name)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Str("category", string(category)).Msg("Failed to stream export")
		return
	}

	log.Info().Str("category", string(category)).Int("rows", rows).Msg("Export downloaded")
}

// ExportAll handles POST /api/v1/exports
func (h *ExportHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	req := ExportRequest{Enrich: true}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.exportService.WriteAll(r.Context(), req.Enrich)
	if err != nil {
		respondServiceError(w, err, "Failed to write export")
		return
	}
	respondJSON(w, http.StatusCreated, result)
}
