package handlers

import (
	"net/http"
	"time"

	"ecopark-admin/internal/models"
	"ecopark-admin/internal/services"
	"ecopark-admin/internal/trailstats"
)

// TrailHandler handles walking-trail HTTP requests
type TrailHandler struct {
	trailService *services.TrailService
}

// NewTrailHandler creates a new trail handler
func NewTrailHandler(trailService *services.TrailService) *TrailHandler {
	return &TrailHandler{
		trailService: trailService,
	}
}

// DeleteTrailsRequest is the body of DELETE /api/v1/trails
type DeleteTrailsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

// DeletePersonRequest is the body of DELETE /api/v1/trails/people
type DeletePersonRequest struct {
	Name string `json:"name" validate:"required"`
}

type metricsResponse struct {
	DurationMinutes int      `json:"duration_minutes"`
	SpeedKmh        *float64 `json:"speed_kmh"`
	Steps           int      `json:"steps"`
	Calories        int      `json:"calories"`
}

type trailResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Timestamp *time.Time      `json:"timestamp"`
	StartTime *time.Time      `json:"start_time"`
	EndTime   *time.Time      `json:"end_time"`
	Distance  float64         `json:"distance"`
	Path      []models.LatLng `json:"path"`
	Metrics   metricsResponse `json:"metrics"`
}

type personResponse struct {
	Name          string          `json:"name"`
	TrailCount    int             `json:"trail_count"`
	TotalDistance float64         `json:"total_distance"`
	TotalMinutes  int             `json:"total_minutes"`
	Trails        []trailResponse `json:"trails"`
}

type statsResponse struct {
	TotalWalks             int                         `json:"total_walks"`
	TotalDistance          float64                     `json:"total_distance"`
	AverageDistance        *float64                    `json:"average_distance"`
	AverageDurationMinutes *float64                    `json:"average_duration_minutes"`
	ByDay                  []trailstats.DayBucket      `json:"by_day"`
	ByMonth                []trailstats.MonthBucket    `json:"by_month"`
	ByHour                 []trailstats.HourBucket     `json:"by_hour"`
	ByWeekday              []trailstats.WeekdayBucket  `json:"by_weekday"`
	ByDuration             []trailstats.DurationBucket `json:"by_duration"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newTrailResponse(t trailstats.TrailWithMetrics) trailResponse {
	path := t.Path
	if path == nil {
		path = []models.LatLng{}
	}
	return trailResponse{
		ID:        t.ID,
		Name:      t.Name,
		Timestamp: optionalTime(t.Timestamp),
		StartTime: optionalTime(t.StartTime),
		EndTime:   optionalTime(t.EndTime),
		Distance:  t.Distance,
		Path:      path,
		Metrics: metricsResponse{
			DurationMinutes: t.Metrics.DurationMinutes,
			SpeedKmh:        finite(t.Metrics.SpeedKmh),
			Steps:           t.Metrics.Steps,
			Calories:        t.Metrics.Calories,
		},
	}
}

func newTrailResponses(trails []trailstats.TrailWithMetrics) []trailResponse {
	out := make([]trailResponse, len(trails))
	for i, t := range trails {
		out[i] = newTrailResponse(t)
	}
	return out
}

// ListTrails handles GET /api/v1/trails?name=
func (h *TrailHandler) ListTrails(w http.ResponseWriter, r *http.Request) {
	trails, err := h.trailService.Trails(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		respondServiceError(w, err, "Failed to list trails")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trails": newTrailResponses(trails),
	})
}

// ListPeople handles GET /api/v1/trails/people
func (h *TrailHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.trailService.People(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to list people")
		return
	}

	out := make([]personResponse, len(people))
	for i, p := range people {
		out[i] = personResponse{
			Name:          p.Name,
			TrailCount:    p.TrailCount,
			TotalDistance: p.TotalDistance,
			TotalMinutes:  p.TotalMinutes,
			Trails:        newTrailResponses(p.Trails),
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"people": out,
	})
}

// GetStats handles GET /api/v1/trails/stats?name=
func (h *TrailHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.trailService.Stats(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		respondServiceError(w, err, "Failed to compute trail statistics")
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{
		TotalWalks:             s.TotalWalks,
		TotalDistance:          s.TotalDistance,
		AverageDistance:        finite(s.AverageDistance),
		AverageDurationMinutes: finite(s.AverageDurationMinutes),
		ByDay:                  s.ByDay,
		ByMonth:                s.ByMonth,
		ByHour:                 s.ByHour,
		ByWeekday:              s.ByWeekday,
		ByDuration:             s.ByDuration,
	})
}

// GetHeatmap handles GET /api/v1/trails/heatmap?name=
func (h *TrailHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	heatmap, err := h.trailService.Heatmap(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		respondServiceError(w, err, "Failed to build heatmap")
		return
	}
	respondJSON(w, http.StatusOK, heatmap)
}

// DeleteTrails handles DELETE /api/v1/trails
func (h *TrailHandler) DeleteTrails(w http.ResponseWriter, r *http.Request) {
	var req DeleteTrailsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	deleted := h.trailService.DeleteTrails(r.Context(), req.IDs)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requested": len(req.IDs),
		"deleted":   deleted,
	})
}

// DeletePerson handles DELETE /api/v1/trails/people
func (h *TrailHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	var req DeletePersonRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	deleted, err := h.trailService.DeletePersonTrails(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, err, "Failed to delete trails")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
	})
}
