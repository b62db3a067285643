// Package trailstats turns trail records into the aggregates the console
// charts: per-person groups, per-trail pace/step/calorie estimates and
// day/hour/weekday/duration/month buckets.
//
// Everything is recomputed from the input slice on every call. Averages over
// an empty slice and speeds over zero-length walks follow IEEE float
// semantics (NaN, +Inf); callers decide how to present them.
package trailstats

import (
	"math"
	"sort"

	"ecopark-admin/internal/models"
)

const (
	// UnnamedPerson groups trails recorded without a name
	UnnamedPerson = "이름 없음"

	// StrideMeters is the assumed length of one step
	StrideMeters = 0.7
	// WalkingMET is the metabolic equivalent of a leisurely walk
	WalkingMET = 3.5
	// BodyWeightKg is the assumed walker weight for calorie estimates
	BodyWeightKg = 65.0
)

// TrailMetrics holds the estimates derived from one trail
type TrailMetrics struct {
	DurationMinutes int     `json:"duration_minutes"`
	SpeedKmh        float64 `json:"speed_kmh"`
	Steps           int     `json:"steps"`
	Calories        int     `json:"calories"`
}

// PersonGroup holds one person's trails, newest first
type PersonGroup struct {
	Name   string          `json:"name"`
	Trails []*models.Trail `json:"trails"`
}

// PersonName returns the grouping key for a trail
func PersonName(t *models.Trail) string {
	if t.Name == "" {
		return UnnamedPerson
	}
	return t.Name
}

// GroupByPerson partitions trails by person name. Groups are ordered by name
// and each group's trails by recording time, newest first.
func GroupByPerson(trails []*models.Trail) []PersonGroup {
	index := make(map[string]int)
	var groups []PersonGroup

	for _, t := range trails {
		name := PersonName(t)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, PersonGroup{Name: name})
		}
		groups[i].Trails = append(groups[i].Trails, t)
	}

	for _, g := range groups {
		sort.SliceStable(g.Trails, func(a, b int) bool {
			return g.Trails[a].RecordedAt().After(g.Trails[b].RecordedAt())
		})
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Name < groups[b].Name })

	return groups
}

// FilterByPerson returns the trails whose grouping key equals name
func FilterByPerson(trails []*models.Trail, name string) []*models.Trail {
	var out []*models.Trail
	for _, t := range trails {
		if PersonName(t) == name {
			out = append(out, t)
		}
	}
	return out
}

// ComputeMetrics derives speed, steps and calories from distance and duration
func ComputeMetrics(t *models.Trail) TrailMetrics {
	minutes := int(math.Floor(t.Duration().Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	hours := float64(minutes) / 60

	return TrailMetrics{
		DurationMinutes: minutes,
		SpeedKmh:        t.Distance / hours,
		Steps:           EstimateSteps(t.Distance),
		Calories:        EstimateCalories(hours),
	}
}

// EstimateSteps converts a distance in km to steps of StrideMeters
func EstimateSteps(distanceKm float64) int {
	return int(math.Round(distanceKm * 1000 / StrideMeters))
}

// EstimateCalories returns kcal for walking the given number of hours
func EstimateCalories(hours float64) int {
	return int(math.Round(WalkingMET * BodyWeightKg * hours))
}
