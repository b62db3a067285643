package models

import "time"

// Category is the wildlife group a photo submission belongs to
type Category string

const (
	CategoryAmphibian       Category = "amphibian"
	CategoryPlant           Category = "plant"
	CategoryBenthicOrganism Category = "benthicOrganism"
	CategoryInsect          Category = "insect"
	CategoryBird            Category = "bird"
	CategoryMammal          Category = "mammal"
)

var categoryLabels = map[Category]string{
	CategoryAmphibian:       "양서류",
	CategoryPlant:           "식물",
	CategoryBenthicOrganism: "저서생물",
	CategoryInsect:          "곤충",
	CategoryBird:            "조류",
	CategoryMammal:          "포유류",
}

// Categories returns the known categories in display order
func Categories() []Category {
	return []Category{
		CategoryAmphibian,
		CategoryPlant,
		CategoryBenthicOrganism,
		CategoryInsect,
		CategoryBird,
		CategoryMammal,
	}
}

// Label returns the Korean display label, or the raw value for unknown categories
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Known reports whether c is one of the fixed categories
func (c Category) Known() bool {
	_, ok := categoryLabels[c]
	return ok
}

// PhotoImage is one uploaded image of a photo submission
type PhotoImage struct {
	URL       string  `json:"url"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Photo represents a wildlife photo submission
type Photo struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Category   Category     `json:"category"`
	Timestamp  time.Time    `json:"timestamp"`
	IsReviewed bool         `json:"is_reviewed"`
	Annotation *string      `json:"annotation,omitempty"`
	Images     []PhotoImage `json:"images"`
}

// LatLng is a single GPS sample
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Trail represents one recorded walking session
type Trail struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Distance  float64   `json:"distance"` // km
	Path      []LatLng  `json:"path"`
}

// RecordedAt returns the recording time, falling back to the start time
func (t *Trail) RecordedAt() time.Time {
	if !t.Timestamp.IsZero() {
		return t.Timestamp
	}
	return t.StartTime
}

// Duration returns EndTime - StartTime, or zero when either is missing
func (t *Trail) Duration() time.Duration {
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		return 0
	}
	return t.EndTime.Sub(t.StartTime)
}
