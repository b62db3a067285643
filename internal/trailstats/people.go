package trailstats

import "ecopark-admin/internal/models"

// TrailWithMetrics pairs a trail with its derived estimates
type TrailWithMetrics struct {
	*models.Trail
	Metrics TrailMetrics `json:"metrics"`
}

// PersonSummary is one entry of the per-person trail list
type PersonSummary struct {
	Name          string             `json:"name"`
	TrailCount    int                `json:"trail_count"`
	TotalDistance float64            `json:"total_distance"`
	TotalMinutes  int                `json:"total_minutes"`
	Trails        []TrailWithMetrics `json:"trails"`
}

// PersonSummaries groups trails by person and attaches per-trail metrics
func PersonSummaries(trails []*models.Trail) []PersonSummary {
	groups := GroupByPerson(trails)
	out := make([]PersonSummary, 0, len(groups))

	for _, g := range groups {
		ps := PersonSummary{
			Name:       g.Name,
			TrailCount: len(g.Trails),
			Trails:     make([]TrailWithMetrics, 0, len(g.Trails)),
		}
		for _, t := range g.Trails {
			m := ComputeMetrics(t)
			ps.TotalDistance += t.Distance
			ps.TotalMinutes += m.DurationMinutes
			ps.Trails = append(ps.Trails, TrailWithMetrics{Trail: t, Metrics: m})
		}
		out = append(out, ps)
	}
	return out
}

// Bounds is the smallest box containing a set of points
type Bounds struct {
	SouthWest models.LatLng `json:"south_west"`
	NorthEast models.LatLng `json:"north_east"`
}

// HeatmapPoints flattens every path sample of every trail
func HeatmapPoints(trails []*models.Trail) []models.LatLng {
	n := 0
	for _, t := range trails {
		n += len(t.Path)
	}
	points := make([]models.LatLng, 0, n)
	for _, t := range trails {
		points = append(points, t.Path...)
	}
	return points
}

// ComputeBounds returns the bounding box of points, or false when empty
func ComputeBounds(points []models.LatLng) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		b.SouthWest.Lat = min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = min(b.SouthWest.Lng, p.Lng)
		b.NorthEast.Lat = max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = max(b.NorthEast.Lng, p.Lng)
	}
	return b, true
}
