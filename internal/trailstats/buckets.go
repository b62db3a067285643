package trailstats

import (
	"sort"
	"time"

	"ecopark-admin/internal/models"
)

// DayBucket aggregates walks recorded on one calendar day
type DayBucket struct {
	Date          string  `json:"date"`
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance"`
}

// MonthBucket aggregates distance per calendar month
type MonthBucket struct {
	Month         string  `json:"month"`
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance"`
}

// HourBucket counts walks started in one hour of the day
type HourBucket struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// WeekdayBucket counts walks recorded on one weekday
type WeekdayBucket struct {
	Weekday       string  `json:"weekday"`
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance"`
}

// DurationBucket counts walks whose duration falls in [Min, Max) minutes.
// Max is -1 for the open-ended last range.
type DurationBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min_minutes"`
	Max   int    `json:"max_minutes"`
	Count int    `json:"count"`
}

// Summary is the full statistics view over a set of trails
type Summary struct {
	TotalWalks             int              `json:"total_walks"`
	TotalDistance          float64          `json:"total_distance"`
	AverageDistance        float64          `json:"average_distance"`
	AverageDurationMinutes float64          `json:"average_duration_minutes"`
	ByDay                  []DayBucket      `json:"by_day"`
	ByMonth                []MonthBucket    `json:"by_month"`
	ByHour                 []HourBucket     `json:"by_hour"`
	ByWeekday              []WeekdayBucket  `json:"by_weekday"`
	ByDuration             []DurationBucket `json:"by_duration"`
}

var durationRanges = []DurationBucket{
	{Label: "0-15", Min: 0, Max: 15},
	{Label: "15-30", Min: 15, Max: 30},
	{Label: "30-60", Min: 30, Max: 60},
	{Label: "60+", Min: 60, Max: -1},
}

// Summarize computes totals, averages and every bucket series. Dates and
// hours are taken in loc.
func Summarize(trails []*models.Trail, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}

	s := Summary{
		TotalWalks: len(trails),
		ByHour:     make([]HourBucket, 24),
		ByWeekday:  make([]WeekdayBucket, 7),
		ByDuration: make([]DurationBucket, len(durationRanges)),
	}
	for h := range s.ByHour {
		s.ByHour[h].Hour = h
	}
	for d := range s.ByWeekday {
		s.ByWeekday[d].Weekday = time.Weekday(d).String()
	}
	copy(s.ByDuration, durationRanges)

	days := make(map[string]*DayBucket)
	months := make(map[string]*MonthBucket)
	var totalMinutes float64

	for _, t := range trails {
		s.TotalDistance += t.Distance

		minutes := t.Duration().Minutes()
		totalMinutes += minutes
		s.ByDuration[durationIndex(minutes)].Count++

		if rec := t.RecordedAt(); !rec.IsZero() {
			local := rec.In(loc)

			day := local.Format("2006-01-02")
			if days[day] == nil {
				days[day] = &DayBucket{Date: day}
			}
			days[day].Count++
			days[day].TotalDistance += t.Distance

			month := local.Format("2006-01")
			if months[month] == nil {
				months[month] = &MonthBucket{Month: month}
			}
			months[month].Count++
			months[month].TotalDistance += t.Distance

			wd := &s.ByWeekday[local.Weekday()]
			wd.Count++
			wd.TotalDistance += t.Distance
		}

		if !t.StartTime.IsZero() {
			s.ByHour[t.StartTime.In(loc).Hour()].Count++
		}
	}

	n := float64(len(trails))
	s.AverageDistance = s.TotalDistance / n
	s.AverageDurationMinutes = totalMinutes / n

	s.ByDay = make([]DayBucket, 0, len(days))
	for _, b := range days {
		s.ByDay = append(s.ByDay, *b)
	}
	sort.Slice(s.ByDay, func(i, j int) bool { return s.ByDay[i].Date < s.ByDay[j].Date })

	s.ByMonth = make([]MonthBucket, 0, len(months))
	for _, b := range months {
		s.ByMonth = append(s.ByMonth, *b)
	}
	sort.Slice(s.ByMonth, func(i, j int) bool { return s.ByMonth[i].Month < s.ByMonth[j].Month })

	return s
}

func durationIndex(minutes float64) int {
	for i, r := range durationRanges {
		if r.Max < 0 || minutes < float64(r.Max) {
			return i
		}
	}
	return len(durationRanges) - 1
}
