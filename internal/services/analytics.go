package services

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/stadtmeldung/report-server/internal/models"
)

// Summary is the full analytics payload for the moderation dashboard.
// Aggregates see the whole collection, unapproved reports included.
type Summary struct {
	Totals     models.Totals          `json:"totals"`
	KPI        models.KPI             `json:"kpi"`
	Trend      []models.TrendPoint    `json:"trend"`
	ByCategory []models.CategoryCount `json:"byCategory"`
	ByStatus   []models.StatusCount   `json:"byStatus"`
}

// AnalyticsService derives the dashboard aggregates from the report store.
// Results are memoized against the store's version counter, so repeated
// reads between mutations are free.
type AnalyticsService struct {
	reports *ReportService
	now     func() time.Time

	mu      sync.Mutex
	cached  *Summary
	version uint64
}

// NewAnalyticsService returns an analytics engine over the given store.
func NewAnalyticsService(reports *ReportService) *AnalyticsService {
	return &AnalyticsService{reports: reports, now: time.Now}
}

// Summary recomputes (or returns the memoized) aggregate view.
func (s *AnalyticsService) Summary() *Summary {
	version := s.reports.Version()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.version == version {
		return s.cached
	}
	s.cached = Compute(s.reports.All(), s.now())
	s.version = version
	return s.cached
}

// Compute derives the aggregates from a report snapshot at the given time.
// Pure; exported for direct use in tests.
func Compute(reports []*models.Report, now time.Time) *Summary {
	const day = 24 * time.Hour
	nowMs := now.UnixMilli()

	totals := models.Totals{Total: len(reports)}
	var toAccepted, toResolved []float64
	perDay := map[string]int{}
	perArea := map[string]int{}
	areaOrder := []string{}
	perCategory := map[string]int{}
	categoryOrder := []string{}
	perStatus := map[models.Status]int{}
	statusOrder := []models.Status{}
	kpi := models.KPI{}

	for _, r := range reports {
		if r.Approved {
			totals.Approved++
		} else {
			totals.Unapproved++
		}
		switch r.Status {
		case models.StatusReported:
			totals.Reported++
		case models.StatusAccepted:
			totals.Accepted++
		case models.StatusResolved:
			totals.Resolved++
		}
		totals.Votes += r.Votes.Count

		created := r.StatusAt(models.StatusReported)
		accepted := r.StatusAt(models.StatusAccepted)
		resolved := r.StatusAt(models.StatusResolved)
		if created != 0 && accepted != 0 {
			toAccepted = append(toAccepted, float64(accepted-created)/60000)
		}
		if created != 0 && resolved != 0 {
			toResolved = append(toResolved, float64(resolved-created)/60000)
		}
		if created != 0 {
			if nowMs-created <= 7*day.Milliseconds() {
				kpi.CreatedLast7++
			}
			if nowMs-created <= 30*day.Milliseconds() {
				kpi.CreatedLast30++
			}
			date := models.MillisToTime(created).UTC().Format("2006-01-02")
			perDay[date]++
		}

		a := area(r)
		if a == "" {
			a = "unknown"
		}
		if _, seen := perArea[a]; !seen {
			areaOrder = append(areaOrder, a)
		}
		perArea[a]++

		if _, seen := perCategory[r.Category]; !seen {
			categoryOrder = append(categoryOrder, r.Category)
		}
		perCategory[r.Category]++

		if _, seen := perStatus[r.Status]; !seen {
			statusOrder = append(statusOrder, r.Status)
		}
		perStatus[r.Status]++
	}

	kpi.AvgToAcceptedMin = meanRounded(toAccepted)
	kpi.AvgToResolvedMin = meanRounded(toResolved)
	kpi.TopArea = topArea(perArea, areaOrder)

	trend := make([]models.TrendPoint, 0, len(perDay))
	for date, count := range perDay {
		trend = append(trend, models.TrendPoint{Date: date, Count: count})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Date < trend[j].Date })

	byCategory := make([]models.CategoryCount, 0, len(categoryOrder))
	for _, c := range categoryOrder {
		byCategory = append(byCategory, models.CategoryCount{Category: c, Count: perCategory[c]})
	}
	byStatus := make([]models.StatusCount, 0, len(statusOrder))
	for _, st := range statusOrder {
		byStatus = append(byStatus, models.StatusCount{Status: st, Count: perStatus[st]})
	}

	return &Summary{
		Totals:     totals,
		KPI:        kpi,
		Trend:      trend,
		ByCategory: byCategory,
		ByStatus:   byStatus,
	}
}

// meanRounded is the arithmetic mean rounded to one decimal place; an empty
// set yields 0.
func meanRounded(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

// topArea picks the area with the highest count; ties break toward the
// first-encountered area. An empty collection yields the "unknown"
// sentinel, same as reports without an area.
func topArea(counts map[string]int, order []string) string {
	best, bestCount := "unknown", -1
	for _, a := range order {
		if counts[a] > bestCount {
			best, bestCount = a, counts[a]
		}
	}
	return best
}
