package services

import (
	"sort"
	"strings"

	"github.com/stadtmeldung/report-server/internal/models"
)

// Wildcard value accepted for the status, category and area filters.
const FilterAll = "all"

// SortOrder selects the id ordering of a query result.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// Filter is the predicate set applied by FilterReports. Zero values mean
// "no constraint" except Status/Category/Area, where the wildcard "all" (or
// empty) disables the check.
type Filter struct {
	Status         string
	Category       string
	Area           string
	Text           string
	OnlyMine       bool
	ShowUnapproved bool
	Sort           SortOrder
}

// FilterReports derives the visible, filtered, sorted view of the report
// collection. Pure — the input is never mutated, the result shares the
// report pointers.
//
// Visibility: without moderation view only approved reports are shown;
// moderation view additionally shows unapproved ones when ShowUnapproved is
// set. All remaining predicates are conjunctive.
func FilterReports(reports []*models.Report, viewer *models.User, moderationView bool, f Filter) []*models.Report {
	query := strings.ToLower(strings.TrimSpace(f.Text))

	out := make([]*models.Report, 0, len(reports))
	for _, r := range reports {
		if !r.Approved && !(moderationView && f.ShowUnapproved) {
			continue
		}
		if !wildcard(f.Status) && string(r.Status) != f.Status {
			continue
		}
		if !wildcard(f.Category) && r.Category != f.Category {
			continue
		}
		if !wildcard(f.Area) && !strings.EqualFold(area(r), f.Area) {
			continue
		}
		if query != "" && !matchesText(r, query) {
			continue
		}
		if f.OnlyMine {
			// Anonymous reports have no owner and are never "mine".
			if viewer == nil || !r.OwnedBy(viewer.ID) {
				continue
			}
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.Sort == SortOldest {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func wildcard(v string) bool {
	return v == "" || v == FilterAll
}

func area(r *models.Report) string {
	if r.Location == nil {
		return ""
	}
	return r.Location.Area
}

// matchesText checks the case-insensitive substring match across category,
// description, coordinate string, area and zip.
func matchesText(r *models.Report, query string) bool {
	if strings.Contains(strings.ToLower(r.Category), query) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Description), query) {
		return true
	}
	if r.Location != nil {
		if strings.Contains(r.Location.CoordString(), query) {
			return true
		}
		if strings.Contains(strings.ToLower(r.Location.Area), query) {
			return true
		}
		if strings.Contains(r.Location.Zip, query) {
			return true
		}
	}
	return false
}
