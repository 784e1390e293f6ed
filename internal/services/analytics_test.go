package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/storage"
)

func historyReport(id int64, area string, created time.Time, acceptedAfter, resolvedAfter time.Duration) *models.Report {
	createdMs := created.UnixMilli()
	r := &models.Report{
		ID:        id,
		Category:  "müll",
		Status:    models.StatusReported,
		Approved:  true,
		CreatedAt: createdMs,
		StatusHistory: []models.StatusEntry{
			{Status: models.StatusReported, At: createdMs},
		},
	}
	if area != "" {
		r.Location = &models.Location{Area: area}
	}
	if acceptedAfter > 0 {
		r.Status = models.StatusAccepted
		r.StatusHistory = append(r.StatusHistory, models.StatusEntry{
			Status: models.StatusAccepted, At: created.Add(acceptedAfter).UnixMilli(),
		})
	}
	if resolvedAfter > 0 {
		r.Status = models.StatusResolved
		r.StatusHistory = append(r.StatusHistory, models.StatusEntry{
			Status: models.StatusResolved, At: created.Add(resolvedAfter).UnixMilli(),
		})
	}
	return r
}

func TestComputeTotals(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	reports := []*models.Report{
		historyReport(1, "Mitte", now.Add(-time.Hour), 0, 0),
		historyReport(2, "Mitte", now.Add(-2*time.Hour), 30*time.Minute, 0),
		historyReport(3, "Kreuzberg", now.Add(-3*time.Hour), time.Hour, 2*time.Hour),
	}
	reports[0].Approved = false
	reports[0].Votes = models.Votes{Count: 2, Voters: []string{"a", "b"}}
	reports[2].Votes = models.Votes{Count: 1, Voters: []string{"c"}}

	s := Compute(reports, now)
	assert.Equal(t, models.Totals{
		Total: 3, Approved: 2, Unapproved: 1,
		Reported: 1, Accepted: 1, Resolved: 1,
		Votes: 3,
	}, s.Totals)
}

func TestComputeMeanMinutes(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	t.Run("reports without the pair are ignored", func(t *testing.T) {
		reports := []*models.Report{
			historyReport(1, "", now.Add(-time.Hour), 0, 0),                          // never accepted
			historyReport(2, "", now.Add(-2*time.Hour), 10*time.Minute, 0),           // accepted only
			historyReport(3, "", now.Add(-3*time.Hour), 20*time.Minute, time.Hour),   // both
			historyReport(4, "", now.Add(-4*time.Hour), 45*time.Minute, 2*time.Hour), // both
		}
		s := Compute(reports, now)
		assert.InDelta(t, 25.0, s.KPI.AvgToAcceptedMin, 0.001) // mean(10,20,45)
		assert.InDelta(t, 90.0, s.KPI.AvgToResolvedMin, 0.001) // mean(60,120)
	})

	t.Run("rounded to one decimal", func(t *testing.T) {
		reports := []*models.Report{
			historyReport(1, "", now.Add(-time.Hour), 10*time.Minute, 0),
			historyReport(2, "", now.Add(-time.Hour), 15*time.Minute, 0),
			historyReport(3, "", now.Add(-time.Hour), 16*time.Minute, 0),
		}
		s := Compute(reports, now)
		assert.Equal(t, 13.7, s.KPI.AvgToAcceptedMin) // 41/3 = 13.666...
	})

	t.Run("empty set means zero", func(t *testing.T) {
		s := Compute(nil, now)
		assert.Zero(t, s.KPI.AvgToAcceptedMin)
		assert.Zero(t, s.KPI.AvgToResolvedMin)
	})
}

func TestComputeRecencyWindows(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	reports := []*models.Report{
		historyReport(1, "", now.Add(-24*time.Hour), 0, 0),      // inside 7d
		historyReport(2, "", now.Add(-6*24*time.Hour), 0, 0),    // inside 7d
		historyReport(3, "", now.Add(-20*24*time.Hour), 0, 0),   // inside 30d only
		historyReport(4, "", now.Add(-40*24*time.Hour), 0, 0),   // outside both
	}

	s := Compute(reports, now)
	assert.Equal(t, 2, s.KPI.CreatedLast7)
	assert.Equal(t, 3, s.KPI.CreatedLast30)
}

func TestComputeTopArea(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	t.Run("highest count wins", func(t *testing.T) {
		reports := []*models.Report{
			historyReport(1, "Kreuzberg", now, 0, 0),
			historyReport(2, "Mitte", now, 0, 0),
			historyReport(3, "Mitte", now, 0, 0),
		}
		s := Compute(reports, now)
		assert.Equal(t, "Mitte", s.KPI.TopArea)
	})

	t.Run("ties break toward first encountered", func(t *testing.T) {
		reports := []*models.Report{
			historyReport(1, "Kreuzberg", now, 0, 0),
			historyReport(2, "Mitte", now, 0, 0),
		}
		s := Compute(reports, now)
		assert.Equal(t, "Kreuzberg", s.KPI.TopArea)
	})

	t.Run("empty collection falls back to unknown", func(t *testing.T) {
		s := Compute(nil, now)
		assert.Equal(t, "unknown", s.KPI.TopArea)
	})

	t.Run("missing area counts as unknown", func(t *testing.T) {
		reports := []*models.Report{
			historyReport(1, "", now, 0, 0),
			historyReport(2, "", now, 0, 0),
			historyReport(3, "Mitte", now, 0, 0),
		}
		s := Compute(reports, now)
		assert.Equal(t, "unknown", s.KPI.TopArea)
	})
}

func TestComputeSeries(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	reports := []*models.Report{
		historyReport(1, "", time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC), 0, 0),
		historyReport(2, "", time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC), 0, 0),
		historyReport(3, "", time.Date(2024, 5, 14, 18, 0, 0, 0, time.UTC), time.Hour, 0),
	}
	reports[2].Category = "licht"

	s := Compute(reports, now)

	assert.Equal(t, []models.TrendPoint{
		{Date: "2024-05-12", Count: 1},
		{Date: "2024-05-14", Count: 2},
	}, s.Trend, "per-day series ascending by calendar day")

	assert.Equal(t, []models.CategoryCount{
		{Category: "müll", Count: 2},
		{Category: "licht", Count: 1},
	}, s.ByCategory)

	assert.Equal(t, []models.StatusCount{
		{Status: models.StatusReported, Count: 2},
		{Status: models.StatusAccepted, Count: 1},
	}, s.ByStatus)
}

func TestSummaryMemoization(t *testing.T) {
	logger := zap.NewNop().Sugar()
	store := storage.NewMemStore()
	require.NoError(t, store.Put(storage.KeyReports, []*models.Report{}))
	subs := NewSubscriptionService(store, logger)
	reports := NewReportService(store, subs, &recordingNotifier{}, logger)
	analytics := NewAnalyticsService(reports)

	first := analytics.Summary()
	second := analytics.Summary()
	assert.Same(t, first, second, "unchanged store returns the memoized summary")

	_, err := reports.Create(validSubmission(), nil, "")
	require.NoError(t, err)
	third := analytics.Summary()
	assert.NotSame(t, first, third)
	assert.Equal(t, 1, third.Totals.Total)
}
