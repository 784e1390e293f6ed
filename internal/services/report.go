package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/notify"
	"github.com/stadtmeldung/report-server/internal/storage"
	"go.uber.org/zap"
)

// preferences are the persisted global toggles.
type preferences struct {
	NotifyOnStatus bool `json:"notifyOnStatus"`
}

// ReportService owns the report collection. All mutations run under the
// service lock, bump the version counter, and persist a best-effort
// snapshot; derived views (query, analytics) read through All().
type ReportService struct {
	store    storage.Store
	logger   *zap.SugaredLogger
	notifier notify.Notifier
	subs     *SubscriptionService
	validate *validator.Validate
	now      func() time.Time

	mu      sync.Mutex
	reports []*models.Report
	lastID  int64
	version uint64
	prefs   preferences
}

// NewReportService loads the persisted collection. An empty store is seeded
// with the demo reports; a corrupt snapshot falls back to the seeds too.
func NewReportService(store storage.Store, subs *SubscriptionService, notifier notify.Notifier, logger *zap.SugaredLogger) *ReportService {
	s := &ReportService{
		store:    store,
		logger:   logger,
		notifier: notifier,
		subs:     subs,
		validate: validator.New(),
		now:      time.Now,
	}

	err := store.Get(storage.KeyReports, &s.reports)
	if err != nil {
		if err != storage.ErrNotFound {
			logger.Warnw("Failed to load reports, reseeding", "error", err)
		}
		s.reports = seedReports(s.now())
		s.persistLocked()
	}
	for _, r := range s.reports {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}

	if err := store.Get(storage.KeyPreferences, &s.prefs); err != nil && err != storage.ErrNotFound {
		logger.Warnw("Failed to load preferences, using defaults", "error", err)
	}
	return s
}

// seedReports are the demo reports installed on first start, mirroring the
// frontend's initial state.
func seedReports(now time.Time) []*models.Report {
	created := now.UnixMilli() - 24*time.Hour.Milliseconds()
	return []*models.Report{
		{
			ID: 1, Category: "müll", Description: "Testmeldung: Müll auf dem Gehweg",
			Location: &models.Location{Lat: 52.52, Lng: 13.405, Area: "Mitte", Zip: "10115"},
			Status:   models.StatusReported, Votes: models.Votes{Count: 2, Voters: []string{"seed-a", "seed-b"}},
			Approved: true, CreatedAt: created,
			StatusHistory: []models.StatusEntry{{Status: models.StatusReported, At: created}},
		},
		{
			ID: 2, Category: "schlagloch", Description: "Test: Schlagloch nahe Brandenburger Tor",
			Location: &models.Location{Lat: 52.5163, Lng: 13.3777, Area: "Mitte", Zip: "10117"},
			Status:   models.StatusAccepted, Votes: models.Votes{Count: 1, Voters: []string{"seed-c"}},
			Approved: true, CreatedAt: created - 3600000,
			StatusHistory: []models.StatusEntry{
				{Status: models.StatusReported, At: created - 3600000},
				{Status: models.StatusAccepted, At: created - 1800000},
			},
		},
		{
			ID: 3, Category: "licht", Description: "Test: Laterne vor Hausnummer 12 defekt",
			Location: &models.Location{Lat: 52.4986, Lng: 13.4033, Area: "Kreuzberg", Zip: "10997"},
			Status:   models.StatusResolved, Votes: models.Votes{Count: 0, Voters: []string{}},
			Approved: true, CreatedAt: created - 7200000,
			StatusHistory: []models.StatusEntry{
				{Status: models.StatusReported, At: created - 7200000},
				{Status: models.StatusAccepted, At: created - 5400000},
				{Status: models.StatusResolved, At: created - 600000},
			},
		},
		{
			ID: 4, Category: "baum", Description: "Test: Umgestürzter Baum blockiert Radweg",
			Location: &models.Location{Lat: 52.49, Lng: 13.32, Area: "Charlottenburg", Zip: "10623"},
			Status:   models.StatusReported, Votes: models.Votes{Count: 4, Voters: []string{"seed-a", "seed-d", "seed-e", "seed-f"}},
			Approved: true, CreatedAt: created - 2700000,
			StatusHistory: []models.StatusEntry{{Status: models.StatusReported, At: created - 2700000}},
		},
		{
			ID: 5, Category: "verschmutzung", Description: "Test: Ölspur auf der Straße",
			Location: &models.Location{Lat: 52.50, Lng: 13.45, Area: "Friedrichshain", Zip: "10245"},
			Status:   models.StatusReported, Votes: models.Votes{Count: 0, Voters: []string{}},
			Approved: false, CreatedAt: created,
			StatusHistory: []models.StatusEntry{{Status: models.StatusReported, At: created}},
		},
	}
}

// Create validates the submission, assigns a fresh id and seeds the report
// lifecycle. The reporter resolves to nil when anonymous, otherwise to the
// session user id or the device id. A matching subscription rule fires one
// notification.
func (s *ReportService) Create(sub *models.ReportSubmission, sessionUser *models.User, deviceID string) (*models.Report, error) {
	if err := s.validate.Struct(sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !models.ValidCategory(sub.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, sub.Category)
	}
	if strings.TrimSpace(sub.Description) == "" {
		return nil, fmt.Errorf("%w: description is empty", ErrValidation)
	}

	var reporterID *string
	if !sub.Anonymous {
		if sessionUser != nil {
			id := sessionUser.ID
			reporterID = &id
		} else if deviceID != "" {
			id := deviceID
			reporterID = &id
		}
	}

	s.mu.Lock()
	nowMs := s.now().UnixMilli()
	id := nowMs
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	report := &models.Report{
		ID:            id,
		Category:      sub.Category,
		Description:   sub.Description,
		Image:         sub.Image,
		Location:      sub.Location,
		Status:        models.StatusReported,
		ReporterID:    reporterID,
		Votes:         models.Votes{Count: 0, Voters: []string{}},
		Approved:      false,
		CreatedAt:     nowMs,
		StatusHistory: []models.StatusEntry{{Status: models.StatusReported, At: nowMs}},
	}
	s.reports = append(s.reports, report)
	s.bumpLocked()
	snapshot := report.Clone()
	s.mu.Unlock()

	if s.subs.Match(snapshot.Location.Area, snapshot.Location.Zip) {
		area := snapshot.Location.Area
		if area == "" {
			area = "deiner Region"
		}
		s.notifier.Send("Neue Meldung", fmt.Sprintf("%s in %s", snapshot.Category, area))
	}

	s.logger.Infow("Report created",
		"id", snapshot.ID,
		"category", snapshot.Category,
		"area", snapshot.Location.Area,
		"anonymous", reporterID == nil,
	)
	return snapshot, nil
}

// Get returns a detached snapshot of the report with the given id.
func (s *ReportService) Get(id int64) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.findLocked(id); r != nil {
		return r.Clone(), nil
	}
	return nil, ErrNotFound
}

// All returns a detached snapshot of the full collection in insertion
// order. The clones keep concurrent readers (list rendering, analytics,
// export) off the live structs that Vote and AdvanceStatus mutate.
func (s *ReportService) All() []*models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Report, len(s.reports))
	for i, r := range s.reports {
		out[i] = r.Clone()
	}
	return out
}

// Version is the mutation counter; derived views memoize against it.
func (s *ReportService) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Delete removes the report. The policy currently allows any actor —
// callers confirm destructive intent before calling, there is no recovery.
func (s *ReportService) Delete(id int64, actor *models.User) error {
	if !CanPerform(ActionDelete, actor, nil) {
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID == id {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			s.bumpLocked()
			return nil
		}
	}
	return ErrNotFound
}

// AdvanceStatus moves the report to the cyclic successor state. An actor
// without permission causes a silent no-op, not an error — the frontend
// disables the control, the core just ignores the call.
func (s *ReportService) AdvanceStatus(id int64, actor *models.User) (*models.Report, error) {
	s.mu.Lock()
	report := s.findLocked(id)
	if report == nil {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !CanPerform(ActionAdvance, actor, report) {
		snapshot := report.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}

	prev := report.Status
	next := report.Status.Next()
	report.Status = next
	report.StatusHistory = append(report.StatusHistory, models.StatusEntry{
		Status: next,
		At:     s.now().UnixMilli(),
	})
	s.bumpLocked()
	notifyOnStatus := s.prefs.NotifyOnStatus
	snapshot := report.Clone()
	s.mu.Unlock()

	if actor != nil && snapshot.OwnedBy(actor.ID) {
		s.notifier.Send("Status aktualisiert", fmt.Sprintf("Deine Meldung #%d ist jetzt '%s'.", snapshot.ID, next))
	}
	if notifyOnStatus && snapshot.Location != nil && s.subs.Match(snapshot.Location.Area, snapshot.Location.Zip) {
		s.notifier.Send("Status geändert", fmt.Sprintf("#%d: %s → %s (%s)", snapshot.ID, prev, next, snapshot.Location.Area))
	}

	return snapshot, nil
}

// Vote adds the voter to the report. A repeat vote by the same voter is a
// no-op; count and voter set always stay in step.
func (s *ReportService) Vote(id int64, voterID string) (*models.Report, error) {
	if voterID == "" {
		return nil, ErrNoIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	report := s.findLocked(id)
	if report == nil {
		return nil, ErrNotFound
	}
	if report.Votes.Has(voterID) {
		return report.Clone(), nil
	}
	report.Votes.Voters = append(report.Votes.Voters, voterID)
	report.Votes.Count++
	s.bumpLocked()
	return report.Clone(), nil
}

// Approve marks the report as moderated. Requires a moderation role;
// approving an already-approved report is a no-op.
func (s *ReportService) Approve(id int64, actor *models.User) (*models.Report, error) {
	if !CanPerform(ActionApprove, actor, nil) {
		return nil, ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	report := s.findLocked(id)
	if report == nil {
		return nil, ErrNotFound
	}
	if report.Approved {
		return report.Clone(), nil
	}
	report.Approved = true
	s.bumpLocked()
	return report.Clone(), nil
}

// Reject removes an unapproved report entirely. There is no rejected state;
// rejection is deletion.
func (s *ReportService) Reject(id int64, actor *models.User) error {
	if !CanPerform(ActionReject, actor, nil) {
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID == id {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			s.bumpLocked()
			return nil
		}
	}
	return ErrNotFound
}

// NotifyOnStatus returns the global status-change notification toggle.
func (s *ReportService) NotifyOnStatus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.NotifyOnStatus
}

// SetNotifyOnStatus updates and persists the toggle.
func (s *ReportService) SetNotifyOnStatus(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.NotifyOnStatus = v
	if err := s.store.Put(storage.KeyPreferences, s.prefs); err != nil {
		s.logger.Warnw("Failed to persist preferences", "error", err)
	}
}

func (s *ReportService) findLocked(id int64) *models.Report {
	for _, r := range s.reports {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// bumpLocked increments the version and writes the snapshot. Persistence
// failures are logged and swallowed; memory stays authoritative.
func (s *ReportService) bumpLocked() {
	s.version++
	s.persistLocked()
}

func (s *ReportService) persistLocked() {
	if err := s.store.Put(storage.KeyReports, s.reports); err != nil {
		s.logger.Warnw("Failed to persist reports", "error", err)
	}
}
