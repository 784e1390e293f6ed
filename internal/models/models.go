// Package models defines the data structures shared across the application:
// reports and their lifecycle, user sessions, subscriptions, and the
// analytics payloads served to the moderation dashboard.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a report. Advancing wraps around:
// reported → accepted → resolved → reported.
type Status string

const (
	StatusReported Status = "reported"
	StatusAccepted Status = "accepted"
	StatusResolved Status = "resolved"
)

// Next returns the cyclic successor status.
func (s Status) Next() Status {
	switch s {
	case StatusReported:
		return StatusAccepted
	case StatusAccepted:
		return StatusResolved
	default:
		return StatusReported
	}
}

// Categories is the fixed set of report categories, matching the submission
// form of the StadtMeldung frontend.
var Categories = []string{
	"müll",
	"schlagloch",
	"licht",
	"baum",
	"ast",
	"graffiti",
	"wasser",
	"verkehr",
	"spielplatz",
	"laerm",
	"verschmutzung",
	"wildparken",
	"anderes",
}

// ValidCategory reports whether c is a known category value.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Location is a geocoded point. Area and Zip may be empty when the
// geocoder could not extract them.
type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Area string  `json:"area"`
	Zip  string  `json:"zip"`
}

// CoordString renders the location as "lat,lng" for free-text search.
func (l Location) CoordString() string {
	return fmt.Sprintf("%g,%g", l.Lat, l.Lng)
}

// Votes tracks upvotes on a report. Count always equals len(Voters);
// a voter id appears at most once.
type Votes struct {
	Count  int      `json:"count"`
	Voters []string `json:"voters"`
}

// Has reports whether the given voter id already voted.
func (v Votes) Has(voter string) bool {
	for _, id := range v.Voters {
		if id == voter {
			return true
		}
	}
	return false
}

// StatusEntry is one step in a report's status history.
type StatusEntry struct {
	Status Status `json:"status"`
	At     int64  `json:"at"` // ms since epoch
}

// Report is a citizen-submitted issue.
//
// ID is assigned once at creation from the submission timestamp and never
// changes. StatusHistory is append-only: the first entry is always
// StatusReported at CreatedAt, each later entry the cyclic successor of the
// previous one.
type Report struct {
	ID            int64         `json:"id"`
	Category      string        `json:"category"`
	Description   string        `json:"description"`
	Image         string        `json:"image,omitempty"` // opaque asset reference
	Location      *Location     `json:"location"`
	Status        Status        `json:"status"`
	ReporterID    *string       `json:"reporterId"` // nil = anonymous
	Votes         Votes         `json:"votes"`
	Approved      bool          `json:"approved"`
	CreatedAt     int64         `json:"createdAt"` // ms since epoch
	StatusHistory []StatusEntry `json:"statusHistory"`
}

// Clone returns a deep copy detached from the original: the pointers and
// mutable slices are duplicated, so mutating either side never touches the
// other.
func (r *Report) Clone() *Report {
	c := *r
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	if r.ReporterID != nil {
		id := *r.ReporterID
		c.ReporterID = &id
	}
	c.Votes.Voters = make([]string, len(r.Votes.Voters))
	copy(c.Votes.Voters, r.Votes.Voters)
	c.StatusHistory = make([]StatusEntry, len(r.StatusHistory))
	copy(c.StatusHistory, r.StatusHistory)
	return &c
}

// StatusAt returns the timestamp of the first history entry with the given
// status, or 0 if the report never reached it.
func (r *Report) StatusAt(s Status) int64 {
	for _, e := range r.StatusHistory {
		if e.Status == s {
			return e.At
		}
	}
	return 0
}

// OwnedBy reports whether the report was filed non-anonymously by userID.
func (r *Report) OwnedBy(userID string) bool {
	return r.ReporterID != nil && *r.ReporterID == userID
}

// ReportSubmission is the request body for filing a new report.
type ReportSubmission struct {
	Category    string    `json:"category" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Image       string    `json:"image,omitempty"`
	Location    *Location `json:"location" validate:"required"`
	Anonymous   bool      `json:"anonymous"`
}

// User is an ephemeral demo session identity. Roles are self-asserted at
// login; there is no credential check.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsAdmin     bool   `json:"isAdmin"`
	IsModerator bool   `json:"isModerator"`
}

// IsStaff reports whether the user holds a moderation role.
func (u *User) IsStaff() bool {
	return u != nil && (u.IsAdmin || u.IsModerator)
}

// SubscriptionType distinguishes area-name rules from zip-code rules.
type SubscriptionType string

const (
	SubscriptionArea SubscriptionType = "area"
	SubscriptionZip  SubscriptionType = "zip"
)

// Subscription is a standing watch rule that triggers a notification when a
// report in the matching area or zip is created or changes status.
type Subscription struct {
	Type  SubscriptionType `json:"type"`
	Value string           `json:"value"`
}

// Matches reports whether the rule matches the given area/zip pair.
// Area rules compare case-insensitively, zip rules exactly.
func (s Subscription) Matches(area, zip string) bool {
	switch s.Type {
	case SubscriptionArea:
		return area != "" && strings.EqualFold(s.Value, area)
	case SubscriptionZip:
		return zip != "" && s.Value == zip
	}
	return false
}

// ChatMessage is one entry in the canned-response chat log.
type ChatMessage struct {
	From string `json:"from"` // "me" | "bot"
	Text string `json:"text"`
	At   int64  `json:"at"`
}

// ForumComment is a reply inside a forum thread.
type ForumComment struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
	At     int64  `json:"at"`
}

// ForumThread is a discussion thread on the forum board.
type ForumThread struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Author    string         `json:"author"`
	Text      string         `json:"text"`
	CreatedAt int64          `json:"createdAt"`
	Comments  []ForumComment `json:"comments"`
}

// Totals are the plain counters shown on the moderation dashboard.
type Totals struct {
	Total      int `json:"total"`
	Approved   int `json:"approved"`
	Unapproved int `json:"unapproved"`
	Reported   int `json:"reported"`
	Accepted   int `json:"accepted"`
	Resolved   int `json:"resolved"`
	Votes      int `json:"votes"`
}

// KPI holds the derived key figures of the analytics engine.
type KPI struct {
	AvgToAcceptedMin float64 `json:"avgToAcceptedMin"`
	AvgToResolvedMin float64 `json:"avgToResolvedMin"`
	TopArea          string  `json:"topArea"`
	CreatedLast7     int     `json:"createdLast7"`
	CreatedLast30    int     `json:"createdLast30"`
}

// TrendPoint is one per-day sample of the submission trend series.
type TrendPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// CategoryCount is one bar of the category histogram.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StatusCount is one bar of the status histogram.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// MillisToTime converts a ms-epoch timestamp to time.Time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
