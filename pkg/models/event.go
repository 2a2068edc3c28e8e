package models

import "time"

// Category is the reason an event was surfaced by the upstream source.
type Category string

const (
	CategoryMention         Category = "mention"
	CategoryReviewRequested Category = "review_requested"
	CategoryAssignment      Category = "assignment"
	CategoryAuthored        Category = "authored_activity"
)

// Origin describes where an event occurred.
type Origin struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Event is one upstream notification to be evaluated. Events are rebuilt on
// every poll and owned by a single pipeline pass; they are never persisted
// as-is.
type Event struct {
	ID           string    `json:"id"`
	Category     Category  `json:"category"`
	Origin       Origin    `json:"origin"`
	SubjectTitle string    `json:"subject_title"`
	SubjectKind  string    `json:"subject_kind"`
	UpdatedAt    time.Time `json:"updated_at"`
	Link         string    `json:"link,omitempty"`
}

// Verdict is the classifier's importance decision plus rationale.
type Verdict struct {
	Important bool   `json:"important"`
	Reason    string `json:"reason"`
}

// ProcessedRecord is the durable deduplication ledger entry. At most one
// record exists per event id; records are written once and never updated.
type ProcessedRecord struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Notified      bool      `json:"notified"`
	VerdictReason string    `json:"verdict_reason"`
	SourceName    string    `json:"source_name"`
	Category      Category  `json:"category"`
	SubjectTitle  string    `json:"subject_title"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Alert is the downstream notification envelope delivered to the recipient.
type Alert struct {
	EventID      string    `json:"event_id"`
	SourceName   string    `json:"source_name"`
	Category     Category  `json:"category"`
	SubjectTitle string    `json:"subject_title"`
	SubjectKind  string    `json:"subject_kind"`
	Reason       string    `json:"reason"`
	Link         string    `json:"link,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

// NewAlert builds the alert envelope for an important event.
func NewAlert(ev Event, verdict Verdict) Alert {
	return Alert{
		EventID:      ev.ID,
		SourceName:   ev.Origin.Name,
		Category:     ev.Category,
		SubjectTitle: ev.SubjectTitle,
		SubjectKind:  ev.SubjectKind,
		Reason:       verdict.Reason,
		Link:         ev.Link,
		SentAt:       time.Now(),
	}
}
