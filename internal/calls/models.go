package calls

import (
	"encoding/json"
	"strings"
	"time"
)

// Record represents one completed call ingested from the voice platform.
//
// Invariant: VapiCallID is always present and unique; every other field is
// best-effort and may be absent depending on which payload shape the
// platform delivered.
//
// AccountID is nullable on purpose: a call whose assistant id has no binding
// is stored as an orphan and attributed later via the admin reattach flow.
type Record struct {
	ID         string  `json:"id" db:"id"`
	VapiCallID string  `json:"vapi_call_id" db:"vapi_call_id"`
	AccountID  *string `json:"account_id" db:"account_id"`

	AssistantID    *string `json:"assistant_id" db:"assistant_id"`
	CustomerNumber *string `json:"customer_number" db:"customer_number"`

	Status          *string    `json:"status" db:"status"`
	DurationSeconds *int64     `json:"duration_seconds" db:"duration_seconds"`
	StartedAt       *time.Time `json:"started_at" db:"started_at"`

	Summary      *string `json:"summary" db:"summary"`
	Transcript   *string `json:"transcript" db:"transcript"`
	RecordingURL *string `json:"recording_url" db:"recording_url"`
	EndedReason  *string `json:"ended_reason" db:"ended_reason"`

	// AnalysisData is the provider's analysis object stored verbatim.
	// Opaque to ingestion; the dashboard reads sentiment and success
	// evaluation out of it.
	AnalysisData json.RawMessage `json:"analysis_data" db:"analysis_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsOrphan reports whether the record has no owning account.
func (r Record) IsOrphan() bool {
	return r.AccountID == nil || *r.AccountID == ""
}

// DisplayStatus buckets provider status strings for the dashboard.
type DisplayStatus string

const (
	DisplaySuccess   DisplayStatus = "success"
	DisplayFailed    DisplayStatus = "failed"
	DisplayVoicemail DisplayStatus = "voicemail"
)

// Display maps the provider's free-form status onto the three buckets the
// calls table renders. Unknown or missing statuses count as failed.
func Display(status *string) DisplayStatus {
	if status == nil {
		return DisplayFailed
	}
	switch strings.ToLower(*status) {
	case "ended", "completed":
		return DisplaySuccess
	case "voicemail":
		return DisplayVoicemail
	default:
		return DisplayFailed
	}
}

// ListQuery bounds dashboard call-history reads.
type ListQuery struct {
	// Search matches case-insensitively against customer number and summary.
	Search string
	Limit  int
	Offset int
}

func (q ListQuery) withDefaults() ListQuery {
	out := q
	if out.Limit <= 0 || out.Limit > 200 {
		out.Limit = 50
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}
