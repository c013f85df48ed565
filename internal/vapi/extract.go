package vapi

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrMissingCallID marks a report event without a usable call id. Nothing can
// be stored for it; the handler acknowledges and drops.
var ErrMissingCallID = errors.New("vapi: end-of-call report has no call id")

// Report is the normalized view of an end-of-call report after all fallback
// chains have been applied. Nil means the field was absent from every
// candidate location.
type Report struct {
	VapiCallID  string
	AssistantID *string

	CustomerNumber *string
	Status         *string
	EndedReason    *string

	DurationSeconds *int64
	StartedAt       *time.Time

	Summary      *string
	Transcript   *string
	RecordingURL *string

	// Analysis is the first-present analysis object, verbatim.
	Analysis json.RawMessage
}

// Report normalizes the message into a Report. Each logical field is read
// from an ordered list of candidate locations and the first present,
// non-empty value wins; new payload variants get a new candidate here and
// nowhere else.
func (m *Message) Report() (Report, error) {
	call := m.Call
	if call == nil || strings.TrimSpace(call.ID) == "" {
		return Report{}, ErrMissingCallID
	}

	r := Report{VapiCallID: call.ID}

	r.AssistantID = firstNonEmpty(
		call.AssistantID,
		m.AssistantID,
	)
	r.Summary = firstNonEmpty(
		analysisSummary(m.Analysis),
		analysisSummary(call.Analysis),
	)
	r.Transcript = firstNonEmpty(
		transcriptText(m.Transcript),
		artifactTranscript(m.Artifact),
		transcriptText(call.Transcript),
		artifactTranscript(call.Artifact),
	)
	r.EndedReason = firstNonEmpty(
		call.EndedReason,
		m.EndedReason,
	)
	r.Analysis = firstRawJSON(
		call.Analysis,
		m.Analysis,
	)

	// Remaining fields have exactly one home on the call object.
	r.Status = firstNonEmpty(call.Status)
	r.RecordingURL = firstNonEmpty(call.RecordingURL)
	if call.Customer != nil {
		r.CustomerNumber = firstNonEmpty(call.Customer.Number)
	}
	r.DurationSeconds = call.DurationSeconds.Value()
	r.StartedAt = parseTimestamp(call.StartedAt)

	return r, nil
}

// firstNonEmpty returns a pointer to the first non-blank candidate.
func firstNonEmpty(candidates ...string) *string {
	for _, v := range candidates {
		if strings.TrimSpace(v) != "" {
			v := v
			return &v
		}
	}
	return nil
}

func firstRawJSON(candidates ...json.RawMessage) json.RawMessage {
	for _, raw := range candidates {
		if isPresentJSON(raw) {
			return raw
		}
	}
	return nil
}

func isPresentJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

func analysisSummary(raw json.RawMessage) string {
	if !isPresentJSON(raw) {
		return ""
	}
	var a struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return ""
	}
	return a.Summary
}

// transcriptText flattens a transcript field that may be a plain string or an
// array of turn objects into storable text. Turn arrays render one line per
// turn, "role: text".
func transcriptText(raw json.RawMessage) string {
	if !isPresentJSON(raw) {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var turns []struct {
		Role    string `json:"role"`
		Message string `json:"message"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(raw, &turns); err != nil {
		return ""
	}
	var b strings.Builder
	for _, t := range turns {
		line := t.Message
		if line == "" {
			line = t.Text
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if t.Role != "" {
			b.WriteString(t.Role)
			b.WriteString(": ")
		}
		b.WriteString(line)
	}
	return b.String()
}

func artifactTranscript(a *Artifact) string {
	if a == nil {
		return ""
	}
	return transcriptText(a.Transcript)
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
