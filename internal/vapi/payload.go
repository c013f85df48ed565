package vapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Envelope is the outer shape of every Vapi webhook delivery.
// Ref: https://docs.vapi.ai/server-url/events
//
// The payload is loosely versioned: depending on which integration path
// produced the event, the same logical field can show up in more than one
// location. The types here stay permissive (pointers, raw JSON) and the
// fallback ordering lives in extract.go, not scattered across handlers.
type Envelope struct {
	Message *Message `json:"message"`
}

// Message is one call-lifecycle notification. Only EventEndOfCallReport is
// authoritative and terminal; every other type carries transient data and is
// ignored by ingestion.
type Message struct {
	Type string `json:"type"`

	AssistantID string `json:"assistantId"`
	EndedReason string `json:"endedReason"`

	Call *Call `json:"call"`

	// Analysis is kept raw: the summary is pulled out during extraction and
	// the full object is stored verbatim for the dashboard.
	Analysis json.RawMessage `json:"analysis"`

	// Transcript is raw because the platform has sent both a plain string
	// and an array of turn objects here.
	Transcript json.RawMessage `json:"transcript"`
	Artifact   *Artifact       `json:"artifact"`
}

const EventEndOfCallReport = "end-of-call-report"

// Call is the nested call object. ID is the only field ingestion requires.
type Call struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistantId"`
	Status      string `json:"status"`
	EndedReason string `json:"endedReason"`

	DurationSeconds Seconds `json:"durationSeconds"`
	StartedAt       string  `json:"startedAt"`

	Customer *Customer `json:"customer"`

	Transcript   json.RawMessage `json:"transcript"`
	RecordingURL string          `json:"recordingUrl"`

	Artifact *Artifact       `json:"artifact"`
	Analysis json.RawMessage `json:"analysis"`
}

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

type Artifact struct {
	Transcript json.RawMessage `json:"transcript"`
}

// Seconds is a duration-in-seconds value that tolerates the shapes the
// platform has actually sent: a JSON number (sometimes fractional), a numeric
// string, or null. Anything else decodes as absent rather than failing the
// whole delivery.
type Seconds struct {
	value *int64
}

func (s *Seconds) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		s.value = nil
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			s.value = nil
			return nil
		}
		raw = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		s.value = nil
		return nil
	}
	n := int64(f)
	s.value = &n
	return nil
}

// Value returns the coerced duration, or nil when absent or unusable.
func (s Seconds) Value() *int64 {
	return s.value
}

// SecondsOf builds a Seconds for tests and fixtures.
func SecondsOf(n int64) Seconds {
	return Seconds{value: &n}
}
