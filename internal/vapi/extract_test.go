package vapi

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func mustMessage(t *testing.T, raw string) *Message {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Message == nil {
		t.Fatalf("fixture has no message")
	}
	return env.Message
}

func TestReport_MissingCallID(t *testing.T) {
	cases := []string{
		`{"message":{"type":"end-of-call-report"}}`,
		`{"message":{"type":"end-of-call-report","call":{}}}`,
		`{"message":{"type":"end-of-call-report","call":{"id":"   "}}}`,
	}
	for _, raw := range cases {
		if _, err := mustMessage(t, raw).Report(); !errors.Is(err, ErrMissingCallID) {
			t.Fatalf("payload %s: expected ErrMissingCallID, got %v", raw, err)
		}
	}
}

func TestReport_AssistantIDCallLevelWins(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"assistantId":"a-msg",
		"call":{"id":"c-1","assistantId":"a-call"}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.AssistantID == nil || *r.AssistantID != "a-call" {
		t.Fatalf("expected call-level assistant id to win, got %v", r.AssistantID)
	}
}

func TestReport_AssistantIDMessageFallback(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"assistantId":"a-msg",
		"call":{"id":"c-1"}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.AssistantID == nil || *r.AssistantID != "a-msg" {
		t.Fatalf("expected message-level fallback, got %v", r.AssistantID)
	}
}

func TestReport_SummaryFallbackOrder(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"analysis":{"summary":"top"},
		"call":{"id":"c-1","analysis":{"summary":"nested"}}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.Summary == nil || *r.Summary != "top" {
		t.Fatalf("expected message-level summary to win, got %v", r.Summary)
	}

	m = mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"call":{"id":"c-1","analysis":{"summary":"nested"}}
	}}`)
	r, _ = m.Report()
	if r.Summary == nil || *r.Summary != "nested" {
		t.Fatalf("expected call-level summary fallback, got %v", r.Summary)
	}
}

func TestReport_TranscriptFallbackOrder(t *testing.T) {
	// All four candidate locations populated: message-level string wins.
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"transcript":"top",
		"artifact":{"transcript":"top-artifact"},
		"call":{
			"id":"c-1",
			"transcript":"call",
			"artifact":{"transcript":"call-artifact"}
		}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.Transcript == nil || *r.Transcript != "top" {
		t.Fatalf("expected top-level transcript to win, got %v", r.Transcript)
	}

	// Only the last candidate populated: still used.
	m = mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"call":{"id":"c-1","artifact":{"transcript":"call-artifact"}}
	}}`)
	r, _ = m.Report()
	if r.Transcript == nil || *r.Transcript != "call-artifact" {
		t.Fatalf("expected call artifact fallback, got %v", r.Transcript)
	}
}

func TestReport_TranscriptTurnArrayFlattened(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"transcript":[
			{"role":"assistant","message":"Hola, ¿en qué puedo ayudarte?"},
			{"role":"user","message":"Quiero una cita"},
			{"role":"assistant","message":""}
		],
		"call":{"id":"c-1"}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	want := "assistant: Hola, ¿en qué puedo ayudarte?\nuser: Quiero una cita"
	if r.Transcript == nil || *r.Transcript != want {
		t.Fatalf("flattened transcript = %v, want %q", r.Transcript, want)
	}
}

func TestReport_DurationCoercion(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *int64
	}{
		{"number", `154`, int64ptr(154)},
		{"numeric string", `"154"`, int64ptr(154)},
		{"float", `154.8`, int64ptr(154)},
		{"null", `null`, nil},
		{"garbage string", `"a minute"`, nil},
		{"negative", `-3`, nil},
		{"object", `{"seconds":154}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := mustMessage(t, `{"message":{
				"type":"end-of-call-report",
				"call":{"id":"c-1","durationSeconds":`+tc.raw+`}
			}}`)
			r, err := m.Report()
			if err != nil {
				t.Fatal(err)
			}
			switch {
			case tc.want == nil && r.DurationSeconds != nil:
				t.Fatalf("expected nil duration, got %d", *r.DurationSeconds)
			case tc.want != nil && (r.DurationSeconds == nil || *r.DurationSeconds != *tc.want):
				t.Fatalf("duration = %v, want %d", r.DurationSeconds, *tc.want)
			}
		})
	}
}

func TestReport_MissingDurationIsAbsentFromEnvelope(t *testing.T) {
	m := mustMessage(t, `{"message":{"type":"end-of-call-report","call":{"id":"c-1"}}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.DurationSeconds != nil {
		t.Fatalf("absent duration must normalize to nil, got %d", *r.DurationSeconds)
	}
}

func TestReport_StartedAtParsing(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"call":{"id":"c-1","startedAt":"2024-01-15T10:43:00.120Z"}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 15, 10, 43, 0, 120000000, time.UTC)
	if r.StartedAt == nil || !r.StartedAt.Equal(want) {
		t.Fatalf("started at = %v, want %v", r.StartedAt, want)
	}

	m = mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"call":{"id":"c-1","startedAt":"yesterday"}
	}}`)
	r, _ = m.Report()
	if r.StartedAt != nil {
		t.Fatalf("unparseable timestamp must normalize to nil, got %v", r.StartedAt)
	}
}

func TestReport_AnalysisRawFirstPresent(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"call":{"id":"c-1","analysis":{"summary":"nested","successEvaluation":"true"}}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	var a map[string]any
	if err := json.Unmarshal(r.Analysis, &a); err != nil {
		t.Fatalf("analysis not stored verbatim: %v", err)
	}
	if a["successEvaluation"] != "true" {
		t.Fatalf("analysis payload lost fields: %v", a)
	}
}

func TestReport_AnalysisCallLevelWins(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"analysis":{"origin":"message"},
		"call":{"id":"c-1","analysis":{"origin":"call"}}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	var a map[string]any
	if err := json.Unmarshal(r.Analysis, &a); err != nil {
		t.Fatal(err)
	}
	if a["origin"] != "call" {
		t.Fatalf("stored analysis origin = %v, want call-level analysis first", a["origin"])
	}

	// Message-level remains the fallback when the call carries none.
	m = mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"analysis":{"origin":"message"},
		"call":{"id":"c-1"}
	}}`)
	r, _ = m.Report()
	if err := json.Unmarshal(r.Analysis, &a); err != nil {
		t.Fatal(err)
	}
	if a["origin"] != "message" {
		t.Fatalf("stored analysis origin = %v, want message-level fallback", a["origin"])
	}
}

func TestReport_DirectFieldsNullDefault(t *testing.T) {
	m := mustMessage(t, `{"message":{"type":"end-of-call-report","call":{"id":"c-1"}}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.CustomerNumber != nil || r.Status != nil || r.RecordingURL != nil ||
		r.Summary != nil || r.Transcript != nil || r.Analysis != nil || r.EndedReason != nil {
		t.Fatalf("expected all optional fields nil, got %+v", r)
	}
}

func TestReport_EndedReasonCallLevelWins(t *testing.T) {
	m := mustMessage(t, `{"message":{
		"type":"end-of-call-report",
		"endedReason":"customer-ended-call",
		"call":{"id":"c-1","endedReason":"assistant-ended-call"}
	}}`)
	r, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.EndedReason == nil || *r.EndedReason != "assistant-ended-call" {
		t.Fatalf("expected call-level ended reason, got %v", r.EndedReason)
	}
}

func int64ptr(n int64) *int64 { return &n }
