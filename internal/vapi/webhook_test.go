package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trivehive/internal/accounts"
	"trivehive/internal/calls"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const endOfCallFixture = `{"message":{
	"type":"end-of-call-report",
	"call":{
		"id":"c-1",
		"assistantId":"a-1",
		"status":"ended",
		"durationSeconds":154,
		"customer":{"number":"+34612345678"},
		"analysis":{"summary":"Booked Friday 10am"}
	}
}}`

type fakeGuard struct {
	first bool
	err   error
	calls int
}

func (g *fakeGuard) FirstDelivery(ctx context.Context, vapiCallID string) (bool, error) {
	g.calls++
	return g.first, g.err
}

func deliver(t *testing.T, h WebhookHandler, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	r := gin.New()
	r.POST("/api/webhooks/vapi", h.HandleWebhook)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/vapi", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, w.Body.String())
	}
	return w, resp
}

func TestWebhook_IgnoresNonReportEvents(t *testing.T) {
	store := calls.NewMemoryStore()
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore()}

	for _, body := range []string{
		`{"message":{"type":"status-update","call":{"id":"c-1"}}}`,
		`{"message":{"type":"transcript"}}`,
		`{"message":{}}`,
		`{}`,
	} {
		w, resp := deliver(t, h, body, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("body %s: status %d", body, w.Code)
		}
		if resp["success"] != true {
			t.Fatalf("body %s: expected success ack, got %v", body, resp)
		}
	}
	if got := len(store.Records()); got != 0 {
		t.Fatalf("ignored events must not write, got %d records", got)
	}
}

func TestWebhook_MissingCallIDAcknowledged(t *testing.T) {
	store := calls.NewMemoryStore()
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore()}

	w, resp := deliver(t, h, `{"message":{"type":"end-of-call-report","call":{"status":"ended"}}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if resp["success"] != false {
		t.Fatalf("expected success:false, got %v", resp)
	}
	if len(store.Records()) != 0 {
		t.Fatalf("malformed event must not write")
	}
}

func TestWebhook_InvalidJSONAcknowledged(t *testing.T) {
	store := calls.NewMemoryStore()
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore()}

	w, resp := deliver(t, h, `{not json`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if resp["success"] != false {
		t.Fatalf("expected success:false, got %v", resp)
	}
	if len(store.Records()) != 0 {
		t.Fatalf("garbage body must not write")
	}
}

func TestWebhook_StoresAttributedCall(t *testing.T) {
	store := calls.NewMemoryStore()
	settings := accounts.NewMemoryStore()
	settings.Bind("account-7", "a-1")
	h := WebhookHandler{Calls: store, Accounts: settings}

	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("status %d resp %v", w.Code, resp)
	}
	if resp["call_id"] != "c-1" || resp["account_id"] != "account-7" || resp["assistant_id"] != "a-1" {
		t.Fatalf("response fields: %v", resp)
	}

	recs := store.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.VapiCallID != "c-1" {
		t.Fatalf("vapi_call_id = %q", rec.VapiCallID)
	}
	if rec.AccountID == nil || *rec.AccountID != "account-7" {
		t.Fatalf("account_id = %v", rec.AccountID)
	}
	if rec.AssistantID == nil || *rec.AssistantID != "a-1" {
		t.Fatalf("assistant_id = %v", rec.AssistantID)
	}
	if rec.Status == nil || *rec.Status != "ended" {
		t.Fatalf("status = %v", rec.Status)
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 154 {
		t.Fatalf("duration = %v", rec.DurationSeconds)
	}
	if rec.CustomerNumber == nil || *rec.CustomerNumber != "+34612345678" {
		t.Fatalf("customer_number = %v", rec.CustomerNumber)
	}
	if rec.Summary == nil || *rec.Summary != "Booked Friday 10am" {
		t.Fatalf("summary = %v", rec.Summary)
	}
	if rec.RecordingURL != nil || rec.Transcript != nil {
		t.Fatalf("expected nil recording url and transcript, got %v %v", rec.RecordingURL, rec.Transcript)
	}
}

func TestWebhook_UnboundAssistantStoresOrphan(t *testing.T) {
	store := calls.NewMemoryStore()
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore()}

	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("status %d resp %v", w.Code, resp)
	}

	recs := store.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if !recs[0].IsOrphan() {
		t.Fatalf("expected orphan record, got account %v", recs[0].AccountID)
	}
}

func TestWebhook_LookupFailureDegradesToOrphan(t *testing.T) {
	store := calls.NewMemoryStore()
	settings := accounts.NewMemoryStore()
	settings.FailLookup = errors.New("connection refused")
	h := WebhookHandler{Calls: store, Accounts: settings}

	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("lookup outage must not abort the request: status %d resp %v", w.Code, resp)
	}
	recs := store.Records()
	if len(recs) != 1 || !recs[0].IsOrphan() {
		t.Fatalf("expected one orphan record, got %+v", recs)
	}
}

func TestWebhook_NoAssistantIDSkipsLookup(t *testing.T) {
	store := calls.NewMemoryStore()
	settings := accounts.NewMemoryStore()
	settings.FailLookup = errors.New("must not be called")
	h := WebhookHandler{Calls: store, Accounts: settings}

	body := `{"message":{"type":"end-of-call-report","call":{"id":"c-2","status":"ended"}}}`
	w, resp := deliver(t, h, body, nil)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("status %d resp %v", w.Code, resp)
	}
	recs := store.Records()
	if len(recs) != 1 || !recs[0].IsOrphan() {
		t.Fatalf("expected one orphan record, got %+v", recs)
	}
}

func TestWebhook_InsertFailureStillAcknowledged(t *testing.T) {
	store := calls.NewMemoryStore()
	store.FailInsert = errors.New("disk full")
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore()}

	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("insert failure must not trigger sender retries, status %d", w.Code)
	}
	if resp["success"] != false {
		t.Fatalf("expected success:false, got %v", resp)
	}
}

func TestWebhook_DuplicateDeliveryIsIdempotent(t *testing.T) {
	store := calls.NewMemoryStore()
	settings := accounts.NewMemoryStore()
	settings.Bind("account-7", "a-1")
	h := WebhookHandler{Calls: store, Accounts: settings}

	if _, resp := deliver(t, h, endOfCallFixture, nil); resp["success"] != true {
		t.Fatalf("first delivery failed: %v", resp)
	}
	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("redelivery: status %d resp %v", w.Code, resp)
	}
	if resp["duplicate"] != true {
		t.Fatalf("expected duplicate marker, got %v", resp)
	}
	if got := len(store.Records()); got != 1 {
		t.Fatalf("redelivery produced %d records, want 1", got)
	}
}

func TestWebhook_GuardShortCircuitsRedelivery(t *testing.T) {
	store := calls.NewMemoryStore()
	guard := &fakeGuard{first: false}
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore(), Guard: guard}

	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK || resp["success"] != true || resp["duplicate"] != true {
		t.Fatalf("status %d resp %v", w.Code, resp)
	}
	if guard.calls != 1 {
		t.Fatalf("guard consulted %d times", guard.calls)
	}
	if len(store.Records()) != 0 {
		t.Fatalf("guarded duplicate must not reach the store")
	}
}

func TestWebhook_GuardOutageDoesNotDropEvent(t *testing.T) {
	store := calls.NewMemoryStore()
	guard := &fakeGuard{err: errors.New("redis down")}
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore(), Guard: guard}

	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("status %d resp %v", w.Code, resp)
	}
	if len(store.Records()) != 1 {
		t.Fatalf("event must still be stored when the guard is down")
	}
}

func TestWebhook_SharedSecret(t *testing.T) {
	store := calls.NewMemoryStore()
	h := WebhookHandler{Calls: store, Accounts: accounts.NewMemoryStore(), Secret: "hunter2"}

	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusOK || resp["success"] != false {
		t.Fatalf("missing secret: status %d resp %v", w.Code, resp)
	}
	if len(store.Records()) != 0 {
		t.Fatalf("unauthenticated delivery must not write")
	}

	w, resp = deliver(t, h, endOfCallFixture, map[string]string{"X-Vapi-Secret": "hunter2"})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("valid secret: status %d resp %v", w.Code, resp)
	}
	if len(store.Records()) != 1 {
		t.Fatalf("authenticated delivery must write")
	}
}

func TestWebhook_MissingDependenciesIsServerError(t *testing.T) {
	h := WebhookHandler{}
	w, resp := deliver(t, h, endOfCallFixture, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unwired handler must 500 so the sender retries, got %d", w.Code)
	}
	if resp["success"] != false {
		t.Fatalf("expected success:false, got %v", resp)
	}
}

func TestDedupKey(t *testing.T) {
	if dedupKey("c-1") != "vapi:call:c-1" {
		t.Fatalf("unexpected key %q", dedupKey("c-1"))
	}
}
