package vapi

import (
	"context"
	"net/http"

	"trivehive/internal/accounts"
	"trivehive/internal/calls"
	"trivehive/pkg/logger"

	"github.com/gin-gonic/gin"
)

const headerWebhookSecret = "X-Vapi-Secret"

// CallWriter is the slice of the calls store the webhook needs.
type CallWriter interface {
	Insert(ctx context.Context, rec calls.Record) (inserted bool, err error)
}

// WebhookHandler ingests Vapi server events.
//
// Contract with the sender: Vapi retries on non-2xx responses, and a retried
// delivery cannot be told apart from a new one on their side. So every
// per-event failure here is logged and acknowledged with a 200. The only 500
// is the configuration class: handler dependencies that should have been
// wired at startup are absent, meaning no event processing happened at all
// and a retry is actually wanted.
type WebhookHandler struct {
	Calls    CallWriter
	Accounts accounts.Resolver

	// Guard is optional; nil disables the Redis pre-check and leaves dedup
	// entirely to the database unique index.
	Guard DuplicateGuard

	// Secret is optional; when set, deliveries must present it in the
	// X-Vapi-Secret header. Mismatches are acknowledged and dropped so the
	// sender does not retry them either.
	Secret string
}

// HandleWebhook is bound to POST /api/webhooks/vapi.
func (h WebhookHandler) HandleWebhook(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Calls == nil || h.Accounts == nil {
		log.Error("vapi webhook dependencies not wired")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "server configuration error"})
		return
	}

	if h.Secret != "" && c.GetHeader(headerWebhookSecret) != h.Secret {
		log.Warn("vapi webhook secret mismatch")
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		log.Warn("vapi webhook body is not valid json", "err", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	if env.Message == nil || env.Message.Type != EventEndOfCallReport {
		eventType := "unknown"
		if env.Message != nil && env.Message.Type != "" {
			eventType = env.Message.Type
		}
		log.Debug("ignored vapi event", "type", eventType)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ignored non-end-of-call-report event"})
		return
	}

	report, err := env.Message.Report()
	if err != nil {
		log.Warn("vapi end-of-call report missing call data", "err", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "missing call data"})
		return
	}

	ctx := c.Request.Context()

	if h.Guard != nil {
		first, err := h.Guard.FirstDelivery(ctx, report.VapiCallID)
		if err != nil {
			// Guard outage must not drop events; the unique index still
			// dedups.
			log.Warn("dedup guard unavailable, continuing", "call_id", report.VapiCallID, "err", err)
		} else if !first {
			log.Info("duplicate vapi delivery suppressed", "call_id", report.VapiCallID)
			c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true, "call_id": report.VapiCallID})
			return
		}
	}

	// Attribution is best-effort: a failed or empty lookup stores the call
	// as an orphan, to be repaired later via the admin reattach flow.
	var accountID *string
	if report.AssistantID != nil {
		id, ok, err := h.Accounts.AccountIDByAssistantID(ctx, *report.AssistantID)
		switch {
		case err != nil:
			log.Error("assistant lookup failed, storing orphan call", "assistant_id", *report.AssistantID, "err", err)
		case !ok:
			log.Info("no account bound to assistant", "assistant_id", *report.AssistantID)
		default:
			accountID = &id
		}
	} else {
		log.Warn("no assistant id in vapi payload", "call_id", report.VapiCallID)
	}

	rec := calls.Record{
		VapiCallID:      report.VapiCallID,
		AccountID:       accountID,
		AssistantID:     report.AssistantID,
		CustomerNumber:  report.CustomerNumber,
		Status:          report.Status,
		DurationSeconds: report.DurationSeconds,
		StartedAt:       report.StartedAt,
		Summary:         report.Summary,
		Transcript:      report.Transcript,
		RecordingURL:    report.RecordingURL,
		EndedReason:     report.EndedReason,
		AnalysisData:    report.Analysis,
	}

	inserted, err := h.Calls.Insert(ctx, rec)
	if err != nil {
		log.Error("call insert failed, event dropped", "call_id", report.VapiCallID, "err", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "database insert failed"})
		return
	}
	if !inserted {
		log.Info("duplicate vapi delivery suppressed by unique index", "call_id", report.VapiCallID)
		c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true, "call_id": report.VapiCallID})
		return
	}

	log.Info("vapi call stored",
		"call_id", report.VapiCallID,
		"account_id", stringOrNull(accountID),
		"assistant_id", stringOrNull(report.AssistantID),
	)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"call_id":      report.VapiCallID,
		"account_id":   accountID,
		"assistant_id": report.AssistantID,
	})
}

func stringOrNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
