package reporting

import (
	"context"
	"database/sql"
	"time"

	"trivehive/internal/calls"
)

// CallsRepo reads call rows for summaries straight from the calls table.
//
// Rows with a NULL started_at fall back to created_at for range filtering so
// calls that arrived without a start timestamp still count toward the window
// in which they were received.
type CallsRepo struct {
	db *sql.DB
}

func NewCallsRepo(db *sql.DB) *CallsRepo { return &CallsRepo{db: db} }

func (r *CallsRepo) ListCalls(ctx context.Context, accountID string, from, to time.Time) ([]calls.Record, error) {
	const q = `
SELECT
  id, vapi_call_id, account_id, assistant_id, customer_number, status,
  duration_seconds, started_at, summary, transcript, recording_url,
  ended_reason, analysis_data, created_at
FROM calls
WHERE account_id = $1
  AND COALESCE(started_at, created_at) >= $2
  AND COALESCE(started_at, created_at) < $3
ORDER BY COALESCE(started_at, created_at)
`
	rows, err := r.db.QueryContext(ctx, q, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calls.Record
	for rows.Next() {
		var rec calls.Record
		var analysis []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.VapiCallID,
			&rec.AccountID,
			&rec.AssistantID,
			&rec.CustomerNumber,
			&rec.Status,
			&rec.DurationSeconds,
			&rec.StartedAt,
			&rec.Summary,
			&rec.Transcript,
			&rec.RecordingURL,
			&rec.EndedReason,
			&analysis,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(analysis) > 0 {
			rec.AnalysisData = analysis
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
