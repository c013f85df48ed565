package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("calls: not found")

// Store is the persistence contract consumed by the webhook handler and the
// dashboard API. Implementations must treat VapiCallID as the dedup key.
type Store interface {
	// Insert writes one record. A duplicate vapi_call_id is not an error:
	// the insert is skipped and inserted=false is returned.
	Insert(ctx context.Context, rec Record) (inserted bool, err error)

	ListByAccount(ctx context.Context, accountID string, q ListQuery) ([]Record, error)
	GetByAccount(ctx context.Context, accountID, id string) (Record, error)

	ListOrphans(ctx context.Context, limit int) ([]Record, error)
	Reattach(ctx context.Context, tx *sql.Tx, vapiCallID, accountID string) error
}

// Repository is the Postgres-backed Store.
//
// NOTE: assumes a calls table with UNIQUE (vapi_call_id). The unique index is
// what makes at-least-once webhook delivery safe end to end.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

const recordColumns = `
id, vapi_call_id, account_id, assistant_id, customer_number, status,
duration_seconds, started_at, summary, transcript, recording_url,
ended_reason, analysis_data, created_at
`

func (r *Repository) Insert(ctx context.Context, rec Record) (bool, error) {
	if rec.VapiCallID == "" {
		return false, errors.New("calls: vapi_call_id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	const q = `
INSERT INTO calls (
  id, vapi_call_id, account_id, assistant_id, customer_number, status,
  duration_seconds, started_at, summary, transcript, recording_url,
  ended_reason, analysis_data, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)
ON CONFLICT (vapi_call_id) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.VapiCallID,
		rec.AccountID,
		rec.AssistantID,
		rec.CustomerNumber,
		rec.Status,
		rec.DurationSeconds,
		rec.StartedAt,
		rec.Summary,
		rec.Transcript,
		rec.RecordingURL,
		rec.EndedReason,
		nullableJSON(rec.AnalysisData),
		rec.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) ListByAccount(ctx context.Context, accountID string, q ListQuery) ([]Record, error) {
	q = q.withDefaults()

	const base = `
SELECT ` + recordColumns + `
FROM calls
WHERE account_id = $1
  AND ($2 = '' OR customer_number ILIKE '%' || $2 || '%' OR summary ILIKE '%' || $2 || '%')
ORDER BY started_at DESC NULLS LAST, created_at DESC
LIMIT $3 OFFSET $4
`
	rows, err := r.db.QueryContext(ctx, base, accountID, q.Search, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *Repository) GetByAccount(ctx context.Context, accountID, id string) (Record, error) {
	const q = `
SELECT ` + recordColumns + `
FROM calls
WHERE account_id = $1 AND id = $2
`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, accountID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *Repository) ListOrphans(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT ` + recordColumns + `
FROM calls
WHERE account_id IS NULL
ORDER BY created_at DESC
LIMIT $1
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Reattach assigns an orphan record to an account. It refuses to move a
// record that already belongs to someone; re-owning is a different, manual
// operation.
func (r *Repository) Reattach(ctx context.Context, tx *sql.Tx, vapiCallID, accountID string) error {
	const q = `
UPDATE calls
SET account_id = $2
WHERE vapi_call_id = $1 AND account_id IS NULL
`
	res, err := tx.ExecContext(ctx, q, vapiCallID, accountID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var analysis []byte
	err := row.Scan(
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
	)
	if err != nil {
		return Record{}, err
	}
	if len(analysis) > 0 {
		rec.AnalysisData = analysis
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
