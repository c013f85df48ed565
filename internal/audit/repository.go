package audit

import (
	"context"
	"database/sql"
)

// PostgresRepository appends events to the audit_events table.
// INSERT-only; the schema should forbid UPDATE and DELETE.
type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository { return &PostgresRepository{db: db} }

func (r *PostgresRepository) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_account_id, actor_role, ip_address,
  vapi_call_id, target_account_id, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorAccountID,
		nullIfEmpty(e.ActorRole),
		nullIfEmpty(e.IPAddress),
		nullIfEmpty(e.VapiCallID),
		nullIfEmpty(e.TargetAccountID),
		nullIfEmpty(e.Message),
		nullIfEmpty(e.Metadata),
		e.CreatedAt,
	)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
