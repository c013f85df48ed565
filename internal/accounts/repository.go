package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("accounts: not found")

// Resolver is the narrow read contract the webhook handler consumes.
// Three outcomes matter to ingestion: found, not found (ok=false, err=nil),
// and infrastructure failure (err != nil).
type Resolver interface {
	AccountIDByAssistantID(ctx context.Context, assistantID string) (accountID string, ok bool, err error)
}

// Store is the full settings contract used by the dashboard API.
type Store interface {
	Resolver

	GetByAccount(ctx context.Context, accountID string) (Settings, error)
	UpdateProfile(ctx context.Context, accountID string, fullName, businessName *string) error
	UpsertAssistantID(ctx context.Context, accountID, assistantID string) error
}

// Repository is the Postgres-backed Store.
//
// NOTE: assumes an account_settings table with UNIQUE (vapi_assistant_id),
// which is what makes the assistant -> account mapping one-to-one.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) AccountIDByAssistantID(ctx context.Context, assistantID string) (string, bool, error) {
	const q = `
SELECT account_id
FROM account_settings
WHERE vapi_assistant_id = $1
`
	var accountID string
	if err := r.db.QueryRowContext(ctx, q, assistantID).Scan(&accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return accountID, true, nil
}

func (r *Repository) GetByAccount(ctx context.Context, accountID string) (Settings, error) {
	const q = `
SELECT account_id, full_name, business_name, avatar_url, vapi_assistant_id, updated_at
FROM account_settings
WHERE account_id = $1
`
	var s Settings
	err := r.db.QueryRowContext(ctx, q, accountID).Scan(
		&s.AccountID,
		&s.FullName,
		&s.BusinessName,
		&s.AvatarURL,
		&s.VapiAssistantID,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, err
	}
	return s, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, accountID string, fullName, businessName *string) error {
	const q = `
INSERT INTO account_settings (account_id, full_name, business_name, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (account_id)
DO UPDATE SET full_name     = COALESCE(EXCLUDED.full_name, account_settings.full_name),
              business_name = COALESCE(EXCLUDED.business_name, account_settings.business_name),
              updated_at    = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q, accountID, fullName, businessName, time.Now().UTC())
	return err
}

func (r *Repository) UpsertAssistantID(ctx context.Context, accountID, assistantID string) error {
	if assistantID == "" {
		return errors.New("accounts: assistant id is required")
	}
	const q = `
INSERT INTO account_settings (account_id, vapi_assistant_id, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (account_id)
DO UPDATE SET vapi_assistant_id = EXCLUDED.vapi_assistant_id,
              updated_at        = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q, accountID, assistantID, time.Now().UTC())
	return err
}
