package accounts

import "time"

// Settings is one account's dashboard settings row.
//
// VapiAssistantID is the binding the webhook core resolves against: one
// assistant id maps to at most one account. The webhook only ever reads it;
// writes happen from the settings page.
type Settings struct {
	AccountID string `json:"account_id" db:"account_id"`

	FullName     *string `json:"full_name" db:"full_name"`
	BusinessName *string `json:"business_name" db:"business_name"`
	AvatarURL    *string `json:"avatar_url" db:"avatar_url"`

	VapiAssistantID *string `json:"vapi_assistant_id" db:"vapi_assistant_id"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
