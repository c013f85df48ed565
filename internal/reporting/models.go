package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests the aggregated call metrics behind the
// overview page. Tenancy: AccountID is required.
type CallsSummaryRequest struct {
	AccountID string    `json:"account_id"`
	Range     TimeRange `json:"range"`
}

type CallsSummary struct {
	AccountID string `json:"account_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	VoicemailCalls int `json:"voicemail_calls"`

	TotalDurationSeconds   int64 `json:"total_duration_seconds"`
	AverageDurationSeconds int64 `json:"average_duration_seconds"`

	RecordedCalls int `json:"recorded_calls"`

	// SuccessRatePercent is completed over total, 0 when there are no calls.
	SuccessRatePercent float64 `json:"success_rate_percent"`
}
