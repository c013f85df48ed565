package reporting

import (
	"context"
	"errors"
	"math"
	"time"

	"trivehive/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Implementations must enforce account scoping; summaries never mix tenants.
type Repository interface {
	ListCalls(ctx context.Context, accountID string, from, to time.Time) ([]calls.Record, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.AccountID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.AccountID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{AccountID: req.AccountID}
	for _, rec := range rows {
		out.TotalCalls++
		if rec.DurationSeconds != nil {
			out.TotalDurationSeconds += *rec.DurationSeconds
		}
		if rec.RecordingURL != nil && *rec.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch calls.Display(rec.Status) {
		case calls.DisplaySuccess:
			out.CompletedCalls++
		case calls.DisplayVoicemail:
			out.VoicemailCalls++
		default:
			out.FailedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / int64(out.TotalCalls)
		rate := float64(out.CompletedCalls) / float64(out.TotalCalls) * 100
		out.SuccessRatePercent = math.Round(rate*10) / 10
	}
	return out, nil
}
