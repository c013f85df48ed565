package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Audit is internal-only; these records are not exposed to dashboard users.
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorAccountID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogReattach records an orphan call being assigned to an account by an
// operator.
func (s *Service) LogReattach(ctx context.Context, actorAccountID, actorRole, ip, vapiCallID, targetAccountID string) error {
	return s.Append(ctx, Event{
		Type:            EventTypeCallReattach,
		ActorAccountID:  actorAccountID,
		ActorRole:       actorRole,
		IPAddress:       ip,
		VapiCallID:      vapiCallID,
		TargetAccountID: targetAccountID,
		Message:         "orphan call reattached",
	})
}
