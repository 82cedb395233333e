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
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort; a failed append must never
//   roll back a committed signature.

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
	if e.TenantID == "" {
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

// LogSignature records a successful signature append.
func (s *Service) LogSignature(ctx context.Context, tenantID, actorUserID, actorRole, ip, documentID, signatureID string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeSignature,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		DocumentID:  documentID,
		SignatureID: signatureID,
		Message:     "signature recorded",
	})
}

// LogAdminAction records a privileged document action (cancel, close),
// including those performed by hidden roles.
func (s *Service) LogAdminAction(ctx context.Context, tenantID, actorUserID, actorRole, ip, documentID, message, metadata string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeAdminAction,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		DocumentID:  documentID,
		Message:     message,
		Metadata:    metadata,
	})
}
