package consent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"consentdesk/internal/audit"
	"consentdesk/internal/membership"
	"consentdesk/internal/notify"
	"consentdesk/internal/rbac"
	"consentdesk/pkg/logger"

	"github.com/google/uuid"
)

// Service drives the document consent lifecycle.
//
// Signing invariants:
// - One signature per (document, user), enforced inside the same atomic unit
//   that records the signature.
// - Completion is decided by recounting ledger rows against the live audience
//   inside that unit; there is no separate counter to reconcile.
// - Completion is monotonic and final. Audience growth after COMPLETED does
//   not reopen a document.
// - Events and audit records are dispatched after commit, best-effort; their
//   failure never rolls back a signature.
type Service struct {
	store    Store
	audience *AudienceResolver
	guard    *EligibilityGuard
	roster   membership.Roster
	events   notify.Sink
	audits   *audit.Service

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, roster membership.Roster, events notify.Sink, audits *audit.Service) *Service {
	return &Service{
		store:    store,
		audience: NewAudienceResolver(roster),
		guard:    NewEligibilityGuard(roster),
		roster:   roster,
		events:   events,
		audits:   audits,
		clock:    time.Now,
	}
}

type CreateRequest struct {
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Target    TargetRule `json:"target"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Create stores a new document in DRAFT. The targeting rule is validated here
// and again at publish time; a group outside the tenant or an unrecognized
// role never reaches PENDING.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (Document, error) {
	if tenantID == "" || req.Title == "" {
		return Document{}, ErrValidation
	}

	now := s.clock().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return Document{}, ErrValidation
	}
	if req.Target.Kind == "" {
		req.Target.Kind = TargetUnrestricted
	}
	if err := s.validateTarget(ctx, tenantID, req.Target); err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Title:     req.Title,
		Body:      req.Body,
		Target:    req.Target,
		State:     StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// Publish moves DRAFT to PENDING. One-way gate: title, body, and the targeting
// rule are frozen from here on.
func (s *Service) Publish(ctx context.Context, tenantID, documentID string) (Document, error) {
	var out Document
	err := s.store.Mutate(ctx, tenantID, documentID, func(ctx context.Context, tx DocumentTx) error {
		doc := tx.Document()
		if doc.State != StateDraft {
			return ErrInvalidState
		}
		if err := s.validateTarget(ctx, tenantID, doc.Target); err != nil {
			return err
		}
		now := s.clock().UTC()
		if err := tx.SetState(ctx, StatePending, nil, now); err != nil {
			return err
		}
		out = doc
		out.State = StatePending
		out.UpdatedAt = now
		return nil
	})
	return out, err
}

type SignRequest struct {
	Kind     SignatureKind `json:"kind"`
	Artifact string        `json:"artifact,omitempty"`

	// Capture metadata, supplied by the HTTP layer.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Sign records one user's signature and re-evaluates completion, all inside a
// single atomic unit serialized on the document. Concurrent attempts by the
// same user yield exactly one ledger entry; concurrent "final" signatures
// cannot both decide they are not (or both are) the completing one.
func (s *Service) Sign(ctx context.Context, tenantID, documentID, userID, role string, req SignRequest) (SignatureRecord, Document, error) {
	if tenantID == "" || documentID == "" || userID == "" {
		return SignatureRecord{}, Document{}, ErrValidation
	}
	switch req.Kind {
	case "":
		req.Kind = SignatureKindAccept
	case SignatureKindAccept, SignatureKindDrawn:
	default:
		return SignatureRecord{}, Document{}, ErrValidation
	}

	now := s.clock().UTC()

	var (
		outRec   SignatureRecord
		outDoc   Document
		outcome  error // typed condition decided inside the transaction
		progress Progress
	)

	err := s.store.Mutate(ctx, tenantID, documentID, func(ctx context.Context, tx DocumentTx) error {
		doc := tx.Document()
		outDoc = doc

		if !doc.State.Open() {
			// A repeat attempt by someone who already signed stays the benign
			// AlreadySigned condition even after the document closed; only
			// users with no signature on record get the state conflict.
			if _, exists, err := tx.FindSignature(ctx, userID); err != nil {
				return err
			} else if exists {
				return ErrAlreadySigned
			}
			return ErrInvalidState
		}

		// Lazy expiration: the attempt that discovers the deadline has passed
		// commits the EXPIRED transition and is itself rejected.
		if doc.ExpiresAt != nil && now.After(*doc.ExpiresAt) {
			if err := tx.SetState(ctx, StateExpired, nil, now); err != nil {
				return err
			}
			count, err := tx.CountSignatures(ctx)
			if err != nil {
				return err
			}
			progress.SignedCount = count
			outDoc.State = StateExpired
			outDoc.UpdatedAt = now
			outcome = ErrExpired
			return nil
		}

		ok, err := s.guard.CanSign(ctx, doc, userID, role)
		if err != nil {
			return fmt.Errorf("eligibility check: %w", err)
		}
		if !ok {
			return ErrUnauthorized
		}

		// Duplicate check and append share the transaction; the unique
		// (document_id, user_id) constraint is the storage-level backstop.
		if _, exists, err := tx.FindSignature(ctx, userID); err != nil {
			return err
		} else if exists {
			return ErrAlreadySigned
		}

		token, err := newVerificationToken()
		if err != nil {
			return err
		}
		rec := SignatureRecord{
			ID:                uuid.NewString(),
			TenantID:          tenantID,
			DocumentID:        documentID,
			UserID:            userID,
			Kind:              req.Kind,
			Artifact:          req.Artifact,
			IPAddress:         req.IPAddress,
			UserAgent:         req.UserAgent,
			VerificationToken: token,
			SignedAt:          now,
		}
		if err := tx.InsertSignature(ctx, rec); err != nil {
			return err
		}

		count, err := tx.CountSignatures(ctx)
		if err != nil {
			return err
		}
		// Audience is recomputed from live membership on every evaluation,
		// never snapshotted at publish time.
		aud, err := s.audience.Resolve(ctx, doc)
		if err != nil {
			return fmt.Errorf("resolve audience: %w", err)
		}
		progress = Progress{SignedCount: count, AudienceSize: len(aud)}

		next := StatePartiallySigned
		var completedAt *time.Time
		if len(aud) > 0 && count >= len(aud) {
			next = StateCompleted
			completedAt = &now
		}
		if next != doc.State || completedAt != nil {
			if err := tx.SetState(ctx, next, completedAt, now); err != nil {
				return err
			}
		}

		outRec = rec
		outDoc.State = next
		outDoc.UpdatedAt = now
		outDoc.CompletedAt = completedAt
		return nil
	})
	if err != nil {
		return SignatureRecord{}, outDoc, err
	}
	if outcome != nil {
		// The EXPIRED transition committed; surface the typed condition. The
		// audience lookup here is read-only and best-effort, the event goes
		// out either way.
		if aud, err := s.audience.Resolve(ctx, outDoc); err == nil {
			progress.AudienceSize = len(aud)
		}
		s.emit(ctx, notify.EventExpired, outDoc, progress)
		return SignatureRecord{}, outDoc, outcome
	}

	evType := notify.EventPartiallySigned
	if outDoc.State == StateCompleted {
		evType = notify.EventCompleted
	}
	s.emit(ctx, evType, outDoc, progress)
	if s.audits != nil {
		if err := s.audits.LogSignature(ctx, tenantID, userID, role, req.IPAddress, documentID, outRec.ID); err != nil {
			logger.From(ctx).Warn("audit append failed", "document_id", documentID, "err", err)
		}
	}

	return outRec, outDoc, nil
}

// Cancel moves a non-terminal document to CANCELLED. RBAC gating happens at
// the HTTP layer; actor details are taken here for the audit trail.
func (s *Service) Cancel(ctx context.Context, tenantID, documentID, actorUserID, actorRole, actorIP, reason string) (Document, error) {
	var out Document
	err := s.store.Mutate(ctx, tenantID, documentID, func(ctx context.Context, tx DocumentTx) error {
		doc := tx.Document()
		if doc.State.Terminal() {
			return ErrInvalidState
		}
		now := s.clock().UTC()
		if err := tx.SetState(ctx, StateCancelled, nil, now); err != nil {
			return err
		}
		out = doc
		out.State = StateCancelled
		out.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	s.emit(ctx, notify.EventCancelled, out, Progress{})
	if s.audits != nil {
		meta := fmt.Sprintf(`{"reason":%q}`, reason)
		if err := s.audits.LogAdminAction(ctx, tenantID, actorUserID, actorRole, actorIP, documentID, "document cancelled", meta); err != nil {
			logger.From(ctx).Warn("audit append failed", "document_id", documentID, "err", err)
		}
	}
	return out, nil
}

// Close completes a document by administrative decision. This is the manual
// closure path for unrestricted documents, which have no quorum and never
// complete by headcount.
func (s *Service) Close(ctx context.Context, tenantID, documentID, actorUserID, actorRole, actorIP string) (Document, error) {
	var out Document
	var progress Progress
	err := s.store.Mutate(ctx, tenantID, documentID, func(ctx context.Context, tx DocumentTx) error {
		doc := tx.Document()
		if !doc.State.Open() {
			return ErrInvalidState
		}
		now := s.clock().UTC()
		if err := tx.SetState(ctx, StateCompleted, &now, now); err != nil {
			return err
		}
		count, err := tx.CountSignatures(ctx)
		if err != nil {
			return err
		}
		progress = Progress{SignedCount: count}
		out = doc
		out.State = StateCompleted
		out.UpdatedAt = now
		out.CompletedAt = &now
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	s.emit(ctx, notify.EventCompleted, out, progress)
	if s.audits != nil {
		if err := s.audits.LogAdminAction(ctx, tenantID, actorUserID, actorRole, actorIP, documentID, "document closed", ""); err != nil {
			logger.From(ctx).Warn("audit append failed", "document_id", documentID, "err", err)
		}
	}
	return out, nil
}

// Get returns the document with its live signing progress.
func (s *Service) Get(ctx context.Context, tenantID, documentID string) (Document, Progress, error) {
	doc, err := s.store.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return Document{}, Progress{}, err
	}
	count, err := s.store.CountSignatures(ctx, tenantID, documentID)
	if err != nil {
		return Document{}, Progress{}, err
	}
	aud, err := s.audience.Resolve(ctx, doc)
	if err != nil {
		return Document{}, Progress{}, err
	}
	return doc, Progress{SignedCount: count, AudienceSize: len(aud)}, nil
}

// List returns all documents of the tenant.
func (s *Service) List(ctx context.Context, tenantID string) ([]Document, error) {
	return s.store.ListDocuments(ctx, tenantID)
}

// Signatures returns the signature roster of a document.
func (s *Service) Signatures(ctx context.Context, tenantID, documentID string) ([]SignatureRecord, error) {
	if _, err := s.store.GetDocument(ctx, tenantID, documentID); err != nil {
		return nil, err
	}
	return s.store.ListSignatures(ctx, tenantID, documentID)
}

// Receipt resolves a signature by its verification token.
func (s *Service) Receipt(ctx context.Context, tenantID, token string) (SignatureRecord, error) {
	rec, ok, err := s.store.FindSignatureByToken(ctx, tenantID, token)
	if err != nil {
		return SignatureRecord{}, err
	}
	if !ok {
		return SignatureRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *Service) validateTarget(ctx context.Context, tenantID string, rule TargetRule) error {
	switch rule.Kind {
	case TargetUnrestricted:
		if rule.Role != "" || rule.GroupID != "" {
			return ErrValidation
		}
		return nil
	case TargetRole:
		if rule.GroupID != "" || !rbac.IsSignableRole(rule.Role) {
			return ErrValidation
		}
		return nil
	case TargetGroup:
		if rule.Role != "" || rule.GroupID == "" {
			return ErrValidation
		}
		ok, err := s.roster.GroupExists(ctx, tenantID, rule.GroupID)
		if err != nil {
			return fmt.Errorf("group lookup: %w", err)
		}
		if !ok {
			return ErrValidation
		}
		return nil
	default:
		return ErrValidation
	}
}

func (s *Service) emit(ctx context.Context, typ notify.EventType, doc Document, progress Progress) {
	if s.events == nil {
		return
	}
	e := notify.Event{
		Type:         typ,
		TenantID:     doc.TenantID,
		DocumentID:   doc.ID,
		Title:        doc.Title,
		SignedCount:  progress.SignedCount,
		AudienceSize: progress.AudienceSize,
		OccurredAt:   s.clock().UTC(),
	}
	if err := s.events.Publish(ctx, e); err != nil {
		logger.From(ctx).Warn("event publish failed", "type", string(typ), "document_id", doc.ID, "err", err)
	}
}

// newVerificationToken mints an unpredictable receipt token. uuid would be
// unique but is not specified to be cryptographically random; the token is a
// capability handle, so crypto/rand it is.
func newVerificationToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
