package consent

import "time"

// Document is a tenant-scoped consent document collecting signatures from an
// audience derived from its targeting rule.
//
// Invariants:
// - State only moves forward; COMPLETED, CANCELLED, EXPIRED are terminal.
// - Title, body, and the targeting rule are frozen once the document leaves DRAFT.
// - CompletedAt is set exactly once, on the transition to COMPLETED.
type Document struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	Title string `json:"title" db:"title"`
	Body  string `json:"body" db:"body"`

	Target TargetRule `json:"target"`

	State DocumentState `json:"state" db:"state"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type DocumentState string

const (
	StateDraft           DocumentState = "draft"
	StatePending         DocumentState = "pending"
	StatePartiallySigned DocumentState = "partially_signed"
	StateCompleted       DocumentState = "completed"
	StateCancelled       DocumentState = "cancelled"
	StateExpired         DocumentState = "expired"
)

// Terminal reports whether no further transitions are possible.
func (s DocumentState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateExpired:
		return true
	default:
		return false
	}
}

// Open reports whether the document is accepting signatures (expiry aside).
func (s DocumentState) Open() bool {
	return s == StatePending || s == StatePartiallySigned
}

// TargetRule defines who is expected to sign. At most one rule is active:
// role and group are mutually exclusive, and both empty means unrestricted.
type TargetRule struct {
	Kind    TargetKind `json:"kind" db:"target_kind"`
	Role    string     `json:"role,omitempty" db:"target_role"`
	GroupID string     `json:"group_id,omitempty" db:"target_group_id"`
}

type TargetKind string

const (
	TargetUnrestricted TargetKind = "unrestricted"
	TargetRole         TargetKind = "role"
	TargetGroup        TargetKind = "group"
)

// SignatureRecord is an immutable attestation that a user signed a document.
// Uniqueness of (document_id, user_id) is a hard constraint.
//
// This is an attestation record, not a PKI-verified digital signature.
type SignatureRecord struct {
	ID         string `json:"id" db:"id"`
	TenantID   string `json:"tenant_id" db:"tenant_id"`
	DocumentID string `json:"document_id" db:"document_id"`
	UserID     string `json:"user_id" db:"user_id"`

	Kind SignatureKind `json:"kind" db:"kind"`

	// Artifact optionally carries a rendered mark (e.g., a data URL of the
	// drawn signature). Empty for plain accepts.
	Artifact string `json:"artifact,omitempty" db:"artifact"`

	// Capture metadata, best-effort.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string `json:"user_agent,omitempty" db:"user_agent"`

	// VerificationToken is minted fresh on every append and returned to the
	// signer as a receipt handle. It must be unpredictable.
	VerificationToken string `json:"verification_token" db:"verification_token"`

	SignedAt time.Time `json:"signed_at" db:"signed_at"`
}

type SignatureKind string

const (
	SignatureKindAccept SignatureKind = "accept" // explicit click-to-accept
	SignatureKindDrawn  SignatureKind = "drawn"  // drawn mark captured client-side
)

// Progress is the live signing progress of a document. AudienceSize is
// recomputed from current membership on every read; it is never cached.
type Progress struct {
	SignedCount  int `json:"signed_count"`
	AudienceSize int `json:"audience_size"`
}
