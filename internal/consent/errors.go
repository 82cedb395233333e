package consent

import "errors"

// Expected outcomes of the consent workflow. These are typed conditions the
// HTTP layer maps to specific responses; only storage failures propagate as
// plain wrapped errors.
var (
	// ErrNotFound: document (or signature) does not resolve within the tenant.
	ErrNotFound = errors.New("consent: not found")

	// ErrUnauthorized: the eligibility guard rejected the signer.
	ErrUnauthorized = errors.New("consent: not eligible to sign")

	// ErrAlreadySigned: duplicate signature attempt. Benign; the first
	// signature stands and nothing changed.
	ErrAlreadySigned = errors.New("consent: already signed")

	// ErrInvalidState: the operation is not allowed in the document's current
	// lifecycle state (signing a draft, cancelling a completed document, ...).
	ErrInvalidState = errors.New("consent: invalid document state")

	// ErrExpired: the sign attempt arrived after expires_at. The document has
	// been moved to EXPIRED as a side effect of the rejected attempt.
	ErrExpired = errors.New("consent: document expired")

	// ErrValidation: malformed targeting rule or request payload.
	ErrValidation = errors.New("consent: validation failed")
)
