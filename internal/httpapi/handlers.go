package httpapi

import (
	"errors"
	"net/http"
	"time"

	"consentdesk/internal/auth"
	"consentdesk/internal/consent"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Documents *consent.Service
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: Identity is supplied by an upstream identity provider; this endpoint
// exchanges an already-authenticated identity for service tokens and performs
// no credential validation of its own.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, tenant_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Documents ---

func (h Handlers) CreateDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req consent.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	doc, err := h.Documents.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h Handlers) PublishDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	doc, err := h.Documents.Publish(c.Request.Context(), tenantID, c.Param("document_id"))
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

type signRequest struct {
	Kind     string `json:"kind"`
	Artifact string `json:"artifact,omitempty"`
}

func (h Handlers) SignDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())

	var req signRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	rec, doc, err := h.Documents.Sign(c.Request.Context(), tenantID, c.Param("document_id"), userID, role, consent.SignRequest{
		Kind:      consent.SignatureKind(req.Kind),
		Artifact:  req.Artifact,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"signature": gin.H{
			"id":                 rec.ID,
			"verification_token": rec.VerificationToken,
			"signed_at":          rec.SignedAt,
		},
		"document_state": doc.State,
	})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h Handlers) CancelDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	doc, err := h.Documents.Cancel(c.Request.Context(), tenantID, c.Param("document_id"), userID, role, c.ClientIP(), req.Reason)
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h Handlers) CloseDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())

	doc, err := h.Documents.Close(c.Request.Context(), tenantID, c.Param("document_id"), userID, role, c.ClientIP())
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h Handlers) GetDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	doc, progress, err := h.Documents.Get(c.Request.Context(), tenantID, c.Param("document_id"))
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc, "progress": progress})
}

func (h Handlers) ListDocuments(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	docs, err := h.Documents.List(c.Request.Context(), tenantID)
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h Handlers) ListSignatures(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	sigs, err := h.Documents.Signatures(c.Request.Context(), tenantID, c.Param("document_id"))
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signatures": sigs})
}

func (h Handlers) GetReceipt(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	rec, err := h.Documents.Receipt(c.Request.Context(), tenantID, c.Param("token"))
	if err != nil {
		respondConsentError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) tenant(c *gin.Context) (string, bool) {
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return "", false
	}
	return tenantID, true
}

// respondConsentError maps typed consent outcomes to specific responses so the
// calling interface can render non-alarming messages for benign conditions.
func respondConsentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, consent.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "document not found", "code": "not_found"})
	case errors.Is(err, consent.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not eligible to sign this document", "code": "not_eligible"})
	case errors.Is(err, consent.ErrAlreadySigned):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "you have already signed this document", "code": "already_signed"})
	case errors.Is(err, consent.ErrExpired):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "this document has expired", "code": "expired"})
	case errors.Is(err, consent.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "document is not accepting this operation", "code": "invalid_state"})
	case errors.Is(err, consent.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid document or targeting rule", "code": "validation_failed"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
