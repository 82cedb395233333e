package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"consentdesk/internal/audit"
	"consentdesk/internal/auth"
	"consentdesk/internal/consent"
	"consentdesk/internal/membership"
	"consentdesk/internal/notify"
	"consentdesk/internal/rbac"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *membership.MemoryRoster) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	roster := membership.NewMemoryRoster()
	svc := consent.NewService(consent.NewMemoryStore(), roster, notify.NewMemorySink(), audit.NewService(audit.NewMemoryRepo()))
	h := Handlers{Documents: svc}

	// Stub identity injection in place of the JWT middleware.
	identity := func(userID, tenantID, role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), userID, tenantID, role))
			c.Next()
		}
	}

	r := gin.New()
	docs := r.Group("/v1/documents", identity("u1", "tn", rbac.RoleGuardian))
	docs.POST("", h.CreateDocument)
	docs.POST("/:document_id/publish", h.PublishDocument)
	docs.POST("/:document_id/sign", h.SignDocument)
	docs.GET("/:document_id", h.GetDocument)
	return r, roster
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/documents", gin.H{"title": "Photo consent"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var doc struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.State != "draft" {
		t.Fatalf("expected draft, got %s", doc.State)
	}

	// Signing a draft is a state conflict, not a 500.
	w = doJSON(t, r, http.MethodPost, "/v1/documents/"+doc.ID+"/sign", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("sign draft: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/v1/documents/"+doc.ID+"/publish", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/v1/documents/"+doc.ID+"/sign", gin.H{"kind": "accept"})
	if w.Code != http.StatusCreated {
		t.Fatalf("sign: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var signed struct {
		Signature struct {
			ID                string `json:"id"`
			VerificationToken string `json:"verification_token"`
		} `json:"signature"`
		DocumentState string `json:"document_state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &signed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if signed.Signature.VerificationToken == "" {
		t.Fatalf("expected verification token in response")
	}
	if signed.DocumentState != "partially_signed" {
		t.Fatalf("expected partially_signed, got %s", signed.DocumentState)
	}

	// Duplicate over HTTP maps to 409 with a stable code.
	w = doJSON(t, r, http.MethodPost, "/v1/documents/"+doc.ID+"/sign", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate sign: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "already_signed" {
		t.Fatalf("expected code already_signed, got %q", body.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	r, roster := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/documents/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	// Bad targeting rule -> 400 with a validation code.
	w = doJSON(t, r, http.MethodPost, "/v1/documents", gin.H{
		"title":  "x",
		"target": gin.H{"kind": "group", "group_id": "no-such-group"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// Role-targeted document the caller is not eligible for -> 403.
	roster.AddUserWithRole("tn", rbac.RoleTeacher, "t1")
	w = doJSON(t, r, http.MethodPost, "/v1/documents", gin.H{
		"title":  "Staff only",
		"target": gin.H{"kind": "role", "role": rbac.RoleTeacher},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w := doJSON(t, r, http.MethodPost, "/v1/documents/"+doc.ID+"/publish", nil); w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/v1/documents/"+doc.ID+"/sign", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for ineligible signer, got %d: %s", w.Code, w.Body.String())
	}
}
