package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"courseledger/internal/modules/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	NewHandler(svc, nil).RegisterRoutes(v1)
	return r
}

func TestWebhookEndpoint_Applied(t *testing.T) {
	rec := &fakeReconciler{outcome: reconcile.Outcome{Status: reconcile.OutcomeApplied, Slot: 1}}
	r := setupRouter(NewService(&fakePendingRepo{}, rec, testSecret, nil))

	body := capturedWebhookBody()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/gateway/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, sign(body, testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
			Slot   int    `json:"slot"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "applied", resp.Data.Status)
	assert.Equal(t, 1, resp.Data.Slot)
}

func TestWebhookEndpoint_BadSignature(t *testing.T) {
	rec := &fakeReconciler{}
	r := setupRouter(NewService(&fakePendingRepo{}, rec, testSecret, nil))

	body := capturedWebhookBody()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/gateway/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "bad")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, rec.calls)
}

func TestWebhookEndpoint_RenewalWithoutEnrollmentIsNotRetryable(t *testing.T) {
	rec := &fakeReconciler{
		outcome: reconcile.Outcome{Status: reconcile.OutcomeError, Reason: reconcile.ReasonRenewalWithoutEnrollment},
		err:     reconcile.ErrRenewalWithoutEnrollment,
	}
	r := setupRouter(NewService(&fakePendingRepo{}, rec, "", nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/gateway/webhook", bytes.NewReader(capturedWebhookBody()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWebhookEndpoint_StoreUnavailableAsksForRedelivery(t *testing.T) {
	rec := &fakeReconciler{
		outcome: reconcile.Outcome{Status: reconcile.OutcomeError, Reason: reconcile.ReasonStoreUnavailable},
		err:     reconcile.ErrStoreUnavailable,
	}
	r := setupRouter(NewService(&fakePendingRepo{}, rec, "", nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/gateway/webhook", bytes.NewReader(capturedWebhookBody()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInitiateEndpoint(t *testing.T) {
	repo := &fakePendingRepo{}
	r := setupRouter(NewService(repo, &fakeReconciler{}, "", nil))

	body := []byte(`{
		"name": "Asha Verma",
		"email": "asha@example.com",
		"mobile": "9876543210",
		"course_name": "Agentic AI",
		"amount": 2999,
		"currency": "INR"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Data InitiatePaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.ReferenceID)
	assert.Equal(t, "created", resp.Data.Status)
}

func TestInitiateEndpoint_ValidationFailure(t *testing.T) {
	r := setupRouter(NewService(&fakePendingRepo{}, &fakeReconciler{}, "", nil))

	body := []byte(`{"name": "Asha", "email": "not-an-email", "mobile": "1", "course_name": "c", "amount": 10, "currency": "INR"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPendingStatusEndpoint_NotFound(t *testing.T) {
	r := setupRouter(NewService(&fakePendingRepo{}, &fakeReconciler{}, "", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/pending/does-not-exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
