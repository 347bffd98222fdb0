package gateway

import (
	"errors"
	"io"
	"net/http"

	"courseledger/internal/modules/reconcile"
	"courseledger/internal/pkg/response"
	pkgvalidator "courseledger/internal/pkg/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Gateway-Signature"

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/gateway/webhook", h.Webhook)
	rg.POST("/payments/initiate", h.InitiatePayment)
	rg.GET("/payments/pending/:reference_id", h.PendingStatus)
}

// Webhook receives gateway notifications. 2xx acknowledges the delivery;
// 5xx asks the gateway to redeliver, which the reconciler's idempotency
// makes safe.
func (h *Handler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "unreadable body")
		return
	}

	outcome, err := h.service.HandleWebhook(c.Request.Context(), rawBody, c.GetHeader(SignatureHeader))
	if err != nil {
		h.loggerf("msg=webhook rejected err=%v", err)
		switch {
		case errors.Is(err, ErrSignatureInvalid):
			response.Error(c, http.StatusUnauthorized, "SIGNATURE_INVALID", "webhook signature verification failed")
		case errors.Is(err, ErrMalformedPayload):
			response.Error(c, http.StatusBadRequest, "MALFORMED_PAYLOAD", "could not parse webhook payload")
		case errors.Is(err, reconcile.ErrRenewalWithoutEnrollment):
			response.Error(c, http.StatusUnprocessableEntity, "RENEWAL_WITHOUT_ENROLLMENT", "renewal payment for unknown student")
		case errors.Is(err, reconcile.ErrStoreUnavailable), errors.Is(err, reconcile.ErrStoreConflict):
			response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "temporary storage failure, please redeliver")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		}
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

func (h *Handler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	if fieldErrs := pkgvalidator.Validate(req); fieldErrs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "invalid payment request", fieldErrs)
		return
	}

	p, err := h.service.InitiatePayment(c.Request.Context(), req)
	if err != nil {
		h.loggerf("msg=initiate payment failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not create payment")
		return
	}
	response.Success(c, http.StatusCreated, InitiatePaymentResponse{ReferenceID: p.ReferenceID, Status: string(p.Status)})
}

func (h *Handler) PendingStatus(c *gin.Context) {
	p, err := h.service.GetPendingPayment(c.Request.Context(), c.Param("reference_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "unknown reference id")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	response.Success(c, http.StatusOK, p)
}
