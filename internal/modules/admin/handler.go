package admin

import (
	"errors"
	"net/http"
	"strconv"

	"courseledger/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ledgers", h.ListLedgers)
	rg.GET("/ledgers/:email", h.GetLedger)
}

func (h *Handler) GetLedger(c *gin.Context) {
	ledger, err := h.service.GetLedger(c.Request.Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, ErrLedgerNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "no ledger for that email")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	response.Success(c, http.StatusOK, ledger)
}

func (h *Handler) ListLedgers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ledgers, err := h.service.ListLedgers(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	response.Success(c, http.StatusOK, ledgers)
}
