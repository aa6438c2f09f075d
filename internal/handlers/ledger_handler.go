package handlers

import (
	"net/http"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles points and voucher HTTP requests
type LedgerHandler struct {
	ledger *services.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Catalog handles GET /vouchers/catalog
func (h *LedgerHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Catalog())
}

type redeemRequest struct {
	PointsCost int `json:"pointsCost" binding:"required,gt=0"`
}

// Redeem handles POST /vouchers
func (h *LedgerHandler) Redeem(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.ledger.RedeemVoucher(c.Request.Context(), user, req.PointsCost)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListVouchers handles GET /vouchers
func (h *LedgerHandler) ListVouchers(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	vouchers, err := h.ledger.ListVouchers(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	if vouchers == nil {
		vouchers = []*models.Voucher{}
	}
	c.JSON(http.StatusOK, vouchers)
}

// UseVoucher handles POST /vouchers/:id/use
func (h *LedgerHandler) UseVoucher(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	voucher, err := h.ledger.UseVoucher(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, voucher)
}

// PointsHistory handles GET /points/history
func (h *LedgerHandler) PointsHistory(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	txs, err := h.ledger.PointsHistory(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	if txs == nil {
		txs = []*models.PointTransaction{}
	}
	c.JSON(http.StatusOK, txs)
}

// PointsSummary handles GET /points
func (h *LedgerHandler) PointsSummary(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	summary, err := h.ledger.PointsSummary(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
