package handlers

import (
	"context"
	"net/http"
	"strconv"

	"investment-bot/internal/auth"
	"investment-bot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AdminHandler struct {
	confirmation *services.ConfirmationService
	investments  *services.InvestmentService
	ledger       *services.LedgerService
	admin        *services.AdminService
	logger       *zap.Logger
}

func NewAdminHandler(
	confirmation *services.ConfirmationService,
	investments *services.InvestmentService,
	ledger *services.LedgerService,
	admin *services.AdminService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		confirmation: confirmation,
		investments:  investments,
		ledger:       ledger,
		admin:        admin,
		logger:       logger.Named("admin_handler"),
	}
}

func investmentIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid investment ID"})
		return 0, false
	}
	return uint(id), true
}

// ConfirmInvestment activates a pending investment
func (h *AdminHandler) ConfirmInvestment(c *gin.Context) {
	h.decide(c, h.confirmation.Confirm)
}

// RejectInvestment rejects a pending investment
func (h *AdminHandler) RejectInvestment(c *gin.Context) {
	h.decide(c, h.confirmation.Reject)
}

type decisionFunc func(ctx context.Context, investmentID uint, adminID int64) (services.ConfirmationResult, error)

func (h *AdminHandler) decide(c *gin.Context, decide decisionFunc) {
	adminID, _ := auth.GetUserID(c)
	id, ok := investmentIDParam(c)
	if !ok {
		return
	}

	result, err := decide(c.Request.Context(), id, adminID)
	if err != nil {
		h.logger.Warn("decision failed", zap.Uint("investment_id", id), zap.Int64("admin_id", adminID), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetPendingInvestments lists investments awaiting a decision
func (h *AdminHandler) GetPendingInvestments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	pending, err := h.investments.ListPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pending,
		"total":   len(pending),
	})
}

// AdjustBalance applies a manual balance correction
func (h *AdminHandler) AdjustBalance(c *gin.Context) {
	adminID, _ := auth.GetUserID(c)
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req struct {
		Operation string          `json:"operation" binding:"required"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	op, err := services.ParseBalanceOp(req.Operation)
	if err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.ledger.AdjustBalance(c.Request.Context(), adminID, userID, req.Amount, op)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user_id": userID,
			"balance": balance,
		},
	})
}

// GetStats returns the system statistics snapshot
func (h *AdminHandler) GetStats(c *gin.Context) {
	adminID, _ := auth.GetUserID(c)

	stats, err := h.admin.SystemStatistics(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetLogs returns recent admin audit entries
func (h *AdminHandler) GetLogs(c *gin.Context) {
	adminID, _ := auth.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.admin.RecentLogs(c.Request.Context(), adminID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}
