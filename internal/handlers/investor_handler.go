package handlers

import (
	"net/http"

	"investment-bot/internal/auth"
	"investment-bot/internal/services"

	"github.com/gin-gonic/gin"
)

// InvestorHandler serves read-only views of the caller's own account
type InvestorHandler struct {
	ledger      *services.LedgerService
	investments *services.InvestmentService
	referrals   *services.ReferralService
}

func NewInvestorHandler(
	ledger *services.LedgerService,
	investments *services.InvestmentService,
	referrals *services.ReferralService,
) *InvestorHandler {
	return &InvestorHandler{
		ledger:      ledger,
		investments: investments,
		referrals:   referrals,
	}
}

// GetLedgerSummary returns balance and active entitlement
func (h *InvestorHandler) GetLedgerSummary(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	summary, err := h.ledger.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}

// GetInvestments lists the caller's investments, newest first
func (h *InvestorHandler) GetInvestments(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	investments, err := h.investments.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    investments,
		"total":   len(investments),
	})
}

// GetReferralCode returns the caller's invite code, allocating one if needed
func (h *InvestorHandler) GetReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	code, err := h.referrals.GenerateCode(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"code": code},
	})
}

// GetReferralStats returns referral statistics for the caller
func (h *InvestorHandler) GetReferralStats(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.referrals.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
