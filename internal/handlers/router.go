package handlers

import (
	"net/http"
	"time"

	"investment-bot/internal/auth"
	"investment-bot/internal/monitoring"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig wires the HTTP surface
type RouterConfig struct {
	Admin          *AdminHandler
	Investor       *InvestorHandler
	Authorizer     auth.Authorizer
	AllowedOrigins []string
}

// NewRouter builds the gin engine with every API route registered
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), monitoring.GinMiddleware())

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", monitoring.Handler())

	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.GET("/ledger/summary", cfg.Investor.GetLedgerSummary)
		api.GET("/investments", cfg.Investor.GetInvestments)
		api.GET("/referral/code", cfg.Investor.GetReferralCode)
		api.GET("/referral/stats", cfg.Investor.GetReferralStats)

		admin := api.Group("/admin")
		admin.Use(auth.AdminMiddleware(cfg.Authorizer))
		{
			admin.GET("/investments/pending", cfg.Admin.GetPendingInvestments)
			admin.POST("/investments/:id/confirm", cfg.Admin.ConfirmInvestment)
			admin.POST("/investments/:id/reject", cfg.Admin.RejectInvestment)
			admin.POST("/users/:id/balance", cfg.Admin.AdjustBalance)
			admin.GET("/stats", cfg.Admin.GetStats)
			admin.GET("/logs", cfg.Admin.GetLogs)
		}
	}

	return router
}
