package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"investment-bot/internal/auth"
	"investment-bot/internal/config"
	"investment-bot/internal/database"
	"investment-bot/internal/handlers"
	"investment-bot/internal/jobs"
	"investment-bot/internal/logging"
	"investment-bot/internal/notify"
	"investment-bot/internal/repository"
	"investment-bot/internal/services"
	"investment-bot/internal/telegram"
	"investment-bot/internal/worker"
	"investment-bot/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.App.LogLevel, Dev: cfg.App.LogDev})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.Database.Driver, cfg.GetDSN()); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.AutoMigrate(database.GetDB()); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	if len(cfg.Admin.IDs) == 0 {
		logger.Warn("ADMIN_IDS is empty, submissions cannot be confirmed")
	}
	admins := auth.NewAllowList(cfg.Admin.IDs)

	bot, err := telegram.NewBot(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("failed to create telegram bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Notification dispatch and session storage go through redis when it is
	// configured, and stay in process otherwise.
	var (
		notifier       notify.Notifier
		store          workflow.Store
		sweeper        *jobs.SessionSweeper
		deliveryServer *asynq.Server
		pool           *worker.Pool
	)
	if cfg.Redis.Addr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()
		notifier = notify.NewQueueDispatcher(queueClient, logger)

		server, mux := notify.NewDeliveryServer(redisOpt, cfg.App.NotifyWorkers, bot, logger)
		if err := server.Start(mux); err != nil {
			logger.Fatal("failed to start notification worker", zap.Error(err))
		}
		deliveryServer = server

		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to reach redis", zap.Error(err))
		}
		store = workflow.NewRedisStore(rdb, cfg.App.SessionIdleTTL)
		logger.Info("using redis for sessions and notifications", zap.String("addr", cfg.Redis.Addr))
	} else {
		pool = worker.NewPool(cfg.App.NotifyWorkers, cfg.App.NotifyQueue)
		notifier = notify.NewDispatcher(pool, bot, logger)

		memory := workflow.NewMemoryStore()
		store = memory
		if cfg.App.SessionIdleTTL > 0 {
			sweeper = jobs.NewSessionSweeper(memory, cfg.App.SessionIdleTTL, sweepInterval, logger)
			go sweeper.Start()
		}
	}

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	referralService := services.NewReferralService(repo, logger)
	adminService := services.NewAdminService(repo, admins, logger)
	userService := services.NewUserService(repo, referralService, notifier, logger)
	investmentService := services.NewInvestmentService(repo, admins, notifier, logger)
	confirmationService := services.NewConfirmationService(repo, admins, notifier, logger)
	ledgerService := services.NewLedgerService(repo, admins, adminService, logger)
	evidenceCollector := services.NewEvidenceCollector(admins, notifier, logger)

	engine := workflow.NewEngine(store, userService, evidenceCollector, investmentService, workflow.Config{
		MinAmount:      cfg.Investment.MinAmount,
		PaymentAddress: cfg.Investment.PaymentWallet,
	}, logger)

	router := telegram.NewRouter(telegram.Deps{
		Bot:          bot,
		Engine:       engine,
		Users:        userService,
		Referrals:    referralService,
		Investments:  investmentService,
		Confirmation: confirmationService,
		Ledger:       ledgerService,
		Admin:        adminService,
		Authorizer:   admins,
		BotUsername:  bot.Username(),
		Logger:       logger,
	})
	poller := telegram.NewPoller(bot.Api, router, cfg.Telegram.PollTimeout, cfg.Telegram.Lanes, logger)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	// Set up Gin router
	if !cfg.App.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	api := handlers.NewRouter(handlers.RouterConfig{
		Admin:          handlers.NewAdminHandler(confirmationService, investmentService, ledgerService, adminService, logger),
		Investor:       handlers.NewInvestorHandler(ledgerService, investmentService, referralService),
		Authorizer:     admins,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: api,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	<-pollerDone

	if sweeper != nil {
		sweeper.Stop()
	}
	if deliveryServer != nil {
		deliveryServer.Shutdown()
	}
	if pool != nil {
		pool.Close()
		pool.Wait()
	}

	logger.Info("server exited")
}
