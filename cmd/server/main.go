package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/controller"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/internal/app/service"
	"github.com/tagreview/tagreview-backend/internal/db"
	"github.com/tagreview/tagreview-backend/internal/router"
	"github.com/tagreview/tagreview-backend/internal/scheduler"
	ws "github.com/tagreview/tagreview-backend/internal/websocket"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"github.com/tagreview/tagreview-backend/pkg/messaging/resend"
	"github.com/tagreview/tagreview-backend/pkg/messaging/twilio"
	"github.com/tagreview/tagreview-backend/pkg/redis"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting TagReview Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if cfg.Server.Environment == "development" {
		if err := db.Seed(); err != nil {
			logger.Warn("Failed to seed database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	sessionRepo := newSessionRepository(cfg)
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// Live feed hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize repositories
	companyRepo := repository.NewCompanyRepository(db.GetDB())
	reviewRepo := repository.NewReviewRepository(db.GetDB())
	couponRepo := repository.NewCouponRepository(db.GetDB())
	lotteryRepo := repository.NewLotteryRepository(db.GetDB())

	// Initialize services
	content, err := service.NewContentGenerator()
	if err != nil {
		logger.Fatal("Failed to parse notification templates", err)
	}
	notifier := service.NewNotificationService(newNotificationSender(cfg), content, hub)
	policies := service.NewPolicyProvider(companyRepo)
	reviewService := service.NewReviewService(reviewRepo, cfg.Review)
	rewardService := service.NewRewardService(service.NewCouponGenerator(couponRepo), lotteryRepo)
	flowService := service.NewReviewFlowService(
		reviewService,
		rewardService,
		notifier,
		policies,
		sessionRepo,
		cfg.Review,
	)
	drawService := service.NewLotteryDrawService(companyRepo, lotteryRepo, notifier)

	// Initialize controllers
	flowController := controller.NewReviewFlowController(flowService)
	feedController := controller.NewFeedController(policies, hub, cfg.CORS.AllowedOrigins)

	// Monthly lottery draw
	drawScheduler := scheduler.NewLotteryDrawScheduler(drawService, cfg.Lottery.DrawSchedule)
	if err := drawScheduler.Start(); err != nil {
		logger.Fatal("Failed to start lottery draw scheduler", err)
	}

	// Setup router
	r := router.NewRouter(flowController, feedController, cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	drawScheduler.Stop()

	// 진행 중인 보상/알림 작업 마무리
	flowService.Wait()
	reviewService.Wait()

	logger.Info("Server stopped successfully")
}

// newSessionRepository uses Redis when configured so that several instances share
// sessions and submit guards. Otherwise sessions live in process memory.
func newSessionRepository(cfg *config.Config) repository.SessionRepository {
	if !cfg.Redis.Enabled() {
		logger.Warn("Redis not configured, flow sessions are kept in memory")
		return repository.NewMemorySessionRepository()
	}

	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}

	return repository.NewRedisSessionRepository(redis.GetClient(), cfg.Redis.SessionTTL, submitLockTTL(cfg.Review))
}

// submitLockTTL covers the longest guarded path: rating or feedback write, every contact
// attempt and the read-back, plus one store timeout of headroom so a slow holder
// does not lose the guard before it finishes.
func submitLockTTL(cfg config.ReviewConfig) time.Duration {
	return cfg.StoreTimeout * time.Duration(cfg.ContactUpdateAttempts+3)
}

func newNotificationSender(cfg *config.Config) service.NotificationSender {
	var (
		emailClient *resend.Client
		smsClient   *twilio.Client
	)

	if cfg.Notification.Resend.APIKey != "" {
		client, err := resend.NewClient(resend.Config{
			APIKey:  cfg.Notification.Resend.APIKey,
			BaseURL: cfg.Notification.Resend.BaseURL,
			From:    cfg.Notification.Resend.From,
		})
		if err != nil {
			logger.Fatal("Failed to create Resend client", err)
		}
		emailClient = client
	}

	if cfg.Notification.Twilio.AccountSID != "" {
		client, err := twilio.NewClient(twilio.Config{
			AccountSID: cfg.Notification.Twilio.AccountSID,
			AuthToken:  cfg.Notification.Twilio.AuthToken,
			BaseURL:    cfg.Notification.Twilio.BaseURL,
			From:       cfg.Notification.Twilio.From,
		})
		if err != nil {
			logger.Fatal("Failed to create Twilio client", err)
		}
		smsClient = client
	}

	if emailClient == nil && smsClient == nil {
		logger.Warn("No notification provider configured, notifications are only logged")
		return service.NewLogSender()
	}
	return service.NewMessagingSender(emailClient, smsClient)
}
