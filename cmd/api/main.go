package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/handler"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/cache"
	"github.com/noah-isme/hostel-booking-api/pkg/config"
	"github.com/noah-isme/hostel-booking-api/pkg/database"
	"github.com/noah-isme/hostel-booking-api/pkg/export"
	"github.com/noah-isme/hostel-booking-api/pkg/jobs"
	"github.com/noah-isme/hostel-booking-api/pkg/lock"
	"github.com/noah-isme/hostel-booking-api/pkg/logger"
)

// @title Hostel Booking API
// @version 1.0.0
// @description Booking, payment verification and room allocation for student hostels
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	cacheEnabled := cfg.Analytics.CacheEnabled
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		if cacheEnabled {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		}
		cacheEnabled = false
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	locks := lock.NewKeyed()

	users := repository.NewUserRepository(db)
	audits := repository.NewAuditRepository(db)
	hostels := repository.NewHostelRepository(db)
	rooms := repository.NewRoomRepository(db)
	bookings := repository.NewBookingRepository(db)
	payments := repository.NewPaymentRepository(db)
	allocations := repository.NewAllocationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	notifications := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "hostel", logr)
	defer cacheRepo.Close() //nolint:errcheck

	access := service.NewHostelAccess(hostels)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, cacheEnabled)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, access, logr)
	exportSvc := service.NewExportService(analyticsSvc, logr, export.NewCSVRenderer(), export.NewPDFRenderer())

	notificationSvc := service.NewNotificationService(notifications, metrics, logr)
	queue := jobs.NewQueue("notifications", notificationSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	// Workers outlive the signal context so accepted notifications drain on shutdown.
	queue.Start(context.Background())
	defer queue.Stop()
	notificationSvc.UseQueue(queue)

	authSvc := service.NewAuthService(users, audits, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	bookingSvc := service.NewBookingService(bookings, hostels, access, analyticsSvc, locks, validate, logr)
	paymentSvc := service.NewPaymentService(service.PaymentServiceDeps{
		Repo:      payments,
		Bookings:  bookings,
		Catalog:   hostels,
		Access:    access,
		Analytics: analyticsSvc,
		Notifier:  notificationSvc,
		Metrics:   metrics,
		Locks:     locks,
		Validator: validate,
		Logger:    logr,
	})
	allocationSvc := service.NewAllocationService(service.AllocationServiceDeps{
		Repo:      allocations,
		Payments:  payments,
		Rooms:     rooms,
		Access:    access,
		Analytics: analyticsSvc,
		Notifier:  notificationSvc,
		Metrics:   metrics,
		Locks:     locks,
		Logger:    logr,
	})
	roomSvc := service.NewRoomService(rooms, allocations, access, analyticsSvc, locks, validate, logr)

	router := newRouter(cfg, logr, routes{
		auth:          handler.NewAuthHandler(authSvc),
		bookings:      handler.NewBookingHandler(bookingSvc, paymentSvc),
		payments:      handler.NewPaymentHandler(paymentSvc, allocationSvc),
		rooms:         handler.NewRoomHandler(roomSvc, allocationSvc),
		analytics:     handler.NewAnalyticsHandler(analyticsSvc, exportSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		metrics:       handler.NewMetricsHandler(metrics, db),
		tokens:        authSvc,
		audit:         audits,
		metricsSvc:    metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	queue.Drain()
}
