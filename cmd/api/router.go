package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hostel-booking-api/api/swagger"
	"github.com/noah-isme/hostel-booking-api/internal/handler"
	"github.com/noah-isme/hostel-booking-api/internal/middleware"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/config"
	"github.com/noah-isme/hostel-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hostel-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hostel-booking-api/pkg/middleware/requestid"
)

type routes struct {
	auth          *handler.AuthHandler
	bookings      *handler.BookingHandler
	payments      *handler.PaymentHandler
	rooms         *handler.RoomHandler
	analytics     *handler.AnalyticsHandler
	notifications *handler.NotificationHandler
	metrics       *handler.MetricsHandler
	tokens        middleware.TokenValidator
	audit         middleware.AuditWriter
	metricsSvc    *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(h.metricsSvc, "/metrics", "/health", "/ready"))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	students := middleware.RequireRoles(models.RoleStudent)
	custodians := middleware.RequireRoles(models.RoleCustodian)
	staff := middleware.RequireRoles(models.RoleCustodian, models.RoleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(h.audit, logr, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(h.tokens))
	secured.GET("/auth/me", h.auth.Me)

	secured.POST("/bookings", students, h.bookings.Create)
	secured.GET("/bookings/me", students, h.bookings.ListMine)
	secured.GET("/bookings/:id", h.bookings.Get)
	secured.POST("/bookings/:id/cancel", students, audit(models.AuditActionBookingCancel, "booking"), h.bookings.Cancel)
	secured.GET("/bookings/:id/payments", h.bookings.Payments)

	secured.POST("/payments", students, h.payments.Submit)
	secured.POST("/payments/:id/approve", custodians, audit(models.AuditActionPaymentApprove, "payment"), h.payments.Approve)
	secured.POST("/payments/:id/reject", custodians, audit(models.AuditActionPaymentReject, "payment"), h.payments.Reject)
	secured.POST("/payments/:id/assign", custodians, audit(models.AuditActionRoomAssign, "payment"), h.payments.Assign)

	secured.POST("/rooms", custodians, audit(models.AuditActionRoomCreate, "room"), h.rooms.Create)
	secured.GET("/rooms/:id", staff, h.rooms.Get)
	secured.PUT("/rooms/:id/status", custodians, audit(models.AuditActionRoomForceStatus, "room"), h.rooms.ForceStatus)
	secured.GET("/rooms/:id/occupancy-check", custodians, h.rooms.CheckOccupancy)
	secured.GET("/rooms/:id/assignments", custodians, h.rooms.Assignments)

	secured.GET("/hostels/:id/rooms", staff, h.rooms.ListHostel)
	secured.GET("/hostels/:id/payments", custodians, h.payments.ListHostel)
	secured.GET("/hostels/:id/analytics", staff, h.analytics.Summary)
	secured.GET("/hostels/:id/analytics/export", staff, h.analytics.Export)

	secured.GET("/notifications/me", h.notifications.ListMine)

	return r
}
