package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/middleware"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type analyticsService interface {
	HostelSummary(ctx context.Context, hostelID string, actor *models.JWTClaims) (*models.HostelSummary, bool, error)
}

type exportService interface {
	ExportHostelSummary(ctx context.Context, hostelID string, actor *models.JWTClaims, format string) (*service.ExportResult, error)
}

// AnalyticsHandler exposes per-hostel revenue and occupancy figures.
type AnalyticsHandler struct {
	analytics analyticsService
	exports   exportService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService, exports exportService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, exports: exports}
}

// Summary godoc
// @Summary Hostel analytics summary
// @Description Revenue, occupancy rate and active bookings. Served from cache when available.
// @Tags Analytics
// @Produce json
// @Param id path string true "Hostel ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /hostels/{id}/analytics [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, cacheHit, err := h.analytics.HostelSummary(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export hostel analytics
// @Tags Analytics
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Hostel ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /hostels/{id}/analytics/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	result, err := h.exports.ExportHostelSummary(c.Request.Context(), c.Param("id"), claimsFromContext(c), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
