package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type notificationService interface {
	ListMine(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
}

// NotificationHandler exposes the in-app inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListMine godoc
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Param limit query int false "Maximum items (default 50, max 100)"
// @Success 200 {object} response.Envelope
// @Router /notifications/me [get]
func (h *NotificationHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	items, err := h.service.ListMine(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	response.JSON(c, http.StatusOK, items, nil)
}
