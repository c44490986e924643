package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/jobs"
)

// JobTypeNotification identifies notification delivery jobs.
const JobTypeNotification = "notification"

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Notifier accepts notification events without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent)
}

// NotificationService delivers events to the in-app inbox through a worker queue.
type NotificationService struct {
	store   notificationStore
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. UseQueue must be called
// before Notify hands work to background workers.
func NewNotificationService(store notificationStore, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, metrics: metrics, logger: logger}
}

// UseQueue attaches the queue that runs Handle.
func (s *NotificationService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Notify enqueues the event. Failures are logged and dropped.
func (s *NotificationService) Notify(ctx context.Context, event models.NotificationEvent) {
	if s.queue == nil {
		s.logger.Warn("notification dropped, no queue attached", zap.String("type", string(event.Type)))
		s.metrics.RecordNotification("dropped")
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeNotification, Payload: event}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification dropped",
			zap.String("recipient_id", event.RecipientID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
		s.metrics.RecordNotification("dropped")
	}
}

// Handle persists one queued notification. It is the queue's job handler.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.NotificationEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	if event.Data == nil {
		data = []byte(`{}`)
	}
	if err := s.store.Create(ctx, &models.Notification{
		RecipientID: event.RecipientID,
		Type:        event.Type,
		Title:       event.Title,
		Message:     event.Message,
		Data:        data,
	}); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("delivered")
	return nil
}

// ListMine returns the recipient's latest notifications.
func (s *NotificationService) ListMine(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	items, err := s.store.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, nil
}
