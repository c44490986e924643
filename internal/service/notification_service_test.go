package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/jobs"
)

type memoryNotificationStore struct {
	mu       sync.Mutex
	items    []models.Notification
	failures int
}

func (m *memoryNotificationStore) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("insert failed")
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *memoryNotificationStore) ListByRecipient(_ context.Context, recipientID string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

type rejectingQueue struct{}

func (rejectingQueue) Enqueue(jobs.Job) error { return jobs.ErrQueueFull }

func startNotificationQueue(t *testing.T, svc *NotificationService, retries int) *jobs.Queue {
	t.Helper()
	queue := jobs.NewQueue("notifications-test", svc.Handle, jobs.QueueConfig{
		Workers:    2,
		BufferSize: 16,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	svc.UseQueue(queue)
	return queue
}

func roomAssignmentEvent() models.NotificationEvent {
	return models.NotificationEvent{
		RecipientID: testStudentID,
		Type:        models.NotificationRoomAssignment,
		Title:       "Room assigned",
		Message:     "You have been assigned room A101 at Unity Hall.",
		Data:        map[string]string{"roomNumber": "A101", "accessCode": "A101-123456", "hostelName": "Unity Hall"},
	}
}

func TestNotificationServiceDeliversThroughQueue(t *testing.T) {
	store := &memoryNotificationStore{}
	svc := NewNotificationService(store, NewMetricsService(), nil)
	queue := startNotificationQueue(t, svc, 0)

	svc.Notify(context.Background(), roomAssignmentEvent())
	queue.Drain()

	items, err := svc.ListMine(context.Background(), testStudentID, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationRoomAssignment, items[0].Type)

	var data map[string]string
	require.NoError(t, json.Unmarshal(items[0].Data, &data))
	assert.Equal(t, "A101-123456", data["accessCode"])
	assert.Equal(t, "Unity Hall", data["hostelName"])
}

func TestNotificationServiceRetriesFailedDelivery(t *testing.T) {
	store := &memoryNotificationStore{failures: 2}
	svc := NewNotificationService(store, nil, nil)
	queue := startNotificationQueue(t, svc, 3)

	svc.Notify(context.Background(), roomAssignmentEvent())
	queue.Drain()

	assert.Len(t, store.items, 1)
}

func TestNotificationServiceNeverBlocksCaller(t *testing.T) {
	store := &memoryNotificationStore{}
	svc := NewNotificationService(store, nil, nil)

	svc.Notify(context.Background(), roomAssignmentEvent())
	svc.UseQueue(rejectingQueue{})
	svc.Notify(context.Background(), roomAssignmentEvent())

	assert.Empty(t, store.items)
}

func TestNotificationHandleDefaultsEmptyData(t *testing.T) {
	store := &memoryNotificationStore{}
	svc := NewNotificationService(store, nil, nil)

	event := roomAssignmentEvent()
	event.Data = nil
	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeNotification, Payload: event}))
	require.Len(t, store.items, 1)
	assert.JSONEq(t, `{}`, string(store.items[0].Data))

	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "job-2", Payload: "garbage"}))
	assert.Len(t, store.items, 1)
}

type failingNotificationStore struct{ memoryNotificationStore }

func (f *failingNotificationStore) ListByRecipient(context.Context, string, int) ([]models.Notification, error) {
	return nil, errors.New("db down")
}

func TestNotificationListMineWrapsErrors(t *testing.T) {
	svc := NewNotificationService(&failingNotificationStore{}, nil, nil)

	_, err := svc.ListMine(context.Background(), testStudentID, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
