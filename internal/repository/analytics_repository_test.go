package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/models"
)

func TestAnalyticsRepositoryReads(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE hostel_id = $1")).
		WithArgs("hostel-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "room_number", "capacity", "current_occupants", "status"}).
			AddRow("room-1", "A101", 2, 1, "PartiallyBooked").
			AddRow("room-2", "A102", 2, 0, "Available"))
	rooms, err := repo.Rooms(context.Background(), "hostel-1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, models.RoomOccupancy{
		RoomID:           "room-1",
		RoomNumber:       "A101",
		Capacity:         2,
		CurrentOccupants: 1,
		Status:           models.RoomStatusPartiallyBooked,
	}, rooms[0])
	assert.Equal(t, "room-2", rooms[1].RoomID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE hostel_id = $1 AND status IN ('Approved', 'Completed')")).
		WithArgs("hostel-1").
		WillReturnRows(sqlmock.NewRows([]string{"amount", "created_at"}).AddRow("150.50", now))
	revenue, err := repo.Revenue(context.Background(), "hostel-1")
	require.NoError(t, err)
	require.Len(t, revenue, 1)
	assert.True(t, decimal.RequireFromString("150.50").Equal(revenue[0].Amount))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, end_date FROM bookings WHERE hostel_id = $1")).
		WithArgs("hostel-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "end_date"}).AddRow("active", now))
	spans, err := repo.Bookings(context.Background(), "hostel-1")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, models.BookingStatusActive, spans[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
