package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

type allocationFixture struct {
	svc         *AllocationService
	ledger      *fakeLedger
	notifier    *recordingNotifier
	invalidator *recordingInvalidator
	metrics     *MetricsService
}

func newAllocationFixture() *allocationFixture {
	f := &allocationFixture{
		ledger:      newFakeLedger(),
		notifier:    &recordingNotifier{},
		invalidator: &recordingInvalidator{},
		metrics:     NewMetricsService(),
	}
	f.svc = NewAllocationService(AllocationServiceDeps{
		Repo:      f.ledger,
		Payments:  ledgerPayments{f.ledger},
		Rooms:     ledgerRooms{f.ledger},
		Access:    NewHostelAccess(newFakeCatalog()),
		Analytics: f.invalidator,
		Notifier:  f.notifier,
		Metrics:   f.metrics,
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *allocationFixture) addRoom(id string, capacity int) *models.Room {
	room := &models.Room{
		ID:               id,
		HostelID:         testHostelID,
		RoomNumber:       "A" + id,
		RoomType:         "double",
		Capacity:         capacity,
		AssignedStudents: []string{},
	}
	room.Refresh()
	f.ledger.rooms[id] = room
	return room
}

// addApprovedPayment seeds a student with a pending booking and an approved payment.
func (f *allocationFixture) addApprovedPayment(paymentID, studentID string) *models.Payment {
	bookingID := "booking-" + paymentID
	hostelID := testHostelID
	f.ledger.bookings[bookingID] = &models.Booking{
		ID:        bookingID,
		StudentID: studentID,
		HostelID:  &hostelID,
		Status:    models.BookingStatusPending,
		EndDate:   fixedNow.AddDate(0, 4, 0),
	}
	payment := &models.Payment{
		ID:        paymentID,
		BookingID: bookingID,
		StudentID: studentID,
		HostelID:  testHostelID,
		Status:    models.PaymentStatusApproved,
	}
	f.ledger.payments[paymentID] = payment
	return payment
}

func TestAssignRoomHappyPath(t *testing.T) {
	f := newAllocationFixture()
	f.addRoom("room-1", 2)
	f.addApprovedPayment("payment-1", testStudentID)

	allocation, err := f.svc.AssignRoom(context.Background(), "payment-1", "room-1", testCustodianID)
	require.NoError(t, err)

	assert.Equal(t, 1, allocation.Room.CurrentOccupants)
	assert.Equal(t, models.RoomStatusPartiallyBooked, allocation.Room.Status)
	assert.Equal(t, []string{testStudentID}, []string(allocation.Room.AssignedStudents))
	assert.Equal(t, models.PaymentStatusCompleted, allocation.Payment.Status)
	assert.Equal(t, models.BookingStatusActive, allocation.Booking.Status)
	require.NotNil(t, allocation.Booking.RoomID)
	assert.Equal(t, "room-1", *allocation.Booking.RoomID)

	record := allocation.Assignment
	assert.Equal(t, testCustodianID, record.CustodianID)
	assert.Equal(t, testHostelID, record.HostelID)
	assert.Equal(t, "payment-1", record.PaymentID)
	assert.Equal(t, fmt.Sprintf("Aroom-1-%06d", fixedNow.UnixMilli()%1000000), record.AccessCode)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.NotificationRoomAssignment, events[0].Type)
	assert.Equal(t, testStudentID, events[0].RecipientID)
	assert.Equal(t, "Aroom-1", events[0].Data["roomNumber"])
	assert.Equal(t, record.AccessCode, events[0].Data["accessCode"])
	assert.Equal(t, "Unity Hall", events[0].Data["hostelName"])
	assert.Equal(t, []string{testHostelID}, f.invalidator.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.allocations.WithLabelValues("success")))
}

func TestAssignRoomFillsRoomThenRejectsCapacity(t *testing.T) {
	f := newAllocationFixture()
	f.addRoom("room-1", 2)
	f.addApprovedPayment("payment-1", "student-1")
	f.addApprovedPayment("payment-2", "student-2")
	f.addApprovedPayment("payment-3", "student-3")
	ctx := context.Background()

	_, err := f.svc.AssignRoom(ctx, "payment-1", "room-1", testCustodianID)
	require.NoError(t, err)
	allocation, err := f.svc.AssignRoom(ctx, "payment-2", "room-1", testCustodianID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusBooked, allocation.Room.Status)

	_, err = f.svc.AssignRoom(ctx, "payment-3", "room-1", testCustodianID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCapacity))

	// Nothing of the failed attempt is persisted.
	assert.Equal(t, models.PaymentStatusApproved, f.ledger.payments["payment-3"].Status)
	assert.Equal(t, models.BookingStatusPending, f.ledger.bookings["booking-payment-3"].Status)
	assert.Equal(t, 2, f.ledger.rooms["room-1"].CurrentOccupants)
	assert.Len(t, f.ledger.records, 2)
	assert.Len(t, f.notifier.Events(), 2)
}

func TestAssignRoomPreconditions(t *testing.T) {
	f := newAllocationFixture()
	f.addRoom("room-1", 2)
	maintenance := f.addRoom("room-maint", 2)
	maintenance.Maintenance = true
	maintenance.Refresh()
	foreign := f.addRoom("room-foreign", 2)
	foreign.HostelID = "hostel-2"

	f.addApprovedPayment("payment-1", testStudentID)
	pending := f.addApprovedPayment("payment-pending", "student-2")
	pending.Status = models.PaymentStatusPending
	f.addApprovedPayment("payment-cancelled", "student-3")
	f.ledger.bookings["booking-payment-cancelled"].Status = models.BookingStatusCancelled
	f.addApprovedPayment("payment-dup", testStudentID)
	f.ledger.rooms["room-1"].AssignedStudents = []string{testStudentID}
	f.ledger.rooms["room-1"].CurrentOccupants = 1

	ctx := context.Background()
	cases := []struct {
		name      string
		paymentID string
		roomID    string
		custodian string
		want      *appErrors.Error
	}{
		{"unknown payment", "missing", "room-1", testCustodianID, appErrors.ErrNotFound},
		{"foreign custodian", "payment-1", "room-1", "custodian-2", appErrors.ErrForbidden},
		{"payment not approved", "payment-pending", "room-1", testCustodianID, appErrors.ErrInvalidState},
		{"unknown room", "payment-1", "missing", testCustodianID, appErrors.ErrNotFound},
		{"room in another hostel", "payment-1", "room-foreign", testCustodianID, appErrors.ErrValidation},
		{"room under maintenance", "payment-1", "room-maint", testCustodianID, appErrors.ErrCapacity},
		{"booking cancelled", "payment-cancelled", "room-1", testCustodianID, appErrors.ErrInvalidState},
		{"student already in room", "payment-dup", "room-1", testCustodianID, appErrors.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AssignRoom(ctx, tc.paymentID, tc.roomID, tc.custodian)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
	assert.Empty(t, f.ledger.records)
	assert.Empty(t, f.notifier.Events())
	assert.Empty(t, f.invalidator.Calls())
}

func TestAssignRoomTwiceForSamePayment(t *testing.T) {
	f := newAllocationFixture()
	f.addRoom("room-1", 4)
	f.addRoom("room-2", 4)
	f.addApprovedPayment("payment-1", testStudentID)
	ctx := context.Background()

	_, err := f.svc.AssignRoom(ctx, "payment-1", "room-1", testCustodianID)
	require.NoError(t, err)

	_, err = f.svc.AssignRoom(ctx, "payment-1", "room-2", testCustodianID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Equal(t, 0, f.ledger.rooms["room-2"].CurrentOccupants)
}

func TestAssignRoomConcurrentSamePayment(t *testing.T) {
	f := newAllocationFixture()
	for i := 0; i < 5; i++ {
		f.addRoom(fmt.Sprintf("room-%d", i), 2)
	}
	f.addApprovedPayment("payment-1", testStudentID)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AssignRoom(context.Background(), "payment-1", fmt.Sprintf("room-%d", i), testCustodianID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, appErrors.ErrInvalidState), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	occupied := 0
	for _, room := range f.ledger.rooms {
		occupied += room.CurrentOccupants
	}
	assert.Equal(t, 1, occupied)
	assert.Len(t, f.ledger.records, 1)
}

func TestAssignRoomConcurrentLastSlot(t *testing.T) {
	f := newAllocationFixture()
	f.addRoom("room-1", 3)
	const students = 6
	for i := 0; i < students; i++ {
		f.addApprovedPayment(fmt.Sprintf("payment-%d", i), fmt.Sprintf("student-%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, students)
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AssignRoom(context.Background(), fmt.Sprintf("payment-%d", i), "room-1", testCustodianID)
		}(i)
	}
	wg.Wait()

	succeeded, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, appErrors.ErrCapacity):
			full++
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 3, full)

	room := f.ledger.rooms["room-1"]
	assert.Equal(t, 3, room.CurrentOccupants)
	assert.Len(t, room.AssignedStudents, 3)
	assert.Equal(t, models.RoomStatusBooked, room.Status)
}

func TestAssignRoomStorageFailureRollsBack(t *testing.T) {
	f := newAllocationFixture()
	f.addRoom("room-1", 2)
	f.addApprovedPayment("payment-1", testStudentID)
	f.ledger.failWith = errors.New("connection lost")

	_, err := f.svc.AssignRoom(context.Background(), "payment-1", "room-1", testCustodianID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, f.ledger.rooms["room-1"].CurrentOccupants)
	assert.Equal(t, models.PaymentStatusApproved, f.ledger.payments["payment-1"].Status)
	assert.Empty(t, f.notifier.Events())
}

func TestListRoomAssignments(t *testing.T) {
	f := newAllocationFixture()
	f.addRoom("room-1", 2)
	f.addApprovedPayment("payment-1", testStudentID)
	ctx := context.Background()
	_, err := f.svc.AssignRoom(ctx, "payment-1", "room-1", testCustodianID)
	require.NoError(t, err)

	records, err := f.svc.ListRoomAssignments(ctx, "room-1", testCustodianID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testStudentID, records[0].StudentID)

	_, err = f.svc.ListRoomAssignments(ctx, "room-1", "custodian-2")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.ListRoomAssignments(ctx, "missing", testCustodianID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAccessCodeFormat(t *testing.T) {
	at := time.UnixMilli(1700000123456)
	assert.Equal(t, "B12-123456", accessCode("B12", at))
	assert.Equal(t, "B12-000042", accessCode("B12", time.UnixMilli(42)))
}
