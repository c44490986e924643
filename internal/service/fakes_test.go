package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
)

const (
	testHostelID    = "hostel-1"
	testCustodianID = "custodian-1"
	testStudentID   = "student-1"
)

type fakeCatalog struct {
	hostels map[string]*models.Hostel
	rooms   map[string]*models.Room
	err     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		hostels: map[string]*models.Hostel{
			testHostelID: {ID: testHostelID, Name: "Unity Hall", CustodianID: testCustodianID},
			"hostel-2":   {ID: "hostel-2", Name: "Akuafo Annex", CustodianID: "custodian-2"},
		},
		rooms: map[string]*models.Room{},
	}
}

func (f *fakeCatalog) FindByID(_ context.Context, id string) (*models.Hostel, error) {
	if f.err != nil {
		return nil, f.err
	}
	hostel, ok := f.hostels[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *hostel
	return &clone, nil
}

func (f *fakeCatalog) Resolve(_ context.Context, ref string) (*models.Hostel, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, hostel := range f.hostels {
		if hostel.ID == ref || strings.EqualFold(hostel.Name, ref) {
			clone := *hostel
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) ResolveRoom(_ context.Context, hostelID, ref string) (*models.Room, error) {
	for _, room := range f.rooms {
		if room.HostelID == hostelID && (room.ID == ref || room.RoomNumber == ref) {
			clone := *room
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeBookingStore struct {
	mu        sync.Mutex
	bookings  map[string]*models.Booking
	createErr error
	cancelErr error
	creates   int
}

func newFakeBookingStore(bookings ...models.Booking) *fakeBookingStore {
	store := &fakeBookingStore{bookings: map[string]*models.Booking{}}
	for i := range bookings {
		b := bookings[i]
		store.bookings[b.ID] = &b
	}
	return store
}

func (f *fakeBookingStore) CreateExclusive(_ context.Context, booking *models.Booking, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.bookings {
		if existing.StudentID == booking.StudentID && existing.IsActiveAt(now) {
			return repository.ErrActiveBookingExists
		}
	}
	if booking.ID == "" {
		booking.ID = "booking-" + string(rune('a'+len(f.bookings)))
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now
	clone := *booking
	f.bookings[booking.ID] = &clone
	return nil
}

func (f *fakeBookingStore) FindByID(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *booking
	return &clone, nil
}

func (f *fakeBookingStore) FindDetailByID(ctx context.Context, id string) (*models.BookingDetail, error) {
	booking, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.BookingDetail{Booking: *booking, HostelName: booking.HostelRef, RoomName: booking.RoomRef}, nil
}

func (f *fakeBookingStore) ListByStudent(_ context.Context, studentID string) ([]models.BookingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BookingDetail
	for _, booking := range f.bookings {
		if booking.StudentID == studentID {
			out = append(out, models.BookingDetail{Booking: *booking, HostelName: booking.HostelRef, RoomName: booking.RoomRef})
		}
	}
	return out, nil
}

func (f *fakeBookingStore) Cancel(_ context.Context, id, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	booking, ok := f.bookings[id]
	if !ok || !booking.Cancellable() {
		return sql.ErrNoRows
	}
	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &at
	if reason != "" {
		booking.CancellationReason = &reason
	}
	return nil
}

type fakePaymentStore struct {
	mu         sync.Mutex
	payments   map[string]*models.Payment
	createErr  []error
	approveErr error
	created    []models.Payment
}

func newFakePaymentStore(payments ...models.Payment) *fakePaymentStore {
	store := &fakePaymentStore{payments: map[string]*models.Payment{}}
	for i := range payments {
		p := payments[i]
		store.payments[p.ID] = &p
	}
	return store
}

func (f *fakePaymentStore) CreateIfNoneOpen(_ context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErr) > 0 {
		err := f.createErr[0]
		f.createErr = f.createErr[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range f.payments {
		if existing.BookingID != payment.BookingID {
			continue
		}
		switch existing.Status {
		case models.PaymentStatusPending, models.PaymentStatusApproved, models.PaymentStatusCompleted:
			return repository.ErrOpenPaymentExists
		}
	}
	clone := *payment
	f.payments[payment.ID] = &clone
	f.created = append(f.created, clone)
	return nil
}

func (f *fakePaymentStore) FindByID(_ context.Context, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *payment
	return &clone, nil
}

func (f *fakePaymentStore) List(_ context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if filter.HostelID != "" && p.HostelID != filter.HostelID {
			continue
		}
		if filter.BookingID != "" && p.BookingID != filter.BookingID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePaymentStore) Approve(_ context.Context, id, reviewerID string, at time.Time) error {
	return f.review(id, reviewerID, at, models.PaymentStatusApproved)
}

func (f *fakePaymentStore) Reject(_ context.Context, id, reviewerID string, at time.Time) error {
	return f.review(id, reviewerID, at, models.PaymentStatusRejected)
}

func (f *fakePaymentStore) review(id, reviewerID string, at time.Time, target models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if target == models.PaymentStatusApproved && f.approveErr != nil {
		return f.approveErr
	}
	payment, ok := f.payments[id]
	if !ok || payment.Status != models.PaymentStatusPending {
		return sql.ErrNoRows
	}
	payment.Status = target
	payment.ReviewedBy = &reviewerID
	payment.ReviewedAt = &at
	return nil
}

func (f *fakePaymentStore) HasAccepted(_ context.Context, bookingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.Status.CountsAsRevenue() {
			return true, nil
		}
	}
	return false, nil
}

// fakeLedger emulates the allocation transaction over in-memory rows: the plan
// runs against copies and nothing is written back unless it succeeds.
type fakeLedger struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	rooms    map[string]*models.Room
	bookings map[string]*models.Booking
	records  []models.AssignmentRecord
	failWith error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		payments: map[string]*models.Payment{},
		rooms:    map[string]*models.Room{},
		bookings: map[string]*models.Booking{},
	}
}

func (f *fakeLedger) Allocate(_ context.Context, paymentID, roomID string, plan repository.AllocationPlan) (*models.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	storedPayment, ok := f.payments[paymentID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	storedRoom, ok := f.rooms[roomID]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	storedBooking, ok := f.bookings[storedPayment.BookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	payment := *storedPayment
	room := *storedRoom
	room.AssignedStudents = append([]string(nil), storedRoom.AssignedStudents...)
	booking := *storedBooking

	record, err := plan(&payment, &room, &booking)
	if err != nil {
		return nil, err
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	room.Refresh()
	if room.CurrentOccupants > room.Capacity {
		return nil, repository.ErrStaleWrite
	}
	for _, existing := range f.records {
		if existing.PaymentID == record.PaymentID {
			return nil, repository.ErrUniqueViolation
		}
	}
	record.ID = "assignment-" + payment.ID
	*storedPayment = payment
	*storedRoom = room
	*storedBooking = booking
	f.records = append(f.records, *record)
	return &models.Allocation{Room: room, Payment: payment, Booking: booking, Assignment: *record}, nil
}

func (f *fakeLedger) ListByRoom(_ context.Context, roomID string) ([]models.AssignmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AssignmentRecord
	for _, r := range f.records {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) CountByRoomSince(_ context.Context, roomID string, since *time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, r := range f.records {
		if r.RoomID == roomID && (since == nil || r.AssignedAt.After(*since)) {
			total++
		}
	}
	return total, nil
}

// ledgerPayments and ledgerRooms expose the ledger maps as readers.
type ledgerPayments struct{ *fakeLedger }

func (l ledgerPayments) FindByID(_ context.Context, id string) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

type ledgerRooms struct{ *fakeLedger }

func (l ledgerRooms) FindByID(_ context.Context, id string) (*models.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (l ledgerRooms) Create(_ context.Context, room *models.Room) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.rooms {
		if existing.HostelID == room.HostelID && existing.RoomNumber == room.RoomNumber {
			return repository.ErrUniqueViolation
		}
	}
	room.AssignedStudents = []string{}
	room.Refresh()
	clone := *room
	l.rooms[room.ID] = &clone
	return nil
}

func (l ledgerRooms) List(_ context.Context, filter models.RoomFilter) ([]models.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Room
	for _, r := range l.rooms {
		if r.HostelID == filter.HostelID && (filter.Status == "" || r.Status == filter.Status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (l ledgerRooms) Mutate(_ context.Context, id string, fn repository.RoomMutation) (*models.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	room := *stored
	if err := fn(&room); err != nil {
		return nil, err
	}
	room.Refresh()
	*stored = room
	clone := room
	return &clone, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (r *recordingNotifier) Notify(_ context.Context, event models.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) Events() []models.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NotificationEvent(nil), r.events...)
}

type recordingInvalidator struct {
	mu      sync.Mutex
	hostels []string
}

func (r *recordingInvalidator) InvalidateHostel(_ context.Context, hostelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hostels = append(r.hostels, hostelID)
}

func (r *recordingInvalidator) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hostels...)
}

func strPtr(s string) *string { return &s }

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

func custodianClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleCustodian}
}
