package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/lock"
)

const transactionIDAttempts = 3

type paymentStore interface {
	CreateIfNoneOpen(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	Approve(ctx context.Context, id, reviewerID string, at time.Time) error
	Reject(ctx context.Context, id, reviewerID string, at time.Time) error
	HasAccepted(ctx context.Context, bookingID string) (bool, error)
}

type bookingReader interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type hostelResolver interface {
	Resolve(ctx context.Context, ref string) (*models.Hostel, error)
}

// PaymentService verifies payments submitted against bookings.
type PaymentService struct {
	repo      paymentStore
	bookings  bookingReader
	catalog   hostelResolver
	access    *HostelAccess
	analytics AnalyticsInvalidator
	notifier  Notifier
	metrics   *MetricsService
	locks     *lock.Keyed
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// PaymentServiceDeps groups collaborators of PaymentService.
type PaymentServiceDeps struct {
	Repo      paymentStore
	Bookings  bookingReader
	Catalog   hostelResolver
	Access    *HostelAccess
	Analytics AnalyticsInvalidator
	Notifier  Notifier
	Metrics   *MetricsService
	Locks     *lock.Keyed
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentServiceDeps) *PaymentService {
	s := &PaymentService{
		repo:      deps.Repo,
		bookings:  deps.Bookings,
		catalog:   deps.Catalog,
		access:    deps.Access,
		analytics: deps.Analytics,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		locks:     deps.Locks,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       time.Now,
	}
	if s.analytics == nil {
		s.analytics = noopInvalidator{}
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.locks == nil {
		s.locks = lock.NewKeyed()
	}
	if s.validator == nil {
		s.validator = validator.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// SubmitPayment records a Pending payment for a booking owned by studentID.
func (s *PaymentService) SubmitPayment(ctx context.Context, studentID string, req dto.SubmitPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
	}

	booking, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	if booking.Status == models.BookingStatusCancelled || booking.Status == models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("booking is %s", booking.Status))
	}
	hostelID, err := s.bookingHostel(ctx, booking)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("booking:" + booking.ID)
	defer unlock()

	accepted, err := s.repo.HasAccepted(ctx, booking.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking payments")
	}
	if accepted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "booking already has an approved payment")
	}

	payment := &models.Payment{
		BookingID:     booking.ID,
		StudentID:     studentID,
		HostelID:      hostelID,
		Amount:        req.Amount,
		PaymentMethod: method,
		Status:        models.PaymentStatusPending,
	}
	for attempt := 1; ; attempt++ {
		payment.ID = uuid.NewString()
		payment.TransactionID = newTransactionID(s.now())
		err = s.repo.CreateIfNoneOpen(ctx, payment)
		if !errors.Is(err, repository.ErrUniqueViolation) || attempt >= transactionIDAttempts {
			break
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOpenPaymentExists):
			return nil, appErrors.Clone(appErrors.ErrConflict, "booking already has a payment awaiting review")
		case errors.Is(err, repository.ErrUniqueViolation):
			return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique transaction id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment submitted",
		zap.String("payment_id", payment.ID),
		zap.String("booking_id", booking.ID),
		zap.String("transaction_id", payment.TransactionID))
	return payment, nil
}

// bookingHostel returns the hostel a payment is filed under. Bookings whose
// reference was unknown at creation are resolved again, since the hostel may
// have been registered since.
func (s *PaymentService) bookingHostel(ctx context.Context, booking *models.Booking) (string, error) {
	if booking.HostelID != nil {
		return *booking.HostelID, nil
	}
	if s.catalog == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "booking is not linked to a known hostel")
	}
	hostel, err := s.catalog.Resolve(ctx, booking.HostelRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrValidation, "booking is not linked to a known hostel")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve hostel")
	}
	s.logger.Debug("booking hostel resolved at payment time",
		zap.String("booking_id", booking.ID),
		zap.String("hostel_id", hostel.ID))
	return hostel.ID, nil
}

// ApprovePayment moves a Pending payment to Approved. It does not assign a room.
func (s *PaymentService) ApprovePayment(ctx context.Context, paymentID, custodianID string) (*models.Payment, error) {
	payment, err := s.review(ctx, paymentID, custodianID, models.PaymentStatusApproved)
	s.metrics.RecordPaymentDecision("approve", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, models.NotificationEvent{
		RecipientID: payment.StudentID,
		Type:        models.NotificationPaymentApproved,
		Title:       "Payment approved",
		Message:     fmt.Sprintf("Your payment %s was approved. A room will be assigned shortly.", payment.TransactionID),
		Data:        map[string]string{"paymentId": payment.ID, "bookingId": payment.BookingID},
	})
	return payment, nil
}

// RejectPayment moves a Pending payment to Rejected.
func (s *PaymentService) RejectPayment(ctx context.Context, paymentID, custodianID string) (*models.Payment, error) {
	payment, err := s.review(ctx, paymentID, custodianID, models.PaymentStatusRejected)
	s.metrics.RecordPaymentDecision("reject", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, models.NotificationEvent{
		RecipientID: payment.StudentID,
		Type:        models.NotificationPaymentRejected,
		Title:       "Payment rejected",
		Message:     fmt.Sprintf("Your payment %s was rejected by the custodian.", payment.TransactionID),
		Data:        map[string]string{"paymentId": payment.ID, "bookingId": payment.BookingID},
	})
	return payment, nil
}

func (s *PaymentService) review(ctx context.Context, paymentID, custodianID string, target models.PaymentStatus) (*models.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireCustodian(ctx, payment.HostelID, custodianID); err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("payment is %s", payment.Status))
	}
	if target == models.PaymentStatusApproved {
		accepted, err := s.repo.HasAccepted(ctx, payment.BookingID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking payments")
		}
		if accepted {
			return nil, appErrors.Clone(appErrors.ErrConflict, "booking already has an approved payment")
		}
	}

	at := s.now().UTC()
	if target == models.PaymentStatusApproved {
		err = s.repo.Approve(ctx, payment.ID, custodianID, at)
	} else {
		err = s.repo.Reject(ctx, payment.ID, custodianID, at)
	}
	if err != nil {
		return nil, s.classifyReviewFailure(ctx, payment.ID, err)
	}

	payment.Status = target
	payment.ReviewedBy = &custodianID
	payment.ReviewedAt = &at
	payment.UpdatedAt = at
	if target == models.PaymentStatusApproved {
		s.analytics.InvalidateHostel(ctx, payment.HostelID)
	}
	s.logger.Info("payment reviewed",
		zap.String("payment_id", payment.ID),
		zap.String("status", string(target)),
		zap.String("custodian_id", custodianID))
	return payment, nil
}

// classifyReviewFailure turns a lost conditional update into a domain error by
// re-reading the payment.
func (s *PaymentService) classifyReviewFailure(ctx context.Context, paymentID string, err error) error {
	if errors.Is(err, repository.ErrUniqueViolation) {
		return appErrors.Clone(appErrors.ErrConflict, "booking already has an approved payment")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review payment")
	}
	current, loadErr := s.loadPayment(ctx, paymentID)
	if loadErr != nil {
		return loadErr
	}
	if current.Status != models.PaymentStatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("payment is %s", current.Status))
	}
	return appErrors.Clone(appErrors.ErrConflict, "booking already has an approved payment")
}

func (s *PaymentService) loadPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// ListHostelPayments returns the custodian's review queue, optionally filtered by status.
func (s *PaymentService) ListHostelPayments(ctx context.Context, hostelID, custodianID, status string) ([]models.Payment, error) {
	if _, err := s.access.RequireCustodian(ctx, hostelID, custodianID); err != nil {
		return nil, err
	}
	filter := models.PaymentFilter{HostelID: hostelID}
	if status = strings.TrimSpace(status); status != "" {
		parsed, ok := parsePaymentStatus(status)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
		}
		filter.Status = parsed
	}
	payments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// ListBookingPayments returns the payment history of a booking.
func (s *PaymentService) ListBookingPayments(ctx context.Context, bookingID string, actor *models.JWTClaims) ([]models.Payment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if err := authorizeBookingViewer(ctx, s.access, booking, actor); err != nil {
		return nil, err
	}
	payments, err := s.repo.List(ctx, models.PaymentFilter{BookingID: bookingID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

func parsePaymentStatus(raw string) (models.PaymentStatus, bool) {
	for _, status := range []models.PaymentStatus{
		models.PaymentStatusPending,
		models.PaymentStatusApproved,
		models.PaymentStatusRejected,
		models.PaymentStatusCompleted,
		models.PaymentStatusFailed,
	} {
		if strings.EqualFold(raw, string(status)) {
			return status, true
		}
	}
	return "", false
}

// newTransactionID builds a human readable, globally unique payment reference.
func newTransactionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), suffix)
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return appErrors.FromError(err).Code
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.NotificationEvent) {}
