package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the accepted payment channels.
type PaymentMethod string

const (
	PaymentMethodMobileMoney  PaymentMethod = "MobileMoney"
	PaymentMethodCreditCard   PaymentMethod = "CreditCard"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
)

var paymentMethods = map[string]PaymentMethod{
	"mobilemoney":   PaymentMethodMobileMoney,
	"mobile_money":  PaymentMethodMobileMoney,
	"creditcard":    PaymentMethodCreditCard,
	"credit_card":   PaymentMethodCreditCard,
	"banktransfer":  PaymentMethodBankTransfer,
	"bank_transfer": PaymentMethodBankTransfer,
}

// ParsePaymentMethod normalises user supplied method names.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	m, ok := paymentMethods[strings.ToLower(strings.TrimSpace(raw))]
	return m, ok
}

// PaymentStatus enumerates verification states of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusApproved  PaymentStatus = "Approved"
	PaymentStatusRejected  PaymentStatus = "Rejected"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// CountsAsRevenue reports whether the payment has been accepted by a custodian.
func (s PaymentStatus) CountsAsRevenue() bool {
	return s == PaymentStatusApproved || s == PaymentStatusCompleted
}

// Payment is a student's payment submission against a booking.
type Payment struct {
	ID            string          `db:"id" json:"id"`
	BookingID     string          `db:"booking_id" json:"booking_id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	HostelID      string          `db:"hostel_id" json:"hostel_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	Status        PaymentStatus   `db:"status" json:"status"`
	ReviewedBy    *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentFilter scopes payment listings.
type PaymentFilter struct {
	HostelID  string
	BookingID string
	Status    PaymentStatus
}
