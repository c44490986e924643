package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrUniqueViolation is returned when an insert or update collides with a unique index.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrActiveBookingExists is returned when the student already holds an active booking.
	ErrActiveBookingExists = errors.New("student already has an active booking")
	// ErrOpenPaymentExists is returned when a booking already has a pending or accepted payment.
	ErrOpenPaymentExists = errors.New("booking already has an open payment")
	// ErrStaleWrite is returned when a conditional write inside a transaction matched no row.
	ErrStaleWrite = errors.New("row changed concurrently")

	ErrPaymentNotFound = errors.New("payment not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrBookingNotFound = errors.New("booking not found")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
