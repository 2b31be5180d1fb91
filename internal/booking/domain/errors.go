package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCriteria   = errors.New("invalid search criteria")
	ErrInvalidSelection  = errors.New("invalid seat selection")
	ErrInvalidPassenger  = errors.New("invalid passenger info")
	ErrCannotProceed     = errors.New("cannot proceed to payment")
	ErrInvalidPayment    = errors.New("invalid payment details")
	ErrInvalidTransition = errors.New("invalid flow transition")
	ErrFlowSuperseded    = errors.New("booking flow was superseded")
	ErrFlowNotFound      = errors.New("booking flow not found")
	ErrTripNotFound      = errors.New("trip is not part of the listed results")
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrNoTicket          = errors.New("no ticket issued for this flow")
)

// SearchFailure wraps a rejected or failed trip search.
type SearchFailure struct {
	Cause error
}

func (e *SearchFailure) Error() string {
	return fmt.Sprintf("trip search failed: %v", e.Cause)
}

func (e *SearchFailure) Unwrap() error {
	return e.Cause
}

// SeatFetchFailure is logged, not surfaced, unless authoritative seat data is required.
type SeatFetchFailure struct {
	TripID string
	Cause  error
}

func (e *SeatFetchFailure) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("booked seats unavailable for trip %s", e.TripID)
	}
	return fmt.Sprintf("booked seats unavailable for trip %s: %v", e.TripID, e.Cause)
}

func (e *SeatFetchFailure) Unwrap() error {
	return e.Cause
}

// PaymentFailure leaves the flow in payment_pending; the user may resubmit.
type PaymentFailure struct {
	Stage string
	Cause error
}

func (e *PaymentFailure) Error() string {
	return fmt.Sprintf("payment failed during %s: %v", e.Stage, e.Cause)
}

func (e *PaymentFailure) Unwrap() error {
	return e.Cause
}

// IsValidation reports errors caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidCriteria) ||
		errors.Is(err, ErrInvalidSelection) ||
		errors.Is(err, ErrInvalidPassenger) ||
		errors.Is(err, ErrCannotProceed) ||
		errors.Is(err, ErrInvalidPayment) ||
		errors.Is(err, ErrTripNotFound)
}

// IsConflict reports errors caused by the flow being in the wrong state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrFlowSuperseded) ||
		errors.Is(err, ErrPaymentInProgress)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound) || errors.Is(err, ErrNoTicket)
}

// IsUpstream reports failures of the booking backend or payment service.
func IsUpstream(err error) bool {
	var search *SearchFailure
	var seats *SeatFetchFailure
	var payment *PaymentFailure
	return errors.As(err, &search) || errors.As(err, &seats) || errors.As(err, &payment)
}
