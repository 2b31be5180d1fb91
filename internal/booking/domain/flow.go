package domain

import (
	"fmt"
	"time"
)

type FlowState string

const (
	StateSearchEntered  FlowState = "search_entered"
	StateResultsListed  FlowState = "results_listed"
	StateTripSelected   FlowState = "trip_selected"
	StateSeatsLoading   FlowState = "seats_loading"
	StateSeatsReady     FlowState = "seats_ready"
	StatePaymentPending FlowState = "payment_pending"
	StateConfirmed      FlowState = "confirmed"
)

// Flow is one prospective reservation. Epoch changes whenever an operation
// supersedes earlier work, so results of an external call started under an
// older epoch are discarded instead of applied.
type Flow struct {
	ID              string          `json:"id"`
	Epoch           uint64          `json:"epoch"`
	State           FlowState       `json:"state"`
	Criteria        *SearchCriteria `json:"criteria,omitempty"`
	Results         []Trip          `json:"results,omitempty"`
	Trip            *Trip           `json:"trip,omitempty"`
	SeatMap         *SeatMap        `json:"seat_map,omitempty"`
	SelectedSeat    *int            `json:"selected_seat,omitempty"`
	Passenger       PassengerInfo   `json:"passenger"`
	Draft           *BookingDraft   `json:"draft,omitempty"`
	HeldDraft       *BookingDraft   `json:"held_draft,omitempty"`
	Payment         *PaymentResult  `json:"payment,omitempty"`
	PaymentInFlight bool            `json:"payment_in_flight,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
	UserID          string          `json:"user_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func NewFlow(id string, now time.Time) *Flow {
	return &Flow{
		ID:        id,
		State:     StateSearchEntered,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (f *Flow) transitionError(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, op, f.State)
}

func (f *Flow) supersede() {
	f.Epoch++
	f.PaymentInFlight = false
}

func (f *Flow) clearFrom(state FlowState) {
	switch state {
	case StateSearchEntered:
		f.Results = nil
		fallthrough
	case StateResultsListed:
		f.Trip = nil
		f.SeatMap = nil
		f.SelectedSeat = nil
		f.HeldDraft = nil
		fallthrough
	case StateSeatsReady:
		f.Draft = nil
		f.Payment = nil
	}
}

// BeginSearch validates criteria and enters search_entered. Invalid criteria
// leave the flow untouched.
func (f *Flow) BeginSearch(criteria SearchCriteria) error {
	if f.State != StateSearchEntered && f.State != StateResultsListed {
		return f.transitionError("search")
	}
	if err := criteria.Validate(); err != nil {
		return err
	}
	f.supersede()
	f.State = StateSearchEntered
	f.Criteria = &criteria
	f.clearFrom(StateSearchEntered)
	f.LastError = ""
	return nil
}

func (f *Flow) ApplySearchResults(trips []Trip) error {
	if f.State != StateSearchEntered || f.Criteria == nil {
		return f.transitionError("apply search results")
	}
	if trips == nil {
		trips = []Trip{}
	}
	f.Results = trips
	f.State = StateResultsListed
	f.LastError = ""
	return nil
}

// RecordError keeps the last surfaced failure for the view.
func (f *Flow) RecordError(err error) {
	if err == nil {
		f.LastError = ""
		return
	}
	f.LastError = err.Error()
}

// SelectTrip moves through trip_selected into seats_loading and returns the
// chosen trip so the caller can fetch its booked seats.
func (f *Flow) SelectTrip(tripID string) (Trip, error) {
	if f.State != StateResultsListed {
		return Trip{}, f.transitionError("select a trip")
	}
	var chosen *Trip
	for i := range f.Results {
		if f.Results[i].ID == tripID {
			chosen = &f.Results[i]
			break
		}
	}
	if chosen == nil {
		return Trip{}, fmt.Errorf("%w: %s", ErrTripNotFound, tripID)
	}

	trip := *chosen
	f.supersede()
	f.clearFrom(StateResultsListed)
	f.Trip = &trip
	f.State = StateSeatsLoading
	f.LastError = ""
	return trip, nil
}

func (f *Flow) ApplySeatMap(seatMap SeatMap) error {
	if f.State != StateSeatsLoading {
		return f.transitionError("apply seat map")
	}
	f.SeatMap = &seatMap
	f.State = StateSeatsReady
	return nil
}

// AbortSeatLoading returns to results_listed when no seat map can be built.
func (f *Flow) AbortSeatLoading(cause error) error {
	if f.State != StateSeatsLoading {
		return f.transitionError("abort seat loading")
	}
	f.clearFrom(StateResultsListed)
	f.State = StateResultsListed
	f.RecordError(cause)
	return nil
}

// SelectSeat replaces the current selection. Occupied or out-of-range seats
// are rejected without touching the flow.
func (f *Flow) SelectSeat(n int) error {
	if f.State != StateSeatsReady || f.SeatMap == nil {
		return f.transitionError("select a seat")
	}
	if !f.SeatMap.CanSelect(n) {
		if n < 1 || n > f.SeatMap.Capacity {
			return fmt.Errorf("%w: seat %d is outside 1..%d", ErrInvalidSelection, n, f.SeatMap.Capacity)
		}
		return fmt.Errorf("%w: seat %d is occupied", ErrInvalidSelection, n)
	}
	seat := n
	f.SelectedSeat = &seat
	return nil
}

func (f *Flow) SetPassengerInfo(info PassengerInfo) error {
	if f.State != StateSeatsReady {
		return f.transitionError("set passenger info")
	}
	f.Passenger = info.Normalize()
	return nil
}

// CanProceedToPayment holds when a seat is selected and first name, last name
// and phone are all non-empty.
func (f *Flow) CanProceedToPayment() bool {
	return f.SelectedSeat != nil && f.Passenger.Complete()
}

// ProceedToPayment freezes the draft. idempotencyKey keys every payment
// attempt for this draft.
func (f *Flow) ProceedToPayment(idempotencyKey string, now time.Time) (BookingDraft, error) {
	if f.State != StateSeatsReady {
		return BookingDraft{}, f.transitionError("proceed to payment")
	}
	if !f.CanProceedToPayment() {
		return BookingDraft{}, fmt.Errorf("%w: a seat and the passenger's first name, last name and phone are required", ErrCannotProceed)
	}

	draft := BookingDraft{
		Trip:           *f.Trip,
		SeatNumber:     *f.SelectedSeat,
		Passenger:      f.Passenger,
		Criteria:       *f.Criteria,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	}
	if held := f.HeldDraft; held != nil && held.Matches(draft) {
		draft.IdempotencyKey = held.IdempotencyKey
		draft.Booking = held.Booking
	}
	f.HeldDraft = nil
	f.Draft = &draft
	f.State = StatePaymentPending
	f.LastError = ""
	return draft, nil
}

// BeginPayment marks a payment attempt in flight and returns the draft to pay.
func (f *Flow) BeginPayment() (BookingDraft, error) {
	if f.State != StatePaymentPending || f.Draft == nil {
		return BookingDraft{}, f.transitionError("pay")
	}
	if f.PaymentInFlight {
		return BookingDraft{}, ErrPaymentInProgress
	}
	f.PaymentInFlight = true
	return *f.Draft, nil
}

func (f *Flow) AttachBooking(record BookingRecord) error {
	if f.State != StatePaymentPending || f.Draft == nil {
		return f.transitionError("attach booking")
	}
	f.Draft.Booking = &record
	return nil
}

func (f *Flow) ConfirmPayment(result PaymentResult) error {
	if f.State != StatePaymentPending {
		return f.transitionError("confirm payment")
	}
	f.Payment = &result
	f.PaymentInFlight = false
	f.State = StateConfirmed
	f.LastError = ""
	return nil
}

// PaymentFailed keeps the flow in payment_pending so the user can resubmit.
func (f *Flow) PaymentFailed(cause error) {
	f.PaymentInFlight = false
	f.RecordError(cause)
}

// Reset discards everything but the flow's identity, from any state.
func (f *Flow) Reset() {
	f.supersede()
	f.State = StateSearchEntered
	f.Criteria = nil
	f.clearFrom(StateSearchEntered)
	f.Passenger = PassengerInfo{}
	f.LastError = ""
}

// Back steps to the previous screen and abandons any call in flight.
func (f *Flow) Back() error {
	switch f.State {
	case StateResultsListed:
		f.clearFrom(StateSearchEntered)
		f.State = StateSearchEntered
	case StateTripSelected, StateSeatsLoading, StateSeatsReady:
		f.clearFrom(StateResultsListed)
		f.State = StateResultsListed
	case StatePaymentPending:
		if f.PaymentInFlight {
			return ErrPaymentInProgress
		}
		// A booking already created upstream is reused if the same draft is
		// proceeded again.
		if f.Draft != nil && f.Draft.Booking != nil {
			f.HeldDraft = f.Draft
		}
		f.clearFrom(StateSeatsReady)
		f.State = StateSeatsReady
	default:
		return f.transitionError("go back")
	}
	f.supersede()
	f.LastError = ""
	return nil
}

// Companies lists the distinct companies in the results, in order of appearance.
func (f *Flow) Companies() []string {
	seen := make(map[string]struct{})
	var companies []string
	for _, trip := range f.Results {
		if _, ok := seen[trip.CompanyName]; ok || trip.CompanyName == "" {
			continue
		}
		seen[trip.CompanyName] = struct{}{}
		companies = append(companies, trip.CompanyName)
	}
	return companies
}

// FilterResults narrows the results to one company; empty returns them all.
func (f *Flow) FilterResults(company string) []Trip {
	if company == "" {
		return f.Results
	}
	var trips []Trip
	for _, trip := range f.Results {
		if trip.CompanyName == company {
			trips = append(trips, trip)
		}
	}
	return trips
}

// Ticket is available once the flow is confirmed.
func (f *Flow) Ticket() (Ticket, error) {
	if f.State != StateConfirmed || f.Payment == nil {
		return Ticket{}, ErrNoTicket
	}
	return NewTicket(*f.Payment)
}

func (f *Flow) Touch(now time.Time) {
	f.UpdatedAt = now
}
