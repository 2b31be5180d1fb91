package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func lomeKara() SearchCriteria {
	return SearchCriteria{DepartureCity: "Lomé", ArrivalCity: "Kara", TravelDate: "2025-06-01", Passengers: 1}
}

func karaTrip() Trip {
	return Trip{
		ID:                "42",
		CompanyName:       "STIF",
		DepartureCityName: "Lomé",
		ArrivalCityName:   "Kara",
		DepartureTime:     "07:30",
		ArrivalTime:       "13:00",
		Price:             7500,
		Capacity:          50,
		AvailableSeats:    intPtr(48),
	}
}

func readyFlow(t *testing.T) *Flow {
	t.Helper()
	flow := NewFlow("flow-1", testNow)
	require.NoError(t, flow.BeginSearch(lomeKara()))
	require.NoError(t, flow.ApplySearchResults([]Trip{karaTrip()}))
	trip, err := flow.SelectTrip("42")
	require.NoError(t, err)
	require.NoError(t, flow.ApplySeatMap(DeriveSeatMap(trip, nil)))
	return flow
}

func TestFlow_BeginSearchRejectsInvalidCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria SearchCriteria
	}{
		{name: "missing departure", criteria: SearchCriteria{ArrivalCity: "Kara", TravelDate: "2025-06-01", Passengers: 1}},
		{name: "missing arrival", criteria: SearchCriteria{DepartureCity: "Lomé", TravelDate: "2025-06-01", Passengers: 1}},
		{name: "missing date", criteria: SearchCriteria{DepartureCity: "Lomé", ArrivalCity: "Kara", Passengers: 1}},
		{name: "bad date", criteria: SearchCriteria{DepartureCity: "Lomé", ArrivalCity: "Kara", TravelDate: "01/06/2025", Passengers: 1}},
		{name: "no passengers", criteria: SearchCriteria{DepartureCity: "Lomé", ArrivalCity: "Kara", TravelDate: "2025-06-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := NewFlow("f", testNow)
			before := *flow

			err := flow.BeginSearch(tt.criteria)

			assert.ErrorIs(t, err, ErrInvalidCriteria)
			assert.Equal(t, before, *flow)
		})
	}
}

func TestFlow_SearchToSeatsReady(t *testing.T) {
	flow := NewFlow("f", testNow)
	require.NoError(t, flow.BeginSearch(lomeKara()))
	assert.Equal(t, StateSearchEntered, flow.State)
	assert.Equal(t, uint64(1), flow.Epoch)

	require.NoError(t, flow.ApplySearchResults(nil))
	assert.Equal(t, StateResultsListed, flow.State)
	assert.NotNil(t, flow.Results)
	assert.Empty(t, flow.Results)

	require.NoError(t, flow.BeginSearch(lomeKara()))
	require.NoError(t, flow.ApplySearchResults([]Trip{karaTrip()}))

	_, err := flow.SelectTrip("missing")
	assert.ErrorIs(t, err, ErrTripNotFound)
	assert.Equal(t, StateResultsListed, flow.State)

	trip, err := flow.SelectTrip("42")
	require.NoError(t, err)
	assert.Equal(t, StateSeatsLoading, flow.State)

	require.NoError(t, flow.ApplySeatMap(DeriveSeatMap(trip, nil)))
	assert.Equal(t, StateSeatsReady, flow.State)
	assert.Equal(t, []int{1, 2}, flow.SeatMap.Occupied)
}

func TestFlow_SelectSeatRejectsWithoutStateChange(t *testing.T) {
	flow := readyFlow(t)
	require.NoError(t, flow.SelectSeat(5))
	before := *flow

	for _, n := range []int{-1, 0, 1, 2, 51, 100} {
		err := flow.SelectSeat(n)
		assert.ErrorIs(t, err, ErrInvalidSelection, "seat %d", n)
		assert.Equal(t, before, *flow, "seat %d", n)
	}
	assert.Equal(t, 5, *flow.SelectedSeat)
}

func TestFlow_SelectSeatIdempotentAndReplacing(t *testing.T) {
	flow := readyFlow(t)

	require.NoError(t, flow.SelectSeat(3))
	require.NoError(t, flow.SelectSeat(3))
	assert.Equal(t, 3, *flow.SelectedSeat)

	require.NoError(t, flow.SelectSeat(10))
	assert.Equal(t, 10, *flow.SelectedSeat)

	selected := 0
	for _, seat := range flow.SeatMap.Seats(*flow.SelectedSeat) {
		if seat.Selected {
			selected++
		}
	}
	assert.Equal(t, 1, selected)
}

func TestFlow_CanProceedToPaymentTruthTable(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		seat := mask&1 != 0
		first := mask&2 != 0
		last := mask&4 != 0
		phone := mask&8 != 0

		t.Run(fmt.Sprintf("seat=%v first=%v last=%v phone=%v", seat, first, last, phone), func(t *testing.T) {
			flow := readyFlow(t)
			if seat {
				require.NoError(t, flow.SelectSeat(3))
			}
			info := PassengerInfo{Email: "ama@example.com"}
			if first {
				info.FirstName = "Ama"
			}
			if last {
				info.LastName = "Koffi"
			}
			if phone {
				info.Phone = "+22890000000"
			}
			require.NoError(t, flow.SetPassengerInfo(info))

			assert.Equal(t, mask == 15, flow.CanProceedToPayment())
		})
	}
}

func TestFlow_BlankPassengerFieldsDoNotCount(t *testing.T) {
	flow := readyFlow(t)
	require.NoError(t, flow.SelectSeat(3))
	require.NoError(t, flow.SetPassengerInfo(PassengerInfo{FirstName: "  ", LastName: "Koffi", Phone: "+228"}))

	assert.False(t, flow.CanProceedToPayment())
	_, err := flow.ProceedToPayment("key", testNow)
	assert.ErrorIs(t, err, ErrCannotProceed)
	assert.Equal(t, StateSeatsReady, flow.State)
}

func TestFlow_PaymentLifecycle(t *testing.T) {
	flow := readyFlow(t)
	require.NoError(t, flow.SelectSeat(3))
	require.NoError(t, flow.SetPassengerInfo(PassengerInfo{FirstName: "Ama", LastName: "Koffi", Phone: "+22890000000"}))

	draft, err := flow.ProceedToPayment("idem-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, StatePaymentPending, flow.State)
	assert.Equal(t, 3, draft.SeatNumber)
	assert.Equal(t, "idem-1", draft.IdempotencyKey)

	_, err = flow.BeginPayment()
	require.NoError(t, err)
	_, err = flow.BeginPayment()
	assert.ErrorIs(t, err, ErrPaymentInProgress)
	assert.ErrorIs(t, flow.Back(), ErrPaymentInProgress)

	flow.PaymentFailed(&PaymentFailure{Stage: "confirmation", Cause: errors.New("declined")})
	assert.Equal(t, StatePaymentPending, flow.State)
	assert.Contains(t, flow.LastError, "declined")

	_, err = flow.BeginPayment()
	require.NoError(t, err)
	require.NoError(t, flow.AttachBooking(BookingRecord{ID: "b-9", Status: "pending"}))
	require.NoError(t, flow.ConfirmPayment(PaymentResult{
		Draft:         *flow.Draft,
		Method:        PaymentTMoney,
		Phone:         "+22890000000",
		PaymentID:     "PMT-123456",
		TransactionID: "TXN-1",
		Booking:       *flow.Draft.Booking,
		ConfirmedAt:   testNow,
	}))
	assert.Equal(t, StateConfirmed, flow.State)
	assert.False(t, flow.PaymentInFlight)
	assert.Empty(t, flow.LastError)

	ticket, err := flow.Ticket()
	require.NoError(t, err)
	assert.Equal(t, "TOGOBUS-TXN-1-3", ticket.Reference)
	assert.JSONEq(t, `{"transaction_id":"TXN-1","booking_id":"b-9","seat_number":3,"trip_id":"42"}`, ticket.QRPayload)

	assert.ErrorIs(t, flow.Back(), ErrInvalidTransition)
}

func TestFlow_ResetFromAnyState(t *testing.T) {
	flow := readyFlow(t)
	flow.UserID = "u-1"
	require.NoError(t, flow.SelectSeat(3))
	epoch := flow.Epoch

	flow.Reset()

	assert.Equal(t, StateSearchEntered, flow.State)
	assert.Equal(t, "flow-1", flow.ID)
	assert.Equal(t, "u-1", flow.UserID)
	assert.Greater(t, flow.Epoch, epoch)
	assert.Nil(t, flow.Criteria)
	assert.Nil(t, flow.Results)
	assert.Nil(t, flow.Trip)
	assert.Nil(t, flow.SelectedSeat)
	assert.Equal(t, PassengerInfo{}, flow.Passenger)

	_, err := flow.Ticket()
	assert.ErrorIs(t, err, ErrNoTicket)
}

func TestFlow_BackSteps(t *testing.T) {
	flow := readyFlow(t)
	require.NoError(t, flow.SelectSeat(3))
	require.NoError(t, flow.SetPassengerInfo(PassengerInfo{FirstName: "Ama", LastName: "Koffi", Phone: "+228"}))
	_, err := flow.ProceedToPayment("k", testNow)
	require.NoError(t, err)

	require.NoError(t, flow.Back())
	assert.Equal(t, StateSeatsReady, flow.State)
	assert.Nil(t, flow.Draft)
	assert.Equal(t, 3, *flow.SelectedSeat)

	require.NoError(t, flow.Back())
	assert.Equal(t, StateResultsListed, flow.State)
	assert.Nil(t, flow.Trip)
	assert.Len(t, flow.Results, 1)

	require.NoError(t, flow.Back())
	assert.Equal(t, StateSearchEntered, flow.State)
	assert.NotNil(t, flow.Criteria)

	assert.ErrorIs(t, flow.Back(), ErrInvalidTransition)
}

func TestFlow_BackKeepsCreatedBooking(t *testing.T) {
	flow := readyFlow(t)
	require.NoError(t, flow.SelectSeat(3))
	require.NoError(t, flow.SetPassengerInfo(PassengerInfo{FirstName: "Ama", LastName: "Koffi", Phone: "+228"}))
	_, err := flow.ProceedToPayment("idem-1", testNow)
	require.NoError(t, err)
	_, err = flow.BeginPayment()
	require.NoError(t, err)
	require.NoError(t, flow.AttachBooking(BookingRecord{ID: "b-9", Status: "pending"}))
	flow.PaymentFailed(errors.New("declined"))

	require.NoError(t, flow.Back())
	assert.Equal(t, StateSeatsReady, flow.State)
	assert.Nil(t, flow.Draft)
	require.NotNil(t, flow.HeldDraft)

	draft, err := flow.ProceedToPayment("idem-2", testNow)
	require.NoError(t, err)
	assert.Equal(t, "idem-1", draft.IdempotencyKey)
	require.NotNil(t, draft.Booking)
	assert.Equal(t, "b-9", draft.Booking.ID)
	assert.Nil(t, flow.HeldDraft)
}

func TestFlow_BackThenChangedSeatDraftsNewBooking(t *testing.T) {
	flow := readyFlow(t)
	require.NoError(t, flow.SelectSeat(3))
	require.NoError(t, flow.SetPassengerInfo(PassengerInfo{FirstName: "Ama", LastName: "Koffi", Phone: "+228"}))
	_, err := flow.ProceedToPayment("idem-1", testNow)
	require.NoError(t, err)
	_, err = flow.BeginPayment()
	require.NoError(t, err)
	require.NoError(t, flow.AttachBooking(BookingRecord{ID: "b-9"}))
	flow.PaymentFailed(errors.New("declined"))
	require.NoError(t, flow.Back())

	require.NoError(t, flow.SelectSeat(4))
	draft, err := flow.ProceedToPayment("idem-2", testNow)
	require.NoError(t, err)
	assert.Equal(t, "idem-2", draft.IdempotencyKey)
	assert.Nil(t, draft.Booking)
}

func TestFlow_AbortSeatLoading(t *testing.T) {
	flow := NewFlow("f", testNow)
	require.NoError(t, flow.BeginSearch(lomeKara()))
	require.NoError(t, flow.ApplySearchResults([]Trip{karaTrip()}))
	_, err := flow.SelectTrip("42")
	require.NoError(t, err)

	require.NoError(t, flow.AbortSeatLoading(&SeatFetchFailure{TripID: "42", Cause: errors.New("timeout")}))

	assert.Equal(t, StateResultsListed, flow.State)
	assert.Nil(t, flow.Trip)
	assert.Contains(t, flow.LastError, "trip 42")
}

func TestFlow_CompaniesAndFilter(t *testing.T) {
	flow := NewFlow("f", testNow)
	flow.Results = []Trip{
		{ID: "1", CompanyName: "STIF"},
		{ID: "2", CompanyName: "Rakieta"},
		{ID: "3", CompanyName: "STIF"},
	}

	assert.Equal(t, []string{"STIF", "Rakieta"}, flow.Companies())
	assert.Len(t, flow.FilterResults("STIF"), 2)
	assert.Len(t, flow.FilterResults(""), 3)
	assert.Empty(t, flow.FilterResults("ETRAB"))
}

func TestFlow_OperationsOutOfOrder(t *testing.T) {
	flow := NewFlow("f", testNow)

	_, err := flow.SelectTrip("42")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, flow.SelectSeat(1), ErrInvalidTransition)
	assert.ErrorIs(t, flow.SetPassengerInfo(PassengerInfo{}), ErrInvalidTransition)
	_, err = flow.ProceedToPayment("k", testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = flow.BeginPayment()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, IsConflict(err))
}
