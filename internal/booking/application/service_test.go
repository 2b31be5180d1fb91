package application

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
	"github.com/mateusmacedo/togobus-bff/pkg/infrastructure"
)

var fixedNow = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func lomeKaraTrip() domain.Trip {
	return domain.Trip{
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

func lomeKaraCriteria() domain.SearchCriteria {
	return domain.SearchCriteria{DepartureCity: "Lomé", ArrivalCity: "Kara", TravelDate: "2025-06-01", Passengers: 1}
}

type fakeTrips struct {
	mu          sync.Mutex
	trips       []domain.Trip
	searchErr   error
	booked      []string
	bookedErr   error
	bookingErr  error
	bookings    []domain.BookingRequest
	onSearch    func()
	onBookedGet func()
}

func (f *fakeTrips) SearchTrips(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Trip, error) {
	if f.onSearch != nil {
		f.onSearch()
	}
	return f.trips, f.searchErr
}

func (f *fakeTrips) GetBookedSeats(ctx context.Context, tripID, travelDate string) ([]string, error) {
	if f.onBookedGet != nil {
		f.onBookedGet()
	}
	return f.booked, f.bookedErr
}

func (f *fakeTrips) CreateBooking(ctx context.Context, request domain.BookingRequest) (domain.BookingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookingErr != nil {
		return domain.BookingRecord{}, f.bookingErr
	}
	f.bookings = append(f.bookings, request)
	return domain.BookingRecord{ID: "b-1", Status: "pending"}, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	failures int
	status   string
	requests []domain.PaymentRequest
}

func (g *fakeGateway) Confirm(ctx context.Context, request domain.PaymentRequest) (domain.PaymentConfirmation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, request)
	if g.failures > 0 {
		g.failures--
		return domain.PaymentConfirmation{}, errors.New("operator unreachable")
	}
	status := g.status
	if status == "" {
		status = domain.PaymentStatusCompleted
	}
	return domain.PaymentConfirmation{PaymentID: "PMT-000001", TransactionID: "TXN-1748764800000", Status: status}, nil
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets []domain.Ticket
}

func (r *fakeTickets) Save(ctx context.Context, ticket domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, ticket)
	return nil
}

func (r *fakeTickets) FindByPhone(ctx context.Context, phone string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.PassengerPhone == phone {
			found = append(found, ticket)
		}
	}
	return found, nil
}

type countingMetrics struct {
	mu          sync.Mutex
	transitions []string
	fallbacks   int
	payments    map[string]int
}

func (m *countingMetrics) FlowTransition(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, state)
}

func (m *countingMetrics) SeatMapFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *countingMetrics) PaymentOutcome(method, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payments == nil {
		m.payments = map[string]int{}
	}
	m.payments[method+"/"+outcome]++
}

type fixture struct {
	service  *FlowService
	trips    *fakeTrips
	gateway  *fakeGateway
	tickets  *fakeTickets
	metrics  *countingMetrics
	commands FlowCommandBus
	queries  FlowQueryBus
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()
	logger := pkgApp.NopLogger()
	f := &fixture{
		trips:   &fakeTrips{trips: []domain.Trip{lomeKaraTrip()}},
		gateway: &fakeGateway{},
		tickets: &fakeTickets{},
		metrics: &countingMetrics{},
	}

	eventBus := infrastructure.NewSimpleEventBus[pkgDomain.Event[domain.Ticket], domain.Ticket](logger)
	eventBus.RegisterHandler(TicketIssuedEvent, NewTicketLedgerHandler(f.tickets, logger))

	ids := 0
	idGenerator := func() string {
		ids++
		return "idem-" + strconv.Itoa(ids)
	}

	opts = append([]ServiceOption{WithClock(func() time.Time { return fixedNow }), WithMetrics(f.metrics)}, opts...)
	f.service = NewFlowService(
		infrastructure.NewInMemoryStateStore[domain.Flow](logger),
		f.trips, f.gateway, eventBus, idGenerator, logger, opts...,
	)

	f.commands = infrastructure.NewSimpleCommandBus[pkgDomain.Command[FlowCommand], FlowCommand](logger)
	RegisterFlowHandlers(f.commands, f.service, logger)
	f.queries = infrastructure.NewSimpleQueryBus[pkgDomain.Query[GetFlowData], GetFlowData, FlowView](logger)
	f.queries.RegisterHandler(GetFlowQuery, NewGetFlowHandler(f.service, logger))
	return f
}

func (f *fixture) dispatch(t *testing.T, data FlowCommand) error {
	t.Helper()
	return f.commands.Dispatch(context.Background(), NewFlowCommand(data))
}

func (f *fixture) view(t *testing.T, id string) FlowView {
	t.Helper()
	view, err := f.queries.Dispatch(context.Background(), NewGetFlowQuery(GetFlowData{FlowID: id}))
	require.NoError(t, err)
	return view
}

func (f *fixture) toSeatsReady(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.dispatch(t, StartFlowData{Flow: id}))
	require.NoError(t, f.dispatch(t, SearchTripsData{Flow: id, Criteria: lomeKaraCriteria()}))
	require.NoError(t, f.dispatch(t, SelectTripData{Flow: id, TripID: "42"}))
}

func (f *fixture) toPaymentPending(t *testing.T, id string) {
	t.Helper()
	f.toSeatsReady(t, id)
	require.NoError(t, f.dispatch(t, SelectSeatData{Flow: id, Seat: 3}))
	require.NoError(t, f.dispatch(t, SetPassengerData{Flow: id, Passenger: domain.PassengerInfo{FirstName: "Ama", LastName: "Koffi", Phone: "+22890000000"}}))
	require.NoError(t, f.dispatch(t, ProceedToPaymentData{Flow: id}))
}

func TestBookingFlow_LomeToKaraEndToEnd(t *testing.T) {
	f := newFixture(t)
	const id = "flow-1"

	require.NoError(t, f.dispatch(t, StartFlowData{Flow: id}))
	require.NoError(t, f.dispatch(t, SearchTripsData{Flow: id, Criteria: lomeKaraCriteria()}))
	view := f.view(t, id)
	assert.Equal(t, domain.StateResultsListed, view.State)
	require.Len(t, view.Results, 1)

	require.NoError(t, f.dispatch(t, SelectTripData{Flow: id, TripID: "42"}))
	view = f.view(t, id)
	assert.Equal(t, domain.StateSeatsReady, view.State)
	assert.Equal(t, []int{1, 2}, view.SeatMap.Occupied)
	assert.Equal(t, domain.SeatSourceApproximated, view.SeatMap.Source)

	require.NoError(t, f.dispatch(t, SelectSeatData{Flow: id, Seat: 3}))
	err := f.dispatch(t, SelectSeatData{Flow: id, Seat: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	view = f.view(t, id)
	assert.Equal(t, 3, *view.SelectedSeat)
	assert.False(t, view.CanProceedToPayment)

	require.NoError(t, f.dispatch(t, SetPassengerData{Flow: id, Passenger: domain.PassengerInfo{FirstName: "Ama", LastName: "Koffi", Phone: "+22890000000"}}))
	view = f.view(t, id)
	assert.True(t, view.CanProceedToPayment)
	assert.True(t, view.PassengerInfoValid)
	assert.True(t, view.SeatSelected)

	require.NoError(t, f.dispatch(t, ProceedToPaymentData{Flow: id}))
	require.NoError(t, f.dispatch(t, PayData{Flow: id, Method: "tmoney", Phone: "+22890000000"}))

	view = f.view(t, id)
	assert.Equal(t, domain.StateConfirmed, view.State)
	require.NotNil(t, view.Payment)
	assert.NotEmpty(t, view.Payment.TransactionID)
	require.NotNil(t, view.Ticket)
	assert.Equal(t, "TOGOBUS-TXN-1748764800000-3", view.Ticket.Reference)

	require.Len(t, f.trips.bookings, 1)
	assert.Equal(t, "mobile_money", f.trips.bookings[0].PaymentMethod)
	assert.Equal(t, "Ama Koffi", f.trips.bookings[0].PassengerName)

	tickets, err := f.tickets.FindByPhone(context.Background(), "+22890000000")
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	assert.Equal(t, 1, f.metrics.payments["tmoney/completed"])
}

func TestBookingFlow_SearchFailureStaysInSearchEntered(t *testing.T) {
	f := newFixture(t)
	f.trips.searchErr = errors.New("502 bad gateway")
	require.NoError(t, f.dispatch(t, StartFlowData{Flow: "f"}))

	err := f.dispatch(t, SearchTripsData{Flow: "f", Criteria: lomeKaraCriteria()})

	var failure *domain.SearchFailure
	require.ErrorAs(t, err, &failure)
	view := f.view(t, "f")
	assert.Equal(t, domain.StateSearchEntered, view.State)
	assert.Contains(t, view.LastError, "502 bad gateway")

	f.trips.searchErr = nil
	require.NoError(t, f.dispatch(t, SearchTripsData{Flow: "f", Criteria: lomeKaraCriteria()}))
	assert.Equal(t, domain.StateResultsListed, f.view(t, "f").State)
}

func TestBookingFlow_InvalidCriteriaLeavesFlowUntouched(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatch(t, StartFlowData{Flow: "f"}))

	err := f.dispatch(t, SearchTripsData{Flow: "f", Criteria: domain.SearchCriteria{DepartureCity: "Lomé"}})

	assert.ErrorIs(t, err, domain.ErrInvalidCriteria)
	assert.Nil(t, f.view(t, "f").Criteria)
}

func TestBookingFlow_SeatFetchFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.trips.bookedErr = errors.New("timeout")

	f.toSeatsReady(t, "f")

	view := f.view(t, "f")
	assert.Equal(t, domain.StateSeatsReady, view.State)
	assert.Equal(t, []int{1, 2}, view.SeatMap.Occupied)
	assert.Equal(t, 1, f.metrics.fallbacks)
	assert.Empty(t, view.LastError)
}

func TestBookingFlow_BookedSeatsFromBackend(t *testing.T) {
	f := newFixture(t)
	f.trips.booked = []string{"10", "11", "oops"}

	f.toSeatsReady(t, "f")

	view := f.view(t, "f")
	assert.Equal(t, []int{10, 11}, view.SeatMap.Occupied)
	assert.Equal(t, domain.SeatSourceBackend, view.SeatMap.Source)
	assert.Zero(t, f.metrics.fallbacks)
	assert.Len(t, view.Seats, 50)
}

func TestBookingFlow_AuthoritativeSeatsRequired(t *testing.T) {
	t.Run("fetch failure returns to results", func(t *testing.T) {
		f := newFixture(t, WithAuthoritativeSeats(true))
		f.trips.bookedErr = errors.New("timeout")
		require.NoError(t, f.dispatch(t, StartFlowData{Flow: "f"}))
		require.NoError(t, f.dispatch(t, SearchTripsData{Flow: "f", Criteria: lomeKaraCriteria()}))

		err := f.dispatch(t, SelectTripData{Flow: "f", TripID: "42"})

		var failure *domain.SeatFetchFailure
		require.ErrorAs(t, err, &failure)
		view := f.view(t, "f")
		assert.Equal(t, domain.StateResultsListed, view.State)
		assert.Nil(t, view.Trip)
		assert.NotEmpty(t, view.LastError)
	})

	t.Run("empty list is trusted", func(t *testing.T) {
		f := newFixture(t, WithAuthoritativeSeats(true))
		f.trips.booked = []string{}

		f.toSeatsReady(t, "f")

		view := f.view(t, "f")
		assert.Equal(t, domain.SeatSourceBackend, view.SeatMap.Source)
		assert.Empty(t, view.SeatMap.Occupied)
	})
}

func TestBookingFlow_ResetSupersedesInFlightSearch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatch(t, StartFlowData{Flow: "f"}))
	f.trips.onSearch = func() {
		require.NoError(t, f.service.Reset(context.Background(), "f"))
	}

	err := f.dispatch(t, SearchTripsData{Flow: "f", Criteria: lomeKaraCriteria()})

	assert.ErrorIs(t, err, domain.ErrFlowSuperseded)
	view := f.view(t, "f")
	assert.Equal(t, domain.StateSearchEntered, view.State)
	assert.Nil(t, view.Results)
	assert.Nil(t, view.Criteria)
}

func TestBookingFlow_BackSupersedesSeatLoading(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatch(t, StartFlowData{Flow: "f"}))
	require.NoError(t, f.dispatch(t, SearchTripsData{Flow: "f", Criteria: lomeKaraCriteria()}))
	f.trips.onBookedGet = func() {
		require.NoError(t, f.service.Back(context.Background(), "f"))
	}

	err := f.dispatch(t, SelectTripData{Flow: "f", TripID: "42"})

	assert.ErrorIs(t, err, domain.ErrFlowSuperseded)
	view := f.view(t, "f")
	assert.Equal(t, domain.StateResultsListed, view.State)
	assert.Nil(t, view.SeatMap)
}

func TestBookingFlow_PaymentFailureAllowsResubmission(t *testing.T) {
	f := newFixture(t)
	f.gateway.failures = 1
	f.toPaymentPending(t, "f")

	err := f.dispatch(t, PayData{Flow: "f", Method: "flooz", Phone: "+22891111111"})

	var failure *domain.PaymentFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "confirmation", failure.Stage)
	view := f.view(t, "f")
	assert.Equal(t, domain.StatePaymentPending, view.State)
	assert.False(t, view.PaymentInFlight)
	assert.Contains(t, view.LastError, "operator unreachable")
	require.NotNil(t, view.Draft.Booking)

	require.NoError(t, f.dispatch(t, PayData{Flow: "f", Method: "flooz", Phone: "+22891111111"}))
	assert.Equal(t, domain.StateConfirmed, f.view(t, "f").State)

	assert.Len(t, f.trips.bookings, 1, "backend booking is created once per draft")
	require.Len(t, f.gateway.requests, 2)
	assert.Equal(t, f.gateway.requests[0].IdempotencyKey, f.gateway.requests[1].IdempotencyKey)
	assert.Equal(t, "b-1", f.gateway.requests[1].BookingID)
	assert.Equal(t, 7500.0, f.gateway.requests[1].Amount)
	assert.Equal(t, 1, f.metrics.payments["flooz/failed"])
}

func TestBookingFlow_BackAfterFailedPaymentReusesBooking(t *testing.T) {
	f := newFixture(t)
	f.gateway.failures = 1
	f.toPaymentPending(t, "f")

	require.Error(t, f.dispatch(t, PayData{Flow: "f", Method: "tmoney", Phone: "+22890000000"}))
	require.NoError(t, f.dispatch(t, GoBackData{Flow: "f"}))
	assert.Equal(t, domain.StateSeatsReady, f.view(t, "f").State)

	require.NoError(t, f.dispatch(t, ProceedToPaymentData{Flow: "f"}))
	require.NoError(t, f.dispatch(t, PayData{Flow: "f", Method: "tmoney", Phone: "+22890000000"}))
	assert.Equal(t, domain.StateConfirmed, f.view(t, "f").State)

	assert.Len(t, f.trips.bookings, 1)
	require.Len(t, f.gateway.requests, 2)
	assert.Equal(t, f.gateway.requests[0].IdempotencyKey, f.gateway.requests[1].IdempotencyKey)
}

func TestBookingFlow_BookingCreationFailure(t *testing.T) {
	f := newFixture(t)
	f.trips.bookingErr = errors.New("seat already booked")
	f.toPaymentPending(t, "f")

	err := f.dispatch(t, PayData{Flow: "f", Method: "cash", Phone: "+228"})

	var failure *domain.PaymentFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "booking", failure.Stage)
	assert.Empty(t, f.gateway.requests)
	assert.Equal(t, domain.StatePaymentPending, f.view(t, "f").State)
}

func TestBookingFlow_DeclinedPaymentStatus(t *testing.T) {
	f := newFixture(t)
	f.gateway.status = "failed"
	f.toPaymentPending(t, "f")

	err := f.dispatch(t, PayData{Flow: "f", Method: "bank_card", Phone: "+228"})

	var failure *domain.PaymentFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, domain.StatePaymentPending, f.view(t, "f").State)
	assert.Empty(t, f.tickets.tickets)
}

func TestBookingFlow_PayValidation(t *testing.T) {
	f := newFixture(t)
	f.toPaymentPending(t, "f")

	assert.ErrorIs(t, f.dispatch(t, PayData{Flow: "f", Method: "", Phone: "+228"}), domain.ErrInvalidPayment)
	assert.ErrorIs(t, f.dispatch(t, PayData{Flow: "f", Method: "tmoney", Phone: "  "}), domain.ErrInvalidPayment)
	assert.Empty(t, f.trips.bookings)
}

func TestBookingFlow_PayBeforeProceedIsConflict(t *testing.T) {
	f := newFixture(t)
	f.toSeatsReady(t, "f")

	err := f.dispatch(t, PayData{Flow: "f", Method: "tmoney", Phone: "+228"})

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBookingFlow_UnknownFlow(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.dispatch(t, SelectSeatData{Flow: "nope", Seat: 3}), domain.ErrFlowNotFound)
	_, err := f.queries.Dispatch(context.Background(), NewGetFlowQuery(GetFlowData{FlowID: "nope"}))
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestBookingFlow_ViewFiltersByCompany(t *testing.T) {
	f := newFixture(t)
	other := lomeKaraTrip()
	other.ID = "43"
	other.CompanyName = "Rakieta"
	f.trips.trips = []domain.Trip{lomeKaraTrip(), other}
	require.NoError(t, f.dispatch(t, StartFlowData{Flow: "f"}))
	require.NoError(t, f.dispatch(t, SearchTripsData{Flow: "f", Criteria: lomeKaraCriteria()}))

	view, err := f.queries.Dispatch(context.Background(), NewGetFlowQuery(GetFlowData{FlowID: "f", Company: "Rakieta"}))

	require.NoError(t, err)
	assert.Equal(t, []string{"STIF", "Rakieta"}, view.Companies)
	require.Len(t, view.Results, 1)
	assert.Equal(t, "43", view.Results[0].ID)
}

func TestFindTicketsHandler(t *testing.T) {
	repo := &fakeTickets{tickets: []domain.Ticket{
		{Reference: "TOGOBUS-TXN-1-3", PassengerPhone: "+228", UserID: "u-1"},
		{Reference: "TOGOBUS-TXN-2-4", PassengerPhone: "+228", UserID: "u-2"},
		{Reference: "TOGOBUS-TXN-3-5", PassengerPhone: "+228"},
	}}
	handler := NewFindTicketsHandler(repo, pkgApp.NopLogger())

	tickets, err := handler.Handle(context.Background(), NewFindTicketsQuery(FindTicketsData{Phone: " +228 ", UserID: "u-1"}))
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "TOGOBUS-TXN-1-3", tickets[0].Reference)

	tickets, err = handler.Handle(context.Background(), NewFindTicketsQuery(FindTicketsData{Phone: "+228"}))
	require.NoError(t, err)
	assert.Empty(t, tickets)

	tickets, err = handler.Handle(context.Background(), NewFindTicketsQuery(FindTicketsData{Phone: "+228", All: true}))
	require.NoError(t, err)
	assert.Len(t, tickets, 3)

	_, err = handler.Handle(context.Background(), NewFindTicketsQuery(FindTicketsData{}))
	assert.ErrorIs(t, err, domain.ErrInvalidPassenger)
}
