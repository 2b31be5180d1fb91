package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

type TicketEventBus = pkgApp.EventBus[pkgDomain.Event[domain.Ticket], domain.Ticket]

// FlowService drives booking flows. External calls run outside the flow lock;
// their results are applied only if no superseding operation happened meanwhile.
type FlowService struct {
	flows       *FlowRepository
	trips       domain.TripService
	payments    domain.PaymentGateway
	eventBus    TicketEventBus
	idGenerator pkgDomain.IDGenerator[string]
	logger      pkgApp.AppLogger
	metrics     Metrics
	locks       pkgApp.Locker
	now         func() time.Time

	requireAuthoritativeSeats bool
}

type ServiceOption func(*FlowService)

// WithAuthoritativeSeats makes a missing booked-seat list an error instead of
// approximating occupancy from available_seats.
func WithAuthoritativeSeats(required bool) ServiceOption {
	return func(s *FlowService) {
		s.requireAuthoritativeSeats = required
	}
}

func WithMetrics(metrics Metrics) ServiceOption {
	return func(s *FlowService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithFlowLocker replaces the process-local flow lock, for stores shared
// between replicas.
func WithFlowLocker(locks pkgApp.Locker) ServiceOption {
	return func(s *FlowService) {
		s.locks = locks
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *FlowService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewFlowService(
	store pkgApp.StateStore[domain.Flow],
	trips domain.TripService,
	payments domain.PaymentGateway,
	eventBus TicketEventBus,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
	opts ...ServiceOption,
) *FlowService {
	s := &FlowService{
		trips:       trips,
		payments:    payments,
		eventBus:    eventBus,
		idGenerator: idGenerator,
		logger:      logger,
		metrics:     nopMetrics{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.flows = NewFlowRepository(store, s.locks, s.now)
	return s
}

func (s *FlowService) transition(ctx context.Context, flow domain.Flow) {
	s.metrics.FlowTransition(string(flow.State))
	pkgApp.LogDebug(ctx, s.logger, "booking flow transition", map[string]interface{}{
		"flow_id": flow.ID,
		"state":   flow.State,
		"epoch":   flow.Epoch,
	})
}

func (s *FlowService) Start(ctx context.Context, id, userID string) error {
	flow := domain.NewFlow(id, s.now())
	flow.UserID = userID
	if err := s.flows.Create(ctx, flow); err != nil {
		pkgApp.LogError(ctx, s.logger, "failed to create booking flow", err, map[string]interface{}{"flow_id": id})
		return err
	}
	s.transition(ctx, *flow)
	return nil
}

func (s *FlowService) Get(ctx context.Context, id string) (domain.Flow, error) {
	return s.flows.Get(ctx, id)
}

func (s *FlowService) Search(ctx context.Context, id string, criteria domain.SearchCriteria) error {
	var epoch uint64
	if _, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		if err := flow.BeginSearch(criteria); err != nil {
			return err
		}
		epoch = flow.Epoch
		return nil
	}); err != nil {
		return err
	}

	trips, err := s.trips.SearchTrips(ctx, criteria)
	if err != nil {
		failure := &domain.SearchFailure{Cause: err}
		pkgApp.LogError(ctx, s.logger, "trip search failed", err, map[string]interface{}{
			"flow_id":  id,
			"criteria": criteria,
		})
		s.recordFailure(ctx, id, epoch, failure)
		return failure
	}

	flow, err := s.flows.UpdateAt(ctx, id, epoch, func(flow *domain.Flow) error {
		return flow.ApplySearchResults(trips)
	})
	if err != nil {
		return err
	}
	pkgApp.LogInfo(ctx, s.logger, "trips listed", map[string]interface{}{
		"flow_id": id,
		"count":   len(trips),
	})
	s.transition(ctx, flow)
	return nil
}

// recordFailure stores a surfaced error on the flow. It survives a cancelled
// request context and is skipped if the flow moved on.
func (s *FlowService) recordFailure(ctx context.Context, id string, epoch uint64, cause error) {
	_, err := s.flows.UpdateAt(context.WithoutCancel(ctx), id, epoch, func(flow *domain.Flow) error {
		flow.RecordError(cause)
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrFlowSuperseded) {
		pkgApp.LogError(ctx, s.logger, "failed to record flow error", err, map[string]interface{}{"flow_id": id})
	}
}

func (s *FlowService) SelectTrip(ctx context.Context, id, tripID string) error {
	var (
		trip       domain.Trip
		travelDate string
		epoch      uint64
	)
	flow, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		var err error
		if trip, err = flow.SelectTrip(tripID); err != nil {
			return err
		}
		travelDate = flow.Criteria.TravelDate
		epoch = flow.Epoch
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.FlowTransition(string(domain.StateTripSelected))
	s.transition(ctx, flow)

	booked, fetchErr := s.trips.GetBookedSeats(ctx, trip.ID, travelDate)
	seatMap, err := s.resolveSeatMap(ctx, id, trip, booked, fetchErr)
	if err != nil {
		_, abortErr := s.flows.UpdateAt(context.WithoutCancel(ctx), id, epoch, func(flow *domain.Flow) error {
			return flow.AbortSeatLoading(err)
		})
		if abortErr != nil {
			return abortErr
		}
		return err
	}

	flow, err = s.flows.UpdateAt(ctx, id, epoch, func(flow *domain.Flow) error {
		return flow.ApplySeatMap(seatMap)
	})
	if err != nil {
		return err
	}
	s.transition(ctx, flow)
	return nil
}

func (s *FlowService) resolveSeatMap(ctx context.Context, id string, trip domain.Trip, booked []string, fetchErr error) (domain.SeatMap, error) {
	if fetchErr == nil && len(booked) > 0 {
		return domain.SeatMapFromBooked(trip, booked), nil
	}
	if s.requireAuthoritativeSeats {
		if fetchErr == nil && booked != nil {
			return domain.SeatMapFromBooked(trip, booked), nil
		}
		failure := &domain.SeatFetchFailure{TripID: trip.ID, Cause: fetchErr}
		pkgApp.LogError(ctx, s.logger, "authoritative seat list unavailable", failure, map[string]interface{}{
			"flow_id": id,
			"trip_id": trip.ID,
		})
		return domain.SeatMap{}, failure
	}

	if fetchErr != nil {
		pkgApp.LogWarn(ctx, s.logger, "booked seats unavailable, approximating seat map", &domain.SeatFetchFailure{TripID: trip.ID, Cause: fetchErr}, map[string]interface{}{
			"flow_id": id,
			"trip_id": trip.ID,
		})
	}
	seatMap := domain.DeriveSeatMap(trip, nil)
	s.metrics.SeatMapFallback()
	return seatMap, nil
}

func (s *FlowService) SelectSeat(ctx context.Context, id string, seat int) error {
	_, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		return flow.SelectSeat(seat)
	})
	return err
}

func (s *FlowService) SetPassenger(ctx context.Context, id string, passenger domain.PassengerInfo) error {
	_, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		return flow.SetPassengerInfo(passenger)
	})
	return err
}

func (s *FlowService) ProceedToPayment(ctx context.Context, id string) error {
	flow, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		_, err := flow.ProceedToPayment(s.idGenerator(), s.now())
		return err
	})
	if err != nil {
		return err
	}
	s.transition(ctx, flow)
	return nil
}

// Pay creates the backend booking once per draft, then asks the payment
// service to confirm it under the draft's idempotency key. Any failure leaves
// the flow in payment_pending.
func (s *FlowService) Pay(ctx context.Context, id, rawMethod, phone string) error {
	method, err := domain.ParsePaymentMethod(rawMethod)
	if err != nil {
		return err
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("%w: phone is required", domain.ErrInvalidPayment)
	}

	var (
		draft  domain.BookingDraft
		epoch  uint64
		userID string
	)
	if _, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		var err error
		if draft, err = flow.BeginPayment(); err != nil {
			return err
		}
		epoch = flow.Epoch
		userID = flow.UserID
		return nil
	}); err != nil {
		return err
	}

	if draft.Booking == nil {
		record, err := s.trips.CreateBooking(ctx, draft.BookingRequest(method, phone, userID))
		if err != nil {
			return s.failPayment(ctx, id, epoch, method, &domain.PaymentFailure{Stage: "booking", Cause: err})
		}
		if _, err := s.flows.UpdateAt(context.WithoutCancel(ctx), id, epoch, func(flow *domain.Flow) error {
			return flow.AttachBooking(record)
		}); err != nil {
			return err
		}
		draft.Booking = &record
		pkgApp.LogInfo(ctx, s.logger, "booking created", map[string]interface{}{
			"flow_id":    id,
			"booking_id": record.ID,
		})
	}

	confirmation, err := s.payments.Confirm(ctx, domain.PaymentRequest{
		IdempotencyKey: draft.IdempotencyKey,
		BookingID:      draft.Booking.ID,
		Amount:         draft.Amount(),
		Method:         method,
		Phone:          phone,
	})
	if err == nil && confirmation.Status != "" && confirmation.Status != domain.PaymentStatusCompleted {
		err = fmt.Errorf("payment status %q", confirmation.Status)
	}
	if err == nil && confirmation.TransactionID == "" {
		err = errors.New("payment service returned no transaction id")
	}
	if err != nil {
		return s.failPayment(ctx, id, epoch, method, &domain.PaymentFailure{Stage: "confirmation", Cause: err})
	}

	result := domain.PaymentResult{
		Draft:         draft,
		Method:        method,
		Phone:         phone,
		PaymentID:     confirmation.PaymentID,
		TransactionID: confirmation.TransactionID,
		Booking:       *draft.Booking,
		UserID:        userID,
		ConfirmedAt:   s.now(),
	}
	flow, err := s.flows.UpdateAt(context.WithoutCancel(ctx), id, epoch, func(flow *domain.Flow) error {
		return flow.ConfirmPayment(result)
	})
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "payment confirmed for a superseded flow", err, map[string]interface{}{
			"flow_id":        id,
			"transaction_id": result.TransactionID,
		})
		return err
	}
	s.metrics.PaymentOutcome(string(method), "completed")
	s.transition(ctx, flow)
	pkgApp.LogInfo(ctx, s.logger, "payment confirmed", map[string]interface{}{
		"flow_id":        id,
		"transaction_id": result.TransactionID,
		"payment_id":     result.PaymentID,
	})

	s.issueTicket(ctx, result)
	return nil
}

func (s *FlowService) failPayment(ctx context.Context, id string, epoch uint64, method domain.PaymentMethod, failure *domain.PaymentFailure) error {
	pkgApp.LogError(ctx, s.logger, "payment failed", failure, map[string]interface{}{
		"flow_id": id,
		"method":  method,
		"stage":   failure.Stage,
	})
	s.metrics.PaymentOutcome(string(method), "failed")

	_, err := s.flows.UpdateAt(context.WithoutCancel(ctx), id, epoch, func(flow *domain.Flow) error {
		flow.PaymentFailed(failure)
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrFlowSuperseded) {
		pkgApp.LogError(ctx, s.logger, "failed to record payment failure", err, map[string]interface{}{"flow_id": id})
	}
	return failure
}

// issueTicket publishes the ticket; the flow is already confirmed so a
// publishing error is only logged.
func (s *FlowService) issueTicket(ctx context.Context, result domain.PaymentResult) {
	ticket, err := domain.NewTicket(result)
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "failed to build ticket", err, nil)
		return
	}
	if err := s.eventBus.Publish(context.WithoutCancel(ctx), NewTicketIssuedEvent(ticket)); err != nil {
		pkgApp.LogError(ctx, s.logger, "failed to publish ticket", err, map[string]interface{}{
			"reference": ticket.Reference,
		})
	}
}

func (s *FlowService) Reset(ctx context.Context, id string) error {
	flow, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		flow.Reset()
		return nil
	})
	if err != nil {
		return err
	}
	s.transition(ctx, flow)
	return nil
}

func (s *FlowService) Back(ctx context.Context, id string) error {
	flow, err := s.flows.Update(ctx, id, func(flow *domain.Flow) error {
		return flow.Back()
	})
	if err != nil {
		return err
	}
	s.transition(ctx, flow)
	return nil
}
