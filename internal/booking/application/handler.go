package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

type (
	FlowCommandBus  = pkgApp.CommandBus[pkgDomain.Command[FlowCommand], FlowCommand]
	FlowQueryBus    = pkgApp.QueryBus[pkgDomain.Query[GetFlowData], GetFlowData, FlowView]
	TicketQueryBus  = pkgApp.QueryBus[pkgDomain.Query[FindTicketsData], FindTicketsData, []domain.Ticket]
	flowCommandFunc = pkgApp.CommandHandlerFunc[FlowCommand]
)

func flowHandler[T FlowCommand](logger pkgApp.AppLogger, name string, fn func(context.Context, T) error) pkgApp.CommandHandler[pkgDomain.Command[FlowCommand], FlowCommand] {
	return flowCommandFunc(func(ctx context.Context, payload FlowCommand) error {
		if ctx.Err() != nil {
			pkgApp.LogError(ctx, logger, "context cancelled", ctx.Err(), map[string]interface{}{"command_name": name})
			return ctx.Err()
		}
		data, ok := payload.(T)
		if !ok {
			return fmt.Errorf("command %s: unexpected payload %T", name, payload)
		}
		if err := fn(ctx, data); err != nil {
			pkgApp.LogDebug(ctx, logger, "command rejected", map[string]interface{}{
				"command_name": name,
				"flow_id":      payload.FlowID(),
				"error":        err.Error(),
			})
			return err
		}
		return nil
	})
}

// RegisterFlowHandlers binds every booking flow command to the service.
func RegisterFlowHandlers(bus FlowCommandBus, service *FlowService, logger pkgApp.AppLogger) {
	bus.RegisterHandler(StartFlowCommand, flowHandler(logger, StartFlowCommand, func(ctx context.Context, d StartFlowData) error {
		return service.Start(ctx, d.Flow, d.UserID)
	}))
	bus.RegisterHandler(SearchTripsCommand, flowHandler(logger, SearchTripsCommand, func(ctx context.Context, d SearchTripsData) error {
		return service.Search(ctx, d.Flow, d.Criteria)
	}))
	bus.RegisterHandler(SelectTripCommand, flowHandler(logger, SelectTripCommand, func(ctx context.Context, d SelectTripData) error {
		return service.SelectTrip(ctx, d.Flow, d.TripID)
	}))
	bus.RegisterHandler(SelectSeatCommand, flowHandler(logger, SelectSeatCommand, func(ctx context.Context, d SelectSeatData) error {
		return service.SelectSeat(ctx, d.Flow, d.Seat)
	}))
	bus.RegisterHandler(SetPassengerCommand, flowHandler(logger, SetPassengerCommand, func(ctx context.Context, d SetPassengerData) error {
		return service.SetPassenger(ctx, d.Flow, d.Passenger)
	}))
	bus.RegisterHandler(ProceedToPaymentCommand, flowHandler(logger, ProceedToPaymentCommand, func(ctx context.Context, d ProceedToPaymentData) error {
		return service.ProceedToPayment(ctx, d.Flow)
	}))
	bus.RegisterHandler(PayCommand, flowHandler(logger, PayCommand, func(ctx context.Context, d PayData) error {
		return service.Pay(ctx, d.Flow, d.Method, d.Phone)
	}))
	bus.RegisterHandler(ResetFlowCommand, flowHandler(logger, ResetFlowCommand, func(ctx context.Context, d ResetFlowData) error {
		return service.Reset(ctx, d.Flow)
	}))
	bus.RegisterHandler(GoBackCommand, flowHandler(logger, GoBackCommand, func(ctx context.Context, d GoBackData) error {
		return service.Back(ctx, d.Flow)
	}))
}

type getFlowHandler struct {
	service *FlowService
	logger  pkgApp.AppLogger
}

func (h *getFlowHandler) Handle(ctx context.Context, query pkgDomain.Query[GetFlowData]) (FlowView, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return FlowView{}, ctx.Err()
	}

	data := query.Payload()
	flow, err := h.service.Get(ctx, data.FlowID)
	if err != nil {
		return FlowView{}, err
	}
	return NewFlowView(flow, data.Company)
}

func NewGetFlowHandler(service *FlowService, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[GetFlowData], GetFlowData, FlowView] {
	return &getFlowHandler{
		service: service,
		logger:  logger,
	}
}

type findTicketsHandler struct {
	repository domain.TicketRepository
	logger     pkgApp.AppLogger
}

func (h *findTicketsHandler) Handle(ctx context.Context, query pkgDomain.Query[FindTicketsData]) ([]domain.Ticket, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return nil, ctx.Err()
	}

	data := query.Payload()
	phone := strings.TrimSpace(data.Phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", domain.ErrInvalidPassenger)
	}
	tickets, err := h.repository.FindByPhone(ctx, phone)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "failed to find tickets", err, map[string]interface{}{"phone": phone})
		return nil, err
	}
	if data.All {
		return tickets, nil
	}
	owned := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if data.UserID != "" && ticket.UserID == data.UserID {
			owned = append(owned, ticket)
		}
	}
	return owned, nil
}

func NewFindTicketsHandler(repo domain.TicketRepository, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[FindTicketsData], FindTicketsData, []domain.Ticket] {
	return &findTicketsHandler{
		repository: repo,
		logger:     logger,
	}
}

// ticketLedgerHandler records issued tickets so they can be found by phone.
type ticketLedgerHandler struct {
	repository domain.TicketRepository
	logger     pkgApp.AppLogger
}

func (h *ticketLedgerHandler) Handle(ctx context.Context, event pkgDomain.Event[domain.Ticket]) error {
	ticket := event.Payload()
	if err := h.repository.Save(ctx, ticket); err != nil {
		pkgApp.LogError(ctx, h.logger, "failed to record ticket", err, map[string]interface{}{
			"reference": ticket.Reference,
		})
		return err
	}
	pkgApp.LogInfo(ctx, h.logger, "ticket recorded", map[string]interface{}{
		"reference": ticket.Reference,
	})
	return nil
}

func NewTicketLedgerHandler(repo domain.TicketRepository, logger pkgApp.AppLogger) pkgApp.EventHandler[pkgDomain.Event[domain.Ticket], domain.Ticket] {
	return &ticketLedgerHandler{
		repository: repo,
		logger:     logger,
	}
}
