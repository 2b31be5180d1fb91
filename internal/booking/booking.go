package booking

import (
	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/togobus-bff/internal/booking/application"
	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	"github.com/mateusmacedo/togobus-bff/internal/booking/infrastructure"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

type BookingSlice struct {
	Service     *application.FlowService
	httpHandler *infrastructure.BookingHTTPHandler
}

func NewBookingSlice(
	commandBus application.FlowCommandBus,
	flowQueries application.FlowQueryBus,
	ticketQueries application.TicketQueryBus,
	eventBus application.TicketEventBus,
	store pkgApp.StateStore[domain.Flow],
	trips domain.TripService,
	payments domain.PaymentGateway,
	tickets domain.TicketRepository,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
	opts ...application.ServiceOption,
) *BookingSlice {
	service := application.NewFlowService(store, trips, payments, eventBus, idGenerator, logger, opts...)

	application.RegisterFlowHandlers(commandBus, service, logger)
	flowQueries.RegisterHandler(application.GetFlowQuery, application.NewGetFlowHandler(service, logger))
	ticketQueries.RegisterHandler(application.FindTicketsQuery, application.NewFindTicketsHandler(tickets, logger))
	eventBus.RegisterHandler(application.TicketIssuedEvent, application.NewTicketLedgerHandler(tickets, logger))

	return &BookingSlice{
		Service:     service,
		httpHandler: infrastructure.NewBookingHTTPHandler(commandBus, flowQueries, ticketQueries, idGenerator),
	}
}

func (s *BookingSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
