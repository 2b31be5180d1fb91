package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	authDomain "github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	"github.com/mateusmacedo/togobus-bff/internal/booking/application"
	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
	"github.com/mateusmacedo/togobus-bff/pkg/infrastructure/web"
)

const requestTimeout = 30 * time.Second

type BookingHTTPHandler struct {
	commandBus  application.FlowCommandBus
	flowQueries application.FlowQueryBus
	tickets     application.TicketQueryBus
	idGenerator pkgDomain.IDGenerator[string]
}

func NewBookingHTTPHandler(
	commandBus application.FlowCommandBus,
	flowQueries application.FlowQueryBus,
	tickets application.TicketQueryBus,
	idGenerator pkgDomain.IDGenerator[string],
) *BookingHTTPHandler {
	return &BookingHTTPHandler{
		commandBus:  commandBus,
		flowQueries: flowQueries,
		tickets:     tickets,
		idGenerator: idGenerator,
	}
}

func (h *BookingHTTPHandler) HandleStartFlow(w http.ResponseWriter, r *http.Request) {
	data := application.StartFlowData{Flow: h.idGenerator()}
	if session, ok := authDomain.SessionFromContext(r.Context()); ok {
		data.UserID = session.Profile.ID
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.commandBus.Dispatch(ctx, application.NewFlowCommand(data)); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondView(ctx, w, r, http.StatusCreated, data.Flow, "")
}

func (h *BookingHTTPHandler) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	h.respondView(ctx, w, r, http.StatusOK, chi.URLParam(r, "flowID"), r.URL.Query().Get("company"))
}

type tripSelection struct {
	TripID string `json:"trip_id"`
}

type seatSelection struct {
	SeatNumber int `json:"seat_number"`
}

type paymentDetails struct {
	Method string `json:"method"`
	Phone  string `json:"phone"`
}

func (h *BookingHTTPHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var criteria domain.SearchCriteria
	if !decode(w, r, &criteria) {
		return
	}
	h.dispatch(w, r, application.SearchTripsData{Flow: chi.URLParam(r, "flowID"), Criteria: criteria})
}

func (h *BookingHTTPHandler) HandleSelectTrip(w http.ResponseWriter, r *http.Request) {
	var body tripSelection
	if !decode(w, r, &body) {
		return
	}
	h.dispatch(w, r, application.SelectTripData{Flow: chi.URLParam(r, "flowID"), TripID: body.TripID})
}

func (h *BookingHTTPHandler) HandleSelectSeat(w http.ResponseWriter, r *http.Request) {
	var body seatSelection
	if !decode(w, r, &body) {
		return
	}
	h.dispatch(w, r, application.SelectSeatData{Flow: chi.URLParam(r, "flowID"), Seat: body.SeatNumber})
}

func (h *BookingHTTPHandler) HandleSetPassenger(w http.ResponseWriter, r *http.Request) {
	var passenger domain.PassengerInfo
	if !decode(w, r, &passenger) {
		return
	}
	h.dispatch(w, r, application.SetPassengerData{Flow: chi.URLParam(r, "flowID"), Passenger: passenger})
}

func (h *BookingHTTPHandler) HandleProceed(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, application.ProceedToPaymentData{Flow: chi.URLParam(r, "flowID")})
}

func (h *BookingHTTPHandler) HandlePay(w http.ResponseWriter, r *http.Request) {
	var body paymentDetails
	if !decode(w, r, &body) {
		return
	}
	h.dispatch(w, r, application.PayData{Flow: chi.URLParam(r, "flowID"), Method: body.Method, Phone: body.Phone})
}

func (h *BookingHTTPHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, application.ResetFlowData{Flow: chi.URLParam(r, "flowID")})
}

func (h *BookingHTTPHandler) HandleBack(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, application.GoBackData{Flow: chi.URLParam(r, "flowID")})
}

func (h *BookingHTTPHandler) HandleTicket(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.ticket(w, r)
	if !ok {
		return
	}
	web.JSON(w, http.StatusOK, ticket)
}

func (h *BookingHTTPHandler) HandleTicketPDF(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.ticket(w, r)
	if !ok {
		return
	}
	document, err := RenderTicketPDF(ticket)
	if err != nil {
		web.Error(w, r, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ticket.Reference+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}

func (h *BookingHTTPHandler) HandleFindTickets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, ok := authDomain.SessionFromContext(r.Context())
	if !ok {
		web.Error(w, r, http.StatusUnauthorized, "unauthenticated", authDomain.ErrUnauthenticated.Error())
		return
	}
	query := application.NewFindTicketsQuery(application.FindTicketsData{
		Phone:  r.URL.Query().Get("phone"),
		UserID: session.Profile.ID,
		All:    session.Profile.Role() == authDomain.RoleAdmin,
	})
	tickets, err := h.tickets.Dispatch(ctx, query)
	if err != nil {
		handleError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, tickets)
}

func (h *BookingHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Route("/booking/flows", func(r chi.Router) {
		r.Post("/", h.HandleStartFlow)
		r.Route("/{flowID}", func(r chi.Router) {
			r.Get("/", h.HandleGetFlow)
			r.Post("/search", h.HandleSearch)
			r.Post("/trip", h.HandleSelectTrip)
			r.Post("/seat", h.HandleSelectSeat)
			r.Post("/passenger", h.HandleSetPassenger)
			r.Post("/proceed", h.HandleProceed)
			r.Post("/pay", h.HandlePay)
			r.Post("/reset", h.HandleReset)
			r.Post("/back", h.HandleBack)
			r.Get("/ticket", h.HandleTicket)
			r.Get("/ticket.pdf", h.HandleTicketPDF)
		})
	})
	router.Get("/tickets", h.HandleFindTickets)
}

// dispatch runs a flow command and answers with the resulting view.
func (h *BookingHTTPHandler) dispatch(w http.ResponseWriter, r *http.Request, data application.FlowCommand) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.commandBus.Dispatch(ctx, application.NewFlowCommand(data)); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondView(ctx, w, r, http.StatusOK, data.FlowID(), "")
}

func (h *BookingHTTPHandler) respondView(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, flowID, company string) {
	view, err := h.flowQueries.Dispatch(ctx, application.NewGetFlowQuery(application.GetFlowData{FlowID: flowID, Company: company}))
	if err != nil {
		handleError(w, r, err)
		return
	}
	web.JSON(w, status, view)
}

func (h *BookingHTTPHandler) ticket(w http.ResponseWriter, r *http.Request) (domain.Ticket, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.flowQueries.Dispatch(ctx, application.NewGetFlowQuery(application.GetFlowData{FlowID: chi.URLParam(r, "flowID")}))
	if err != nil {
		handleError(w, r, err)
		return domain.Ticket{}, false
	}
	if view.Ticket == nil {
		handleError(w, r, domain.ErrNoTicket)
		return domain.Ticket{}, false
	}
	return *view.Ticket, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := web.Decode(r, dst); err != nil {
		web.Error(w, r, http.StatusBadRequest, "invalid_request", "Invalid request")
		return false
	}
	return true
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		web.Error(w, r, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case domain.IsNotFound(err):
		web.Error(w, r, http.StatusNotFound, "not_found", err.Error())
	case domain.IsConflict(err):
		web.Error(w, r, http.StatusConflict, "conflict", err.Error())
	case domain.IsUpstream(err):
		web.Error(w, r, http.StatusBadGateway, "upstream_error", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		web.Error(w, r, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		web.Error(w, r, http.StatusInternalServerError, "internal_error", strings.TrimSpace(err.Error()))
	}
}
