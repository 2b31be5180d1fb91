package application

import (
	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

const TicketIssuedEvent = "TicketIssued"

type ticketIssuedEvent struct {
	ticket domain.Ticket
}

func (e ticketIssuedEvent) EventName() string {
	return TicketIssuedEvent
}

func (e ticketIssuedEvent) Payload() domain.Ticket {
	return e.ticket
}

func NewTicketIssuedEvent(ticket domain.Ticket) pkgDomain.Event[domain.Ticket] {
	return ticketIssuedEvent{ticket: ticket}
}
