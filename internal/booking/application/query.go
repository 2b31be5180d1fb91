package application

import (
	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

const (
	GetFlowQuery     = "GetBookingFlow"
	FindTicketsQuery = "FindTickets"
)

type GetFlowData struct {
	FlowID string
	// Company narrows the listed results; empty lists everything.
	Company string
}

type getFlowQuery struct {
	data GetFlowData
}

func (q getFlowQuery) QueryName() string {
	return GetFlowQuery
}

func (q getFlowQuery) Payload() GetFlowData {
	return q.data
}

func NewGetFlowQuery(data GetFlowData) pkgDomain.Query[GetFlowData] {
	return getFlowQuery{data: data}
}

// FlowView is what the UI renders for one flow.
type FlowView struct {
	domain.Flow
	SeatSelected        bool           `json:"seat_selected"`
	PassengerInfoValid  bool           `json:"passenger_info_valid"`
	CanProceedToPayment bool           `json:"can_proceed_to_payment"`
	Seats               []domain.Seat  `json:"seats,omitempty"`
	Companies           []string       `json:"companies,omitempty"`
	Ticket              *domain.Ticket `json:"ticket,omitempty"`
}

func NewFlowView(flow domain.Flow, company string) (FlowView, error) {
	view := FlowView{
		SeatSelected:        flow.SelectedSeat != nil,
		PassengerInfoValid:  flow.Passenger.Complete(),
		CanProceedToPayment: flow.CanProceedToPayment(),
		Companies:           flow.Companies(),
	}
	flow.Results = flow.FilterResults(company)
	if flow.SeatMap != nil {
		selected := 0
		if flow.SelectedSeat != nil {
			selected = *flow.SelectedSeat
		}
		view.Seats = flow.SeatMap.Seats(selected)
	}
	if flow.State == domain.StateConfirmed {
		ticket, err := flow.Ticket()
		if err != nil {
			return FlowView{}, err
		}
		view.Ticket = &ticket
	}
	view.Flow = flow
	return view, nil
}

type FindTicketsData struct {
	Phone string
	// UserID keeps only tickets bought by that user unless All is set.
	UserID string
	All    bool
}

type findTicketsQuery struct {
	data FindTicketsData
}

func (q findTicketsQuery) QueryName() string {
	return FindTicketsQuery
}

func (q findTicketsQuery) Payload() FindTicketsData {
	return q.data
}

func NewFindTicketsQuery(data FindTicketsData) pkgDomain.Query[FindTicketsData] {
	return findTicketsQuery{data: data}
}
