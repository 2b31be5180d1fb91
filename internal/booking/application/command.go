package application

import (
	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

const (
	StartFlowCommand        = "StartBookingFlow"
	SearchTripsCommand      = "SearchTrips"
	SelectTripCommand       = "SelectTrip"
	SelectSeatCommand       = "SelectSeat"
	SetPassengerCommand     = "SetPassengerInfo"
	ProceedToPaymentCommand = "ProceedToPayment"
	PayCommand              = "Pay"
	ResetFlowCommand        = "ResetFlow"
	GoBackCommand           = "GoBack"
)

// FlowCommand is the payload of every command addressed to one booking flow.
type FlowCommand interface {
	FlowID() string
	commandName() string
}

type StartFlowData struct {
	Flow   string
	UserID string
}

type SearchTripsData struct {
	Flow     string
	Criteria domain.SearchCriteria
}

type SelectTripData struct {
	Flow   string
	TripID string
}

type SelectSeatData struct {
	Flow string
	Seat int
}

type SetPassengerData struct {
	Flow      string
	Passenger domain.PassengerInfo
}

type ProceedToPaymentData struct {
	Flow string
}

type PayData struct {
	Flow   string
	Method string
	Phone  string
}

type ResetFlowData struct {
	Flow string
}

type GoBackData struct {
	Flow string
}

func (d StartFlowData) FlowID() string        { return d.Flow }
func (d SearchTripsData) FlowID() string      { return d.Flow }
func (d SelectTripData) FlowID() string       { return d.Flow }
func (d SelectSeatData) FlowID() string       { return d.Flow }
func (d SetPassengerData) FlowID() string     { return d.Flow }
func (d ProceedToPaymentData) FlowID() string { return d.Flow }
func (d PayData) FlowID() string              { return d.Flow }
func (d ResetFlowData) FlowID() string        { return d.Flow }
func (d GoBackData) FlowID() string           { return d.Flow }

func (StartFlowData) commandName() string        { return StartFlowCommand }
func (SearchTripsData) commandName() string      { return SearchTripsCommand }
func (SelectTripData) commandName() string       { return SelectTripCommand }
func (SelectSeatData) commandName() string       { return SelectSeatCommand }
func (SetPassengerData) commandName() string     { return SetPassengerCommand }
func (ProceedToPaymentData) commandName() string { return ProceedToPaymentCommand }
func (PayData) commandName() string              { return PayCommand }
func (ResetFlowData) commandName() string        { return ResetFlowCommand }
func (GoBackData) commandName() string           { return GoBackCommand }

type flowCommand struct {
	data FlowCommand
}

func (c flowCommand) CommandName() string {
	return c.data.commandName()
}

func (c flowCommand) Payload() FlowCommand {
	return c.data
}

// NewFlowCommand wraps data in a command named after its type.
func NewFlowCommand(data FlowCommand) pkgDomain.Command[FlowCommand] {
	return flowCommand{data: data}
}
