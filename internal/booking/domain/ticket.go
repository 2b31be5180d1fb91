package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Ticket is the presentable confirmation of a paid booking.
type Ticket struct {
	Reference      string    `json:"reference" gorm:"primaryKey"`
	TransactionID  string    `json:"transaction_id" gorm:"uniqueIndex"`
	PaymentID      string    `json:"payment_id"`
	BookingID      string    `json:"booking_id"`
	TripID         string    `json:"trip_id"`
	SeatNumber     int       `json:"seat_number"`
	PassengerName  string    `json:"passenger_name"`
	PassengerPhone string    `json:"passenger_phone" gorm:"index"`
	PassengerEmail string    `json:"passenger_email,omitempty"`
	CompanyName    string    `json:"company_name"`
	DepartureCity  string    `json:"departure_city"`
	ArrivalCity    string    `json:"arrival_city"`
	DepartureTime  string    `json:"departure_time"`
	ArrivalTime    string    `json:"arrival_time"`
	TravelDate     string    `json:"travel_date"`
	Price          float64   `json:"price"`
	PaymentMethod  string    `json:"payment_method"`
	UserID         string    `json:"user_id,omitempty" gorm:"index"`
	IssuedAt       time.Time `json:"issued_at"`
	QRPayload      string    `json:"qr_payload"`
}

type qrPayload struct {
	TransactionID string `json:"transaction_id"`
	BookingID     string `json:"booking_id"`
	SeatNumber    int    `json:"seat_number"`
	TripID        string `json:"trip_id"`
}

func TicketReference(transactionID string, seat int) string {
	return fmt.Sprintf("TOGOBUS-%s-%d", transactionID, seat)
}

func NewTicket(result PaymentResult) (Ticket, error) {
	draft := result.Draft
	qr, err := json.Marshal(qrPayload{
		TransactionID: result.TransactionID,
		BookingID:     result.Booking.ID,
		SeatNumber:    draft.SeatNumber,
		TripID:        draft.Trip.ID,
	})
	if err != nil {
		return Ticket{}, fmt.Errorf("encode ticket qr payload: %w", err)
	}

	return Ticket{
		Reference:      TicketReference(result.TransactionID, draft.SeatNumber),
		TransactionID:  result.TransactionID,
		PaymentID:      result.PaymentID,
		BookingID:      result.Booking.ID,
		TripID:         draft.Trip.ID,
		SeatNumber:     draft.SeatNumber,
		PassengerName:  draft.Passenger.FullName(),
		PassengerPhone: draft.Passenger.Phone,
		PassengerEmail: draft.Passenger.Email,
		CompanyName:    draft.Trip.CompanyName,
		DepartureCity:  draft.Trip.DepartureCityName,
		ArrivalCity:    draft.Trip.ArrivalCityName,
		DepartureTime:  draft.Trip.DepartureTime,
		ArrivalTime:    draft.Trip.ArrivalTime,
		TravelDate:     draft.Criteria.TravelDate,
		Price:          draft.Amount(),
		PaymentMethod:  string(result.Method),
		UserID:         result.UserID,
		IssuedAt:       result.ConfirmedAt,
		QRPayload:      string(qr),
	}, nil
}

// TicketRepository is the ledger of tickets issued by this service.
type TicketRepository interface {
	// Save ignores a ticket whose reference is already stored.
	Save(ctx context.Context, ticket Ticket) error
	FindByPhone(ctx context.Context, phone string) ([]Ticket, error)
}
