package domain

import (
	"fmt"
	"strconv"
	"time"
)

// BookingDraft is frozen at proceed-to-payment and consumed by pay.
type BookingDraft struct {
	Trip           Trip           `json:"trip"`
	SeatNumber     int            `json:"seat_number"`
	Passenger      PassengerInfo  `json:"passenger"`
	Criteria       SearchCriteria `json:"criteria"`
	IdempotencyKey string         `json:"idempotency_key"`
	CreatedAt      time.Time      `json:"created_at"`
	Booking        *BookingRecord `json:"booking,omitempty"`
}

func (d BookingDraft) BookingRequest(method PaymentMethod, phone, userID string) BookingRequest {
	return BookingRequest{
		TripID:         d.Trip.ID,
		PassengerName:  d.Passenger.FullName(),
		PassengerEmail: d.Passenger.Email,
		PassengerPhone: d.Passenger.Phone,
		SeatNumber:     strconv.Itoa(d.SeatNumber),
		PaymentMethod:  method.Backend(),
		TravelDate:     d.Criteria.TravelDate,
		Notes:          fmt.Sprintf("Payment via %s - %s", method, phone),
		UserID:         userID,
	}
}

// Matches reports whether other books the same trip, date, seat and passenger.
func (d BookingDraft) Matches(other BookingDraft) bool {
	return d.Trip.ID == other.Trip.ID &&
		d.Criteria.TravelDate == other.Criteria.TravelDate &&
		d.SeatNumber == other.SeatNumber &&
		d.Passenger == other.Passenger
}

// Amount is the fare charged for the drafted seat.
func (d BookingDraft) Amount() float64 {
	if d.Booking != nil && d.Booking.TotalPrice > 0 {
		return d.Booking.TotalPrice
	}
	return d.Trip.Price
}
