package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Trip is read-only data owned by the booking backend.
type Trip struct {
	ID                string  `json:"id"`
	CompanyID         string  `json:"company_id"`
	CompanyName       string  `json:"company_name"`
	DepartureCityID   string  `json:"departure_city_id"`
	DepartureCityName string  `json:"departure_city_name"`
	ArrivalCityID     string  `json:"arrival_city_id"`
	ArrivalCityName   string  `json:"arrival_city_name"`
	DepartureTime     string  `json:"departure_time"`
	ArrivalTime       string  `json:"arrival_time"`
	ServiceDate       string  `json:"service_date,omitempty"`
	Price             float64 `json:"price"`
	DurationMinutes   int     `json:"duration_minutes"`
	BusType           string  `json:"bus_type,omitempty"`
	Capacity          int     `json:"capacity"`
	AvailableSeats    *int    `json:"available_seats,omitempty"`
}

type SearchCriteria struct {
	DepartureCity string `json:"departure_city"`
	ArrivalCity   string `json:"arrival_city"`
	TravelDate    string `json:"travel_date"`
	Passengers    int    `json:"passengers"`
}

func (c SearchCriteria) Validate() error {
	var missing []string
	if strings.TrimSpace(c.DepartureCity) == "" {
		missing = append(missing, "departure_city")
	}
	if strings.TrimSpace(c.ArrivalCity) == "" {
		missing = append(missing, "arrival_city")
	}
	if strings.TrimSpace(c.TravelDate) == "" {
		missing = append(missing, "travel_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidCriteria, strings.Join(missing, ", "))
	}
	if _, err := time.Parse(DateLayout, c.TravelDate); err != nil {
		return fmt.Errorf("%w: travel_date must be YYYY-MM-DD", ErrInvalidCriteria)
	}
	if c.Passengers < 1 {
		return fmt.Errorf("%w: passengers must be at least 1", ErrInvalidCriteria)
	}
	return nil
}

// BookingRequest is the payload for creating a booking on the backend.
type BookingRequest struct {
	TripID         string `json:"trip"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email,omitempty"`
	PassengerPhone string `json:"passenger_phone"`
	SeatNumber     string `json:"seat_number"`
	PaymentMethod  string `json:"payment_method"`
	TravelDate     string `json:"travel_date"`
	Notes          string `json:"notes,omitempty"`
	UserID         string `json:"user,omitempty"`
}

// BookingRecord is the backend's authoritative booking.
type BookingRecord struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	TotalPrice    float64   `json:"total_price,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// TripService is the slice of the booking backend the flow depends on.
type TripService interface {
	SearchTrips(ctx context.Context, criteria SearchCriteria) ([]Trip, error)
	// GetBookedSeats returns raw seat identifiers; nil means the backend has no list.
	GetBookedSeats(ctx context.Context, tripID, travelDate string) ([]string, error)
	CreateBooking(ctx context.Context, request BookingRequest) (BookingRecord, error)
}
