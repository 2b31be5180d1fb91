package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
)

type tripDTO struct {
	ID                flexString  `json:"id"`
	Company           flexString  `json:"company"`
	CompanyName       string      `json:"company_name"`
	DepartureCity     flexString  `json:"departure_city"`
	DepartureCityName string      `json:"departure_city_name"`
	ArrivalCity       flexString  `json:"arrival_city"`
	ArrivalCityName   string      `json:"arrival_city_name"`
	DepartureTime     string      `json:"departure_time"`
	ArrivalTime       string      `json:"arrival_time"`
	ServiceDate       string      `json:"service_date"`
	Price             flexFloat   `json:"price"`
	Duration          flexMinutes `json:"duration"`
	BusType           string      `json:"bus_type"`
	Capacity          int         `json:"capacity"`
	AvailableSeats    *int        `json:"available_seats"`
}

func (t tripDTO) toDomain(travelDate string) domain.Trip {
	serviceDate := t.ServiceDate
	if serviceDate == "" {
		serviceDate = travelDate
	}
	return domain.Trip{
		ID:                string(t.ID),
		CompanyID:         string(t.Company),
		CompanyName:       t.CompanyName,
		DepartureCityID:   string(t.DepartureCity),
		DepartureCityName: t.DepartureCityName,
		ArrivalCityID:     string(t.ArrivalCity),
		ArrivalCityName:   t.ArrivalCityName,
		DepartureTime:     t.DepartureTime,
		ArrivalTime:       t.ArrivalTime,
		ServiceDate:       serviceDate,
		Price:             float64(t.Price),
		DurationMinutes:   int(t.Duration),
		BusType:           t.BusType,
		Capacity:          t.Capacity,
		AvailableSeats:    t.AvailableSeats,
	}
}

func (c *Client) SearchTrips(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Trip, error) {
	var result page[tripDTO]
	err := c.do(ctx, request{
		operation: "search_trips",
		method:    http.MethodPost,
		path:      "trips/search/",
		body:      criteria,
	}, &result)
	if err != nil {
		return nil, err
	}

	trips := make([]domain.Trip, 0, len(result.Results))
	for _, dto := range result.Results {
		trips = append(trips, dto.toDomain(criteria.TravelDate))
	}
	return trips, nil
}

// bookedSeats accepts a bare list or an object with booked_seats.
type bookedSeats struct {
	Seats []flexString
}

func (b *bookedSeats) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &b.Seats)
	}
	var wrapped struct {
		BookedSeats []flexString `json:"booked_seats"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	b.Seats = wrapped.BookedSeats
	return nil
}

// GetBookedSeats returns nil when the backend has no list for the trip.
func (c *Client) GetBookedSeats(ctx context.Context, tripID, travelDate string) ([]string, error) {
	var result bookedSeats
	err := c.do(ctx, request{
		operation: "get_booked_seats",
		method:    http.MethodGet,
		path:      "trips/" + url.PathEscape(tripID) + "/booked-seats/",
		query:     url.Values{"travel_date": {travelDate}},
	}, &result)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if result.Seats == nil {
		return nil, nil
	}

	seats := make([]string, 0, len(result.Seats))
	for _, seat := range result.Seats {
		seats = append(seats, string(seat))
	}
	return seats, nil
}

type bookingDTO struct {
	ID            flexString `json:"id"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	TotalPrice    flexFloat  `json:"total_price"`
	BookingDate   string     `json:"booking_date"`
}

func (c *Client) CreateBooking(ctx context.Context, req domain.BookingRequest) (domain.BookingRecord, error) {
	var result bookingDTO
	err := c.do(ctx, request{
		operation: "create_booking",
		method:    http.MethodPost,
		path:      "bookings/",
		body:      req,
	}, &result)
	if err != nil {
		return domain.BookingRecord{}, err
	}
	if result.ID == "" {
		return domain.BookingRecord{}, errors.New("create_booking: backend returned no booking id")
	}
	return domain.BookingRecord{
		ID:            string(result.ID),
		Status:        result.Status,
		PaymentStatus: result.PaymentStatus,
		TotalPrice:    float64(result.TotalPrice),
		CreatedAt:     parseTimestamp(result.BookingDate),
	}, nil
}

func parseTimestamp(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
