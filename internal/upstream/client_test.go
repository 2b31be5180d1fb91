package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL+"/api", time.Second, pkgApp.NopLogger())
	require.NoError(t, err)
	return client
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("not a url", time.Second, pkgApp.NopLogger())
	assert.Error(t, err)
}

func TestSearchTrips_UnwrapsPaginationAndDecimals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/trips/search/", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Lomé", body["departure_city"])
		assert.Equal(t, float64(1), body["passengers"])

		_, _ = io.WriteString(w, `{"count":1,"next":null,"previous":null,"results":[{
			"id": 42, "company": 3, "company_name": "STIF",
			"departure_city": 1, "departure_city_name": "Lomé",
			"arrival_city": 7, "arrival_city_name": "Kara",
			"departure_time": "07:30:00", "arrival_time": "13:00:00",
			"price": "7500.00", "duration": "05:30:00", "bus_type": "VIP",
			"capacity": 50, "available_seats": 48
		}]}`)
	})

	trips, err := client.SearchTrips(context.Background(), domain.SearchCriteria{
		DepartureCity: "Lomé", ArrivalCity: "Kara", TravelDate: "2025-06-01", Passengers: 1,
	})

	require.NoError(t, err)
	require.Len(t, trips, 1)
	trip := trips[0]
	assert.Equal(t, "42", trip.ID)
	assert.Equal(t, "3", trip.CompanyID)
	assert.Equal(t, 7500.0, trip.Price)
	assert.Equal(t, 330, trip.DurationMinutes)
	assert.Equal(t, "2025-06-01", trip.ServiceDate)
	require.NotNil(t, trip.AvailableSeats)
	assert.Equal(t, 48, *trip.AvailableSeats)
}

func TestSearchTrips_BareArrayAndErrorDetail(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = io.WriteString(w, `[{"id":"a","capacity":10,"price":1000,"duration":90}]`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"travel_date invalide"}`)
	})

	trips, err := client.SearchTrips(context.Background(), domain.SearchCriteria{TravelDate: "2025-06-01"})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, 90, trips[0].DurationMinutes)
	assert.Nil(t, trips[0].AvailableSeats)

	_, err = client.SearchTrips(context.Background(), domain.SearchCriteria{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "travel_date invalide", apiErr.Message)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestGetBookedSeats(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []string
	}{
		{name: "numbers", status: http.StatusOK, body: `[1, 4, "7"]`, want: []string{"1", "4", "7"}},
		{name: "wrapped", status: http.StatusOK, body: `{"booked_seats":["2"]}`, want: []string{"2"}},
		{name: "empty list", status: http.StatusOK, body: `[]`, want: []string{}},
		{name: "endpoint missing", status: http.StatusNotFound, body: `{"detail":"Not found."}`, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/trips/42/booked-seats/", r.URL.Path)
				assert.Equal(t, "2025-06-01", r.URL.Query().Get("travel_date"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			seats, err := client.GetBookedSeats(context.Background(), "42", "2025-06-01")

			require.NoError(t, err)
			assert.Equal(t, tt.want, seats)
		})
	}
}

func TestGetBookedSeats_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetBookedSeats(context.Background(), "42", "2025-06-01")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Internal Server Error", apiErr.Message)
}

func TestCreateBooking_SendsSessionToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token abc123", r.Header.Get("Authorization"))
		var body domain.BookingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "3", body.SeatNumber)
		assert.Equal(t, "mobile_money", body.PaymentMethod)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 9, "status": "pending", "total_price": "7500.00", "booking_date": "2025-05-20T09:00:00Z"}`)
	})
	ctx := authDomain.ContextWithSession(context.Background(), authDomain.Session{Token: "abc123"})

	record, err := client.CreateBooking(ctx, domain.BookingRequest{TripID: "42", SeatNumber: "3", PaymentMethod: "mobile_money"})

	require.NoError(t, err)
	assert.Equal(t, "9", record.ID)
	assert.Equal(t, 7500.0, record.TotalPrice)
	assert.Equal(t, 2025, record.CreatedAt.Year())
}

func TestAccounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login/":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"non_field_errors":["Unable to log in"]}`)
				return
			}
			_, _ = io.WriteString(w, `{"token":"tok"}`)
		case "/api/me/":
			if r.Header.Get("Authorization") != "Token tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail":"Invalid token."}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":5,"username":"ama","is_staff":false,"is_company_admin":true,"company_id":3}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	_, err := client.Login(ctx, authDomain.Credentials{Email: "ama@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, authDomain.ErrInvalidCredentials)

	token, err := client.Login(ctx, authDomain.Credentials{Email: "ama@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	profile, err := client.Me(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "5", profile.ID)
	assert.Equal(t, authDomain.RoleCompany, profile.Role())
	assert.Equal(t, "3", profile.CompanyID)

	_, err = client.Me(ctx, "stale")
	assert.ErrorIs(t, err, authDomain.ErrInvalidToken)
}

func TestCompanies(t *testing.T) {
	var deleted string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"results":[{"id":1,"name":"STIF","is_active":true},{"id":2,"name":"Rakieta"}]}`)
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}
	})

	companies, err := client.ListCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "1", companies[0].ID)
	assert.True(t, companies[0].IsActive)

	require.NoError(t, client.DeleteEntity(context.Background(), "companies", "2"))
	assert.Equal(t, "/api/companies/2/", deleted)
}

func TestObserverSeesEveryCall(t *testing.T) {
	var operations []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	client, err := NewClient(server.URL, time.Second, pkgApp.NopLogger(), WithObserver(func(op string, start time.Time, err error) {
		operations = append(operations, op)
	}))
	require.NoError(t, err)

	require.NoError(t, client.DeleteEntity(context.Background(), "companies", "1"))

	assert.Equal(t, []string{"delete_companies"}, operations)
}
