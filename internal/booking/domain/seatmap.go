package domain

import (
	"sort"
	"strconv"
	"strings"
)

type SeatSource string

const (
	SeatSourceBackend      SeatSource = "backend"
	SeatSourceApproximated SeatSource = "approximated"
)

// SeatMap holds the occupied seats of one trip on one date. Occupied is sorted
// and every entry lies in [1, Capacity].
type SeatMap struct {
	Capacity int        `json:"capacity"`
	Occupied []int      `json:"occupied"`
	Source   SeatSource `json:"source"`
}

type Seat struct {
	Number   int  `json:"number"`
	Occupied bool `json:"occupied"`
	Selected bool `json:"selected"`
}

// ParseSeatNumbers converts raw identifiers to a sorted set, dropping anything
// that is not an integer.
func ParseSeatNumbers(raw []string) []int {
	set := make(map[int]struct{}, len(raw))
	for _, entry := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(entry))
		if err != nil {
			continue
		}
		set[n] = struct{}{}
	}
	seats := make([]int, 0, len(set))
	for n := range set {
		seats = append(seats, n)
	}
	sort.Ints(seats)
	return seats
}

// DeriveSeatMap builds the seat map from an explicit booked-seat list when the
// backend returned one, otherwise approximates it from AvailableSeats by marking
// the first capacity-available seats as occupied.
func DeriveSeatMap(trip Trip, explicit []string) SeatMap {
	capacity := trip.Capacity
	if capacity < 0 {
		capacity = 0
	}

	if len(explicit) > 0 {
		return SeatMapFromBooked(trip, explicit)
	}

	count := 0
	if trip.AvailableSeats != nil {
		count = capacity - *trip.AvailableSeats
		if count > capacity {
			count = capacity
		}
		if count < 0 {
			count = 0
		}
	}
	occupied := make([]int, 0, count)
	for n := 1; n <= count; n++ {
		occupied = append(occupied, n)
	}
	return SeatMap{Capacity: capacity, Occupied: occupied, Source: SeatSourceApproximated}
}

// SeatMapFromBooked trusts the backend list, even an empty one.
func SeatMapFromBooked(trip Trip, booked []string) SeatMap {
	capacity := trip.Capacity
	if capacity < 0 {
		capacity = 0
	}
	occupied := make([]int, 0, len(booked))
	for _, n := range ParseSeatNumbers(booked) {
		if n >= 1 && n <= capacity {
			occupied = append(occupied, n)
		}
	}
	return SeatMap{Capacity: capacity, Occupied: occupied, Source: SeatSourceBackend}
}

func (m SeatMap) IsOccupied(n int) bool {
	i := sort.SearchInts(m.Occupied, n)
	return i < len(m.Occupied) && m.Occupied[i] == n
}

// CanSelect reports whether n is in range and free.
func (m SeatMap) CanSelect(n int) bool {
	return n >= 1 && n <= m.Capacity && !m.IsOccupied(n)
}

func (m SeatMap) AvailableCount() int {
	return m.Capacity - len(m.Occupied)
}

// Seats lays out every seat with its status; selected may be zero.
func (m SeatMap) Seats(selected int) []Seat {
	seats := make([]Seat, 0, m.Capacity)
	for n := 1; n <= m.Capacity; n++ {
		seats = append(seats, Seat{
			Number:   n,
			Occupied: m.IsOccupied(n),
			Selected: n == selected,
		})
	}
	return seats
}
