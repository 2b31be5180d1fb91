package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrCompanyNotFound = errors.New("company not found")

type Company struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	IsActive   bool   `json:"is_active"`
	TripsCount int    `json:"trips_count"`
}

// CompanyService is the backend's company API.
type CompanyService interface {
	ListCompanies(ctx context.Context) ([]Company, error)
	DeleteEntity(ctx context.Context, kind, id string) error
}

// DeleteFailure is surfaced after every deletion attempt failed and the
// company was put back.
type DeleteFailure struct {
	CompanyID string
	Attempts  int
	Cause     error
}

func (e *DeleteFailure) Error() string {
	return fmt.Sprintf("delete company %s failed after %d attempts: %v", e.CompanyID, e.Attempts, e.Cause)
}

func (e *DeleteFailure) Unwrap() error {
	return e.Cause
}

// Directory is the displayed, ordered list of companies. Companies whose
// deletion is still being attempted stay hidden, even across refreshes.
type Directory struct {
	mu        sync.RWMutex
	companies []Company
	pending   map[string]struct{}
}

func NewDirectory(companies []Company) *Directory {
	d := &Directory{pending: make(map[string]struct{})}
	d.Replace(companies)
	return d
}

func (d *Directory) Replace(companies []Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies = make([]Company, 0, len(companies))
	for _, c := range companies {
		if _, hidden := d.pending[c.ID]; !hidden {
			d.companies = append(d.companies, c)
		}
	}
}

func (d *Directory) List() []Company {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append(make([]Company, 0, len(d.companies)), d.companies...)
}

func (d *Directory) Contains(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.companies {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Remove hides the company and reports where it was so it can be restored.
func (d *Directory) Remove(id string) (Company, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.companies {
		if c.ID == id {
			d.companies = append(d.companies[:i:i], d.companies[i+1:]...)
			d.pending[id] = struct{}{}
			return c, i, nil
		}
	}
	return Company{}, -1, fmt.Errorf("%w: %s", ErrCompanyNotFound, id)
}

// Settle forgets a removal once the backend confirmed it.
func (d *Directory) Settle(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, id)
}

// Restore reinserts company at index, clamped to the current length. It is a
// no-op if the company is already listed.
func (d *Directory) Restore(company Company, index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, company.ID)
	for _, c := range d.companies {
		if c.ID == company.ID {
			return
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(d.companies) {
		index = len(d.companies)
	}
	restored := make([]Company, 0, len(d.companies)+1)
	restored = append(restored, d.companies[:index]...)
	restored = append(restored, company)
	restored = append(restored, d.companies[index:]...)
	d.companies = restored
}
