package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	"github.com/mateusmacedo/togobus-bff/pkg/application"
)

type InMemoryTicketRepository struct {
	mu     sync.RWMutex
	data   map[string]domain.Ticket
	logger application.AppLogger
}

func NewInMemoryTicketRepository(logger application.AppLogger) *InMemoryTicketRepository {
	return &InMemoryTicketRepository{
		data:   make(map[string]domain.Ticket),
		logger: logger,
	}
}

func (r *InMemoryTicketRepository) Save(ctx context.Context, ticket domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[ticket.Reference]; exists {
		application.LogDebug(ctx, r.logger, "ticket already recorded", map[string]interface{}{
			"reference": ticket.Reference,
		})
		return nil
	}

	r.data[ticket.Reference] = ticket
	application.LogInfo(ctx, r.logger, "ticket saved", map[string]interface{}{
		"reference": ticket.Reference,
	})
	return nil
}

func (r *InMemoryTicketRepository) FindByPhone(ctx context.Context, phone string) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tickets := []domain.Ticket{}
	for _, ticket := range r.data {
		if ticket.PassengerPhone == phone {
			tickets = append(tickets, ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].IssuedAt.Before(tickets[j].IssuedAt)
	})

	application.LogDebug(ctx, r.logger, "tickets found", map[string]interface{}{
		"phone": phone,
		"count": len(tickets),
	})
	return tickets, nil
}
