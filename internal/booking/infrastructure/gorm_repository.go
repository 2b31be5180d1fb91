package infrastructure

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	"github.com/mateusmacedo/togobus-bff/pkg/application"
)

type gormTicketRepository struct {
	db     *gorm.DB
	logger application.AppLogger
}

// OpenTicketLedger connects to Postgres and migrates the tickets table.
func OpenTicketLedger(dsn string, logger application.AppLogger) (domain.TicketRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(&domain.Ticket{}); err != nil {
		return nil, err
	}

	return NewGormTicketRepository(db, logger), nil
}

func NewGormTicketRepository(db *gorm.DB, logger application.AppLogger) domain.TicketRepository {
	return &gormTicketRepository{
		db:     db,
		logger: logger,
	}
}

func (r *gormTicketRepository) Save(ctx context.Context, ticket domain.Ticket) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ticket)
	if err := result.Error; err != nil {
		application.LogError(ctx, r.logger, "failed to save ticket", err, map[string]interface{}{
			"reference": ticket.Reference,
		})
		return err
	}

	if result.RowsAffected == 0 {
		application.LogDebug(ctx, r.logger, "ticket already recorded", map[string]interface{}{
			"reference": ticket.Reference,
		})
		return nil
	}
	application.LogInfo(ctx, r.logger, "ticket saved", map[string]interface{}{
		"reference": ticket.Reference,
	})
	return nil
}

func (r *gormTicketRepository) FindByPhone(ctx context.Context, phone string) ([]domain.Ticket, error) {
	tickets := []domain.Ticket{}

	if err := r.db.WithContext(ctx).Where("passenger_phone = ?", phone).Order("issued_at").Find(&tickets).Error; err != nil {
		application.LogError(ctx, r.logger, "failed to find tickets", err, map[string]interface{}{
			"phone": phone,
		})
		return nil, err
	}

	application.LogDebug(ctx, r.logger, "tickets found", map[string]interface{}{
		"phone": phone,
		"count": len(tickets),
	})
	return tickets, nil
}
