package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"

	"github.com/mateusmacedo/togobus-bff/internal/admin/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

const (
	DefaultDeleteAttempts  = 3
	DefaultDeleteBaseDelay = 500 * time.Millisecond

	companyKind = "companies"
)

// Metrics receives deletion outcomes.
type Metrics interface {
	DeletionOutcome(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) DeletionOutcome(string) {}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

func contextSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// DeletionSaga removes a company optimistically and retries the backend
// delete with linear backoff, restoring the company if every attempt fails.
type DeletionSaga struct {
	companies   domain.CompanyService
	idGenerator pkgDomain.IDGenerator[string]
	logger      pkgApp.AppLogger
	metrics     Metrics
	attempts    uint
	delay       backoff.Algorithm
	sleep       Sleeper
	now         func() time.Time
}

type SagaOption func(*DeletionSaga)

func WithAttempts(n int) SagaOption {
	return func(s *DeletionSaga) {
		if n > 0 {
			s.attempts = uint(n)
		}
	}
}

func WithBaseDelay(d time.Duration) SagaOption {
	return func(s *DeletionSaga) {
		if d > 0 {
			s.delay = backoff.Linear(d)
		}
	}
}

func WithSleeper(sleep Sleeper) SagaOption {
	return func(s *DeletionSaga) { s.sleep = sleep }
}

func WithMetrics(metrics Metrics) SagaOption {
	return func(s *DeletionSaga) { s.metrics = metrics }
}

func WithClock(now func() time.Time) SagaOption {
	return func(s *DeletionSaga) { s.now = now }
}

func NewDeletionSaga(
	companies domain.CompanyService,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
	opts ...SagaOption,
) *DeletionSaga {
	s := &DeletionSaga{
		companies:   companies,
		idGenerator: idGenerator,
		logger:      logger,
		metrics:     nopMetrics{},
		attempts:    DefaultDeleteAttempts,
		delay:       backoff.Linear(DefaultDeleteBaseDelay),
		sleep:       contextSleep,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Delete runs the saga against one workspace. It returns a *domain.DeleteFailure
// once the company has been put back.
func (s *DeletionSaga) Delete(ctx context.Context, space *domain.Workspace, companyID string) error {
	company, index, err := space.Directory.Remove(companyID)
	if err != nil {
		return err
	}

	attempts := 0
	err = retry.Retry(
		func(attempt uint) error {
			attempts++
			err := s.companies.DeleteEntity(ctx, companyKind, companyID)
			if err != nil {
				pkgApp.LogWarn(ctx, s.logger, "company delete attempt failed", err, map[string]interface{}{
					"company_id": companyID,
					"attempt":    attempt + 1,
				})
			}
			return err
		},
		strategy.Strategy(func(attempt uint) bool {
			return attempt < s.attempts && ctx.Err() == nil
		}),
		strategy.Strategy(func(attempt uint) bool {
			if attempt > 0 {
				s.sleep(ctx, s.delay(attempt))
			}
			return ctx.Err() == nil
		}),
	)
	if attempts == 0 {
		err = ctx.Err()
	}

	if err != nil {
		space.Directory.Restore(company, index)
		failure := &domain.DeleteFailure{CompanyID: companyID, Attempts: attempts, Cause: err}
		s.notify(space, domain.NotificationError, fmt.Sprintf("Could not delete %s. It has been restored.", company.Name))
		s.metrics.DeletionOutcome("rolled_back")
		pkgApp.LogError(ctx, s.logger, "company delete rolled back", failure, map[string]interface{}{
			"company_id": companyID,
			"attempts":   attempts,
		})
		return failure
	}

	space.Directory.Settle(companyID)
	s.notify(space, domain.NotificationSuccess, fmt.Sprintf("%s was deleted.", company.Name))
	s.metrics.DeletionOutcome("deleted")
	pkgApp.LogInfo(ctx, s.logger, "company deleted", map[string]interface{}{
		"company_id": companyID,
		"attempts":   attempts,
	})
	return nil
}

func (s *DeletionSaga) notify(space *domain.Workspace, level domain.NotificationLevel, message string) {
	space.Notifications.Push(domain.Notification{
		ID:        s.idGenerator(),
		Level:     level,
		Message:   message,
		CreatedAt: s.now(),
	})
}
