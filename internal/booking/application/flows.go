package application

import (
	"context"
	"errors"
	"time"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
)

// FlowRepository loads and saves flows under a per-flow lock so concurrent
// requests for the same flow never interleave a read-modify-write. Replicas
// sharing one store must share the locker too.
type FlowRepository struct {
	store pkgApp.StateStore[domain.Flow]
	locks pkgApp.Locker
	now   func() time.Time
}

func NewFlowRepository(store pkgApp.StateStore[domain.Flow], locks pkgApp.Locker, now func() time.Time) *FlowRepository {
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = pkgApp.NewKeyedMutex()
	}
	return &FlowRepository{
		store: store,
		locks: locks,
		now:   now,
	}
}

func (r *FlowRepository) Create(ctx context.Context, flow *domain.Flow) error {
	return r.locks.WithLock(ctx, flow.ID, func() error {
		return r.store.Save(ctx, flow.ID, *flow)
	})
}

func (r *FlowRepository) Get(ctx context.Context, id string) (domain.Flow, error) {
	flow, err := r.store.Load(ctx, id)
	if errors.Is(err, pkgApp.ErrStateNotFound) {
		return domain.Flow{}, domain.ErrFlowNotFound
	}
	return flow, err
}

// Update applies fn to the stored flow and saves it only when fn succeeds.
func (r *FlowRepository) Update(ctx context.Context, id string, fn func(*domain.Flow) error) (domain.Flow, error) {
	var updated domain.Flow
	err := r.locks.WithLock(ctx, id, func() error {
		flow, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&flow); err != nil {
			return err
		}
		flow.Touch(r.now())
		if err := r.store.Save(ctx, id, flow); err != nil {
			return err
		}
		updated = flow
		return nil
	})
	return updated, err
}

// UpdateAt is Update guarded by the epoch observed before an external call.
func (r *FlowRepository) UpdateAt(ctx context.Context, id string, epoch uint64, fn func(*domain.Flow) error) (domain.Flow, error) {
	return r.Update(ctx, id, func(flow *domain.Flow) error {
		if flow.Epoch != epoch {
			return domain.ErrFlowSuperseded
		}
		return fn(flow)
	})
}
