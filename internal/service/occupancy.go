package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
)

// increment adds by to a locked pool's counter and mirrors it on p.
func (r *Registry) increment(ctx context.Context, tx repository.Tx, p *model.Pool, by int) error {
	if by == 0 {
		return nil
	}
	if err := tx.SetPoolSize(ctx, p.ID, p.CurrentSize+by); err != nil {
		return err
	}
	p.CurrentSize += by
	return nil
}

// decrement subtracts by from a locked pool's counter. A result below zero
// means the counter had already drifted: it is floored at 0 and the pool is
// queued for recount instead of failing the caller.
func (r *Registry) decrement(ctx context.Context, tx repository.Tx, p *model.Pool, by int) error {
	if by == 0 {
		return nil
	}
	next := p.CurrentSize - by
	if next < 0 {
		r.log.Warn("pool counter would go negative, clamping at zero",
			zap.String("pool_id", p.ID),
			zap.Int("current_size", p.CurrentSize),
			zap.Int("by", by),
		)
		if err := r.drift.Report(ctx, p.ID); err != nil {
			r.log.Error("failed to queue pool for recount", zap.String("pool_id", p.ID), zap.Error(err))
		}
		next = 0
	}
	if err := tx.SetPoolSize(ctx, p.ID, next); err != nil {
		return err
	}
	p.CurrentSize = next
	return nil
}

// Increment raises a pool's counter by by.
func (r *Registry) Increment(ctx context.Context, poolID string, by int) (*model.Pool, error) {
	return r.adjust(ctx, poolID, by, r.increment)
}

// Decrement lowers a pool's counter by by, never below zero.
func (r *Registry) Decrement(ctx context.Context, poolID string, by int) (*model.Pool, error) {
	return r.adjust(ctx, poolID, by, r.decrement)
}

func (r *Registry) adjust(ctx context.Context, poolID string, by int,
	apply func(context.Context, repository.Tx, *model.Pool, int) error) (*model.Pool, error) {
	if by < 0 {
		return nil, fmt.Errorf("%w: weight must not be negative", model.ErrInvalidArgument)
	}
	var p *model.Pool
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if p, err = tx.GetPool(ctx, poolID, true); err != nil {
			return notFound(err, "pool", poolID)
		}
		return apply(ctx, tx, p, by)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// recount sums the weights of a pool's assignments and stores the total.
// Stored weights are refreshed from the assignees, so a group whose size
// changed since it was assigned is counted at its current size.
func (r *Registry) recount(ctx context.Context, tx repository.Tx, poolID string) (*model.RecountResult, error) {
	if _, err := tx.ListAssignmentsByPool(ctx, poolID, true); err != nil {
		return nil, err
	}
	p, err := tx.GetPool(ctx, poolID, true)
	if err != nil {
		return nil, notFound(err, "pool", poolID)
	}
	assignments, err := tx.ListAssignmentsByPool(ctx, poolID, false)
	if err != nil {
		return nil, err
	}

	total := 0
	for i := range assignments {
		a := &assignments[i]
		assignee, err := resolveAssignee(ctx, tx, a.Assignee)
		switch {
		case errors.Is(err, model.ErrNotFound):
			// Registrant gone without a release; keep what was recorded.
		case err != nil:
			return nil, err
		case assignee.Weight != a.Weight:
			a.Weight = assignee.Weight
			a.UpdatedAt = r.now()
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return nil, err
			}
		}
		total += a.Weight
	}

	res := &model.RecountResult{PoolID: poolID, Previous: p.CurrentSize, Current: total}
	if res.Drifted() {
		if err := tx.SetPoolSize(ctx, poolID, total); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// RecountPool recomputes one pool's counter from its assignments.
func (r *Registry) RecountPool(ctx context.Context, poolID string) (*model.RecountResult, error) {
	var res *model.RecountResult
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		res, err = r.recount(ctx, tx, poolID)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.logRecount(res)
	if err := r.drift.Ack(ctx, poolID); err != nil {
		r.log.Error("failed to clear drift mark", zap.String("pool_id", poolID), zap.Error(err))
	}
	return res, nil
}

// RecountEvent recounts every pool of an event, one unit of work per pool.
// Results gathered before a failure are returned with the error.
func (r *Registry) RecountEvent(ctx context.Context, eventID string) ([]model.RecountResult, error) {
	var pools []model.Pool
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		if err := requireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		pools, err = tx.ListPools(ctx, eventID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	results := make([]model.RecountResult, 0, len(pools))
	for _, p := range pools {
		res, err := r.RecountPool(ctx, p.ID)
		if errors.Is(err, model.ErrNotFound) {
			continue // deleted since it was listed
		}
		if err != nil {
			return results, fmt.Errorf("recount pool %s: %w", p.ID, err)
		}
		results = append(results, *res)
	}
	return results, nil
}

// HealDrift recounts every pool queued by a clamped decrement. Pools that no
// longer exist are dropped from the queue.
func (r *Registry) HealDrift(ctx context.Context) ([]model.RecountResult, error) {
	ids, err := r.drift.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drifted pools: %w", err)
	}
	results := make([]model.RecountResult, 0, len(ids))
	for _, id := range ids {
		res, err := r.RecountPool(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			if err := r.drift.Ack(ctx, id); err != nil {
				return results, fmt.Errorf("clear drift mark %s: %w", id, err)
			}
			continue
		}
		if err != nil {
			return results, fmt.Errorf("recount pool %s: %w", id, err)
		}
		results = append(results, *res)
	}
	return results, nil
}

func (r *Registry) logRecount(res *model.RecountResult) {
	if res.Drifted() {
		r.log.Warn("pool counter corrected",
			zap.String("pool_id", res.PoolID),
			zap.Int("previous_size", res.Previous),
			zap.Int("current_size", res.Current),
		)
		return
	}
	r.log.Debug("pool counter verified", zap.String("pool_id", res.PoolID), zap.Int("current_size", res.Current))
}
