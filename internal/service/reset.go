package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
)

// resetStep is one independently committed part of a reset. Every step is
// idempotent, so a failed reset can simply be run again. Counts are recorded
// only once the step has committed.
type resetStep struct {
	name string
	run  func(ctx context.Context, tx repository.Tx) ([]resetCount, error)
}

type resetCount struct {
	into map[string]int64
	key  string
	n    int64
}

// ResetCategory clears the assignments of one category for an event. The
// "all" category also deletes every pool, building, staff row and ADA
// accommodation of the event. Counts gathered before a failing step are
// returned together with the error.
func (r *Registry) ResetCategory(ctx context.Context, eventID string, category model.ResetCategory) (*model.ResetResult, error) {
	if err := r.check(model.ResetRequest{Category: category}); err != nil {
		return nil, err
	}
	if err := r.store.InTx(ctx, func(tx repository.Tx) error {
		return requireEvent(ctx, tx, eventID)
	}); err != nil {
		return nil, err
	}

	res := &model.ResetResult{
		EventID:  eventID,
		Category: category,
		Deleted:  map[string]int64{},
		Zeroed:   map[string]int64{},
	}
	for _, step := range resetSteps(eventID, category, res) {
		var counts []resetCount
		err := r.store.InTx(ctx, func(tx repository.Tx) error {
			var err error
			counts, err = step.run(ctx, tx)
			return err
		})
		if err != nil {
			r.log.Error("reset step failed",
				zap.String("event_id", eventID),
				zap.String("category", string(category)),
				zap.String("step", step.name),
				zap.Error(err),
			)
			return res, fmt.Errorf("reset %s: %s: %w", category, step.name, err)
		}
		for _, c := range counts {
			c.into[c.key] = c.n
		}
	}
	r.log.Info("reset completed",
		zap.String("event_id", eventID),
		zap.String("category", string(category)),
		zap.Any("deleted", res.Deleted),
	)
	return res, nil
}

// clearKind empties every pool of one kind. Pool rows are locked between the
// event-wide delete and a per-pool sweep, so an assign that committed in
// between is removed by the sweep and none can commit before the counters
// are zeroed.
func clearKind(ctx context.Context, tx repository.Tx, eventID string, kind model.PoolKind) (deleted, zeroed int64, err error) {
	deleted, err = tx.DeleteAssignmentsByEvent(ctx, eventID, kind)
	if err != nil {
		return 0, 0, err
	}
	pools, err := tx.ListPools(ctx, eventID, kind)
	if err != nil {
		return 0, 0, err
	}
	ids := make([]string, len(pools))
	for i, p := range pools {
		ids[i] = p.ID
	}
	locked, err := lockPools(ctx, tx, ids...)
	if err != nil {
		return 0, 0, err
	}
	for id := range locked {
		late, err := tx.DeleteAssignmentsByPool(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		deleted += late
		if err := tx.SetPoolSize(ctx, id, 0); err != nil {
			return 0, 0, err
		}
	}
	return deleted, int64(len(locked)), nil
}

// single wraps a one-count step.
func single(into map[string]int64, name string, run func(ctx context.Context, tx repository.Tx) (int64, error)) resetStep {
	return resetStep{
		name: name,
		run: func(ctx context.Context, tx repository.Tx) ([]resetCount, error) {
			n, err := run(ctx, tx)
			if err != nil {
				return nil, err
			}
			return []resetCount{{into: into, key: name, n: n}}, nil
		},
	}
}

func resetSteps(eventID string, category model.ResetCategory, res *model.ResetResult) []resetStep {
	var steps []resetStep
	for _, kind := range category.PoolKinds() {
		steps = append(steps, resetStep{
			name: string(kind) + "_assignments",
			run: func(ctx context.Context, tx repository.Tx) ([]resetCount, error) {
				deleted, zeroed, err := clearKind(ctx, tx, eventID, kind)
				if err != nil {
					return nil, err
				}
				return []resetCount{
					{into: res.Deleted, key: string(kind) + "_assignments", n: deleted},
					{into: res.Zeroed, key: string(kind), n: zeroed},
				}, nil
			},
		})
	}
	if category != model.ResetAll {
		return steps
	}

	for _, kind := range model.PoolKinds {
		steps = append(steps, single(res.Deleted, string(kind)+"s", func(ctx context.Context, tx repository.Tx) (int64, error) {
			return tx.DeletePoolsByEvent(ctx, eventID, kind)
		}))
		if kind == model.PoolRoom {
			steps = append(steps, single(res.Deleted, "buildings", func(ctx context.Context, tx repository.Tx) (int64, error) {
				return tx.DeleteBuildingsByEvent(ctx, eventID)
			}))
		}
	}
	return append(steps,
		single(res.Deleted, "staff", func(ctx context.Context, tx repository.Tx) (int64, error) {
			return tx.DeleteStaffByEvent(ctx, eventID)
		}),
		single(res.Deleted, "ada_accommodations", func(ctx context.Context, tx repository.Tx) (int64, error) {
			return tx.DeleteADAByEvent(ctx, eventID)
		}),
	)
}
