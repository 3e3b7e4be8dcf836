package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
)

// Assign places an assignee into a pool. An assignee already in another pool
// of the same kind is moved; one already in this pool is left as is (or
// given the newly requested bed). The ledger row and every counter it
// affects change in the same unit of work.
func (r *Registry) Assign(ctx context.Context, req model.AssignRequest) (*model.AssignResult, error) {
	if err := r.check(req); err != nil {
		return nil, err
	}

	var res *model.AssignResult
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		peek, err := tx.GetPool(ctx, req.PoolID, false)
		if err != nil {
			return notFound(err, "pool", req.PoolID)
		}
		if !peek.Kind.Accepts(req.Assignee.Kind) {
			return fmt.Errorf("%w: a %s pool does not take %s assignees",
				model.ErrInvalidArgument, peek.Kind, req.Assignee.Kind)
		}
		if req.BedNumber != nil && peek.Kind != model.PoolRoom {
			return fmt.Errorf("%w: bed numbers apply to rooms only", model.ErrInvalidArgument)
		}

		assignee, err := resolveAssignee(ctx, tx, req.Assignee)
		if err != nil {
			return err
		}
		if assignee.EventID != peek.EventID {
			return fmt.Errorf("%w: %s belongs to another event", model.ErrForbidden, req.Assignee)
		}

		existing, err := tx.FindAssignment(ctx, peek.Kind, req.Assignee, true)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		ids := []string{peek.ID}
		if existing != nil {
			ids = append(ids, existing.PoolID)
		}
		pools, err := lockPools(ctx, tx, ids...)
		if err != nil {
			return err
		}
		target := pools[peek.ID]

		switch {
		case existing == nil:
			res, err = r.create(ctx, tx, target, assignee, req)
		case existing.PoolID == target.ID:
			res, err = r.keep(ctx, tx, target, existing, req)
		default:
			res, err = r.move(ctx, tx, pools[existing.PoolID], target, existing, assignee, req)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("assignment applied",
		zap.String("outcome", string(res.Outcome)),
		zap.String("assignment_id", res.Assignment.ID),
		zap.String("pool_id", res.Pool.ID),
		zap.Stringer("assignee", req.Assignee),
	)
	return res, nil
}

func (r *Registry) create(ctx context.Context, tx repository.Tx, target *model.Pool,
	assignee *model.Assignee, req model.AssignRequest) (*model.AssignResult, error) {
	if !target.Fits(assignee.Weight) {
		return nil, capacityExceeded(target, assignee.Weight)
	}
	if err := checkBed(ctx, tx, target, req.BedNumber, ""); err != nil {
		return nil, err
	}
	now := r.now()
	a := &model.Assignment{
		ID:         r.newID(),
		PoolID:     target.ID,
		PoolKind:   target.Kind,
		Assignee:   assignee.Ref,
		BedNumber:  req.BedNumber,
		Weight:     assignee.Weight,
		Notes:      req.Notes,
		AssignedBy: req.AssignedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	if err := r.increment(ctx, tx, target, a.Weight); err != nil {
		return nil, err
	}
	return &model.AssignResult{Outcome: model.OutcomeCreated, Assignment: a, Pool: target}, nil
}

// keep handles a repeat assignment into the same pool. Only a request for a
// different bed changes anything.
func (r *Registry) keep(ctx context.Context, tx repository.Tx, target *model.Pool,
	a *model.Assignment, req model.AssignRequest) (*model.AssignResult, error) {
	if req.BedNumber == nil || (a.BedNumber != nil && *a.BedNumber == *req.BedNumber) {
		return &model.AssignResult{Outcome: model.OutcomeUnchanged, Assignment: a, Pool: target}, nil
	}
	if err := checkBed(ctx, tx, target, req.BedNumber, a.ID); err != nil {
		return nil, err
	}
	a.BedNumber = req.BedNumber
	r.touch(a, req)
	if err := tx.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}
	return &model.AssignResult{Outcome: model.OutcomeBedChanged, Assignment: a, Pool: target}, nil
}

// move repoints an existing assignment. The old pool gives back the weight
// recorded on the assignment; the new pool takes the assignee's current one.
func (r *Registry) move(ctx context.Context, tx repository.Tx, from, to *model.Pool,
	a *model.Assignment, assignee *model.Assignee, req model.AssignRequest) (*model.AssignResult, error) {
	if !to.Fits(assignee.Weight) {
		return nil, capacityExceeded(to, assignee.Weight)
	}
	if err := checkBed(ctx, tx, to, req.BedNumber, a.ID); err != nil {
		return nil, err
	}
	if err := r.decrement(ctx, tx, from, a.Weight); err != nil {
		return nil, err
	}
	a.PoolID = to.ID
	a.BedNumber = req.BedNumber
	a.Weight = assignee.Weight
	r.touch(a, req)
	if err := tx.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}
	if err := r.increment(ctx, tx, to, a.Weight); err != nil {
		return nil, err
	}
	return &model.AssignResult{Outcome: model.OutcomeMoved, Assignment: a, Pool: to, Previous: from}, nil
}

func (r *Registry) touch(a *model.Assignment, req model.AssignRequest) {
	if req.Notes != "" {
		a.Notes = req.Notes
	}
	if req.AssignedBy != "" {
		a.AssignedBy = req.AssignedBy
	}
	a.UpdatedAt = r.now()
}

// checkBed verifies a requested bed is within the room and not held by
// anyone other than self.
func checkBed(ctx context.Context, tx repository.Tx, room *model.Pool, bed *int, self string) error {
	if bed == nil {
		return nil
	}
	if *bed < 1 || *bed > room.Capacity {
		return fmt.Errorf("%w: bed %d is outside 1..%d", model.ErrInvalidArgument, *bed, room.Capacity)
	}
	holder, err := tx.FindAssignmentByBed(ctx, room.ID, *bed)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if holder.ID != self {
		return fmt.Errorf("%w: bed %d in %s is taken", model.ErrConflict, *bed, room.Name)
	}
	return nil
}

func capacityExceeded(p *model.Pool, weight int) error {
	return fmt.Errorf("%w: %s has %d of %d places left, %d needed",
		model.ErrCapacityExceeded, p.Name, p.Remaining(), p.Capacity, weight)
}

// Unassign removes one assignment and gives its weight back to the pool.
func (r *Registry) Unassign(ctx context.Context, req model.UnassignRequest) (*model.UnassignResult, error) {
	if req.AssignmentID == "" {
		if req.Assignee == nil {
			return nil, fmt.Errorf("%w: an assignment id or an assignee is required", model.ErrInvalidArgument)
		}
		if err := r.check(*req.Assignee); err != nil {
			return nil, err
		}
		if req.PoolID == "" && req.PoolKind == "" {
			return nil, fmt.Errorf("%w: a pool or pool kind is required", model.ErrInvalidArgument)
		}
		if req.PoolKind != "" && !req.PoolKind.Valid() {
			return nil, fmt.Errorf("%w: unknown pool kind %q", model.ErrInvalidArgument, req.PoolKind)
		}
	}

	var res *model.UnassignResult
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := locateAssignment(ctx, tx, req)
		if err != nil {
			return err
		}
		pools, err := lockPools(ctx, tx, a.PoolID)
		if err != nil {
			return err
		}
		p := pools[a.PoolID]
		if req.EventID != "" && p.EventID != req.EventID {
			return fmt.Errorf("%w: assignment belongs to another event", model.ErrForbidden)
		}
		if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
			return err
		}
		if err := r.decrement(ctx, tx, p, a.Weight); err != nil {
			return err
		}
		res = &model.UnassignResult{Removed: true, Assignment: a, Pool: p}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("assignment removed",
		zap.String("assignment_id", res.Assignment.ID),
		zap.String("pool_id", res.Pool.ID),
		zap.Int("current_size", res.Pool.CurrentSize),
	)
	return res, nil
}

// locateAssignment finds and locks the assignment an UnassignRequest names.
func locateAssignment(ctx context.Context, tx repository.Tx, req model.UnassignRequest) (*model.Assignment, error) {
	if req.AssignmentID != "" {
		a, err := tx.GetAssignment(ctx, req.AssignmentID, true)
		if err != nil {
			return nil, notFound(err, "assignment", req.AssignmentID)
		}
		if req.PoolID != "" && a.PoolID != req.PoolID {
			return nil, fmt.Errorf("%w: assignment %s in pool %s", model.ErrNotFound, req.AssignmentID, req.PoolID)
		}
		return a, nil
	}

	kind := req.PoolKind
	if req.PoolID != "" {
		p, err := tx.GetPool(ctx, req.PoolID, false)
		if err != nil {
			return nil, notFound(err, "pool", req.PoolID)
		}
		if kind != "" && kind != p.Kind {
			return nil, fmt.Errorf("%w: pool %s is a %s, not a %s", model.ErrInvalidArgument, p.ID, p.Kind, kind)
		}
		kind = p.Kind
	}
	a, err := tx.FindAssignment(ctx, kind, *req.Assignee, true)
	if err != nil {
		return nil, notFound(err, string(kind)+" assignment of", req.Assignee.String())
	}
	if req.PoolID != "" && a.PoolID != req.PoolID {
		return nil, fmt.Errorf("%w: %s is not assigned to pool %s", model.ErrNotFound, req.Assignee, req.PoolID)
	}
	return a, nil
}

// ReleaseAssignee removes every assignment an assignee holds, across all pool
// kinds. Registration intake calls it before deleting the registrant.
func (r *Registry) ReleaseAssignee(ctx context.Context, eventID string, ref model.AssigneeRef) (*model.ReleaseResult, error) {
	if err := r.check(ref); err != nil {
		return nil, err
	}
	res := &model.ReleaseResult{Assignee: ref, Removed: []model.Assignment{}}
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		assignments, err := tx.ListAssignmentsByAssignee(ctx, ref, true)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.PoolID)
		}
		pools, err := lockPools(ctx, tx, ids...)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			p := pools[a.PoolID]
			if eventID != "" && p.EventID != eventID {
				return fmt.Errorf("%w: %s belongs to another event", model.ErrForbidden, ref)
			}
			if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
				return err
			}
			if err := r.decrement(ctx, tx, p, a.Weight); err != nil {
				return err
			}
			res.Removed = append(res.Removed, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("assignee released", zap.Stringer("assignee", ref), zap.Int("removed", len(res.Removed)))
	return res, nil
}

// ListAssignments returns the assignments of one pool, oldest first.
func (r *Registry) ListAssignments(ctx context.Context, poolID string) ([]model.Assignment, error) {
	var out []model.Assignment
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetPool(ctx, poolID, false); err != nil {
			return notFound(err, "pool", poolID)
		}
		var err error
		out, err = tx.ListAssignmentsByPool(ctx, poolID, false)
		return err
	})
	return out, err
}
