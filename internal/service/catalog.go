package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
)

// ─── Buildings ───────────────────────────────────────────────────────────────

// CreateBuilding adds an empty building to an event.
func (r *Registry) CreateBuilding(ctx context.Context, eventID string, req model.CreateBuildingRequest) (*model.Building, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := r.check(req); err != nil {
		return nil, err
	}
	now := r.now()
	b := &model.Building{
		ID:        r.newID(),
		EventID:   eventID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		if err := requireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		return tx.CreateBuilding(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBuilding returns a building with its current room and bed totals.
func (r *Registry) GetBuilding(ctx context.Context, id string) (*model.Building, error) {
	var b *model.Building
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		b, err = tx.GetBuilding(ctx, id, false)
		if err != nil {
			return notFound(err, "building", id)
		}
		return nil
	})
	return b, err
}

// ListBuildings returns the buildings of an event ordered by name.
func (r *Registry) ListBuildings(ctx context.Context, eventID string) ([]model.Building, error) {
	var out []model.Building
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		if err := requireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListBuildings(ctx, eventID)
		return err
	})
	return out, err
}

// DeleteBuilding removes a building together with its rooms and their
// assignments, in that order.
func (r *Registry) DeleteBuilding(ctx context.Context, id string) (*model.DeleteBuildingResult, error) {
	res := &model.DeleteBuildingResult{BuildingID: id}
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetBuilding(ctx, id, true); err != nil {
			return notFound(err, "building", id)
		}
		rooms, err := tx.ListPoolsByBuilding(ctx, id)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(rooms))
		for _, room := range rooms {
			if _, err := tx.ListAssignmentsByPool(ctx, room.ID, true); err != nil {
				return err
			}
			ids = append(ids, room.ID)
		}
		if _, err := lockPools(ctx, tx, ids...); err != nil {
			return err
		}
		for _, roomID := range ids {
			n, err := tx.DeleteAssignmentsByPool(ctx, roomID)
			if err != nil {
				return err
			}
			res.AssignmentsDeleted += n
			if err := tx.DeletePool(ctx, roomID); err != nil {
				return err
			}
			res.RoomsDeleted++
		}
		return tx.DeleteBuilding(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("building deleted",
		zap.String("building_id", id),
		zap.Int64("rooms", res.RoomsDeleted),
		zap.Int64("assignments", res.AssignmentsDeleted),
	)
	return res, nil
}

// refreshBuildingTotals recomputes the derived room and bed counts. The
// caller holds the building row.
func refreshBuildingTotals(ctx context.Context, tx repository.Tx, buildingID string) error {
	rooms, err := tx.ListPoolsByBuilding(ctx, buildingID)
	if err != nil {
		return err
	}
	beds := 0
	for _, room := range rooms {
		beds += room.Capacity
	}
	return tx.SetBuildingTotals(ctx, buildingID, len(rooms), beds)
}

// ─── Pools ───────────────────────────────────────────────────────────────────

// CreatePool adds an empty pool to an event. Rooms must name a building of
// the same event.
func (r *Registry) CreatePool(ctx context.Context, eventID string, req model.CreatePoolRequest) (*model.Pool, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := r.check(req); err != nil {
		return nil, err
	}
	if req.Kind != model.PoolRoom && req.BuildingID != "" {
		return nil, fmt.Errorf("%w: only rooms belong to a building", model.ErrInvalidArgument)
	}
	if err := req.Details.Check(req.Kind); err != nil {
		return nil, err
	}

	now := r.now()
	p := &model.Pool{
		ID:         r.newID(),
		EventID:    eventID,
		Kind:       req.Kind,
		Name:       req.Name,
		Capacity:   req.Capacity,
		BuildingID: req.BuildingID,
		Details:    req.Details.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		if err := requireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		if p.Kind == model.PoolRoom {
			b, err := tx.GetBuilding(ctx, p.BuildingID, true)
			if err != nil {
				return notFound(err, "building", p.BuildingID)
			}
			if b.EventID != eventID {
				return fmt.Errorf("%w: building %s belongs to another event", model.ErrForbidden, b.ID)
			}
		}
		if err := tx.CreatePool(ctx, p); err != nil {
			return err
		}
		if p.Kind == model.PoolRoom {
			return refreshBuildingTotals(ctx, tx, p.BuildingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("pool created",
		zap.String("pool_id", p.ID),
		zap.String("kind", string(p.Kind)),
		zap.Int("capacity", p.Capacity),
	)
	return p, nil
}

// GetPool returns one pool.
func (r *Registry) GetPool(ctx context.Context, id string) (*model.Pool, error) {
	var p *model.Pool
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		p, err = tx.GetPool(ctx, id, false)
		if err != nil {
			return notFound(err, "pool", id)
		}
		return nil
	})
	return p, err
}

// ListPools returns an event's pools, optionally of a single kind.
func (r *Registry) ListPools(ctx context.Context, eventID string, kind model.PoolKind) ([]model.Pool, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown pool kind %q", model.ErrInvalidArgument, kind)
	}
	var out []model.Pool
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		if err := requireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListPools(ctx, eventID, kind)
		return err
	})
	return out, err
}

// UpdatePool applies a partial update. Capacity may not drop below the
// current occupancy or, for rooms, below the highest bed in use.
func (r *Registry) UpdatePool(ctx context.Context, id string, req model.UpdatePoolRequest) (*model.Pool, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := r.check(req); err != nil {
		return nil, err
	}

	var p *model.Pool
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		peek, err := tx.GetPool(ctx, id, false)
		if err != nil {
			return notFound(err, "pool", id)
		}
		if peek.Kind == model.PoolRoom {
			if _, err := tx.GetBuilding(ctx, peek.BuildingID, true); err != nil {
				return notFound(err, "building", peek.BuildingID)
			}
		}
		if p, err = tx.GetPool(ctx, id, true); err != nil {
			return notFound(err, "pool", id)
		}

		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Details != nil {
			if err := req.Details.Check(p.Kind); err != nil {
				return err
			}
			p.Details = req.Details.Clone()
		}
		if req.Capacity != nil {
			if err := checkShrink(ctx, tx, p, *req.Capacity); err != nil {
				return err
			}
			p.Capacity = *req.Capacity
		}
		p.UpdatedAt = r.now()
		if err := tx.UpdatePool(ctx, p); err != nil {
			return err
		}
		if p.Kind == model.PoolRoom && req.Capacity != nil {
			return refreshBuildingTotals(ctx, tx, p.BuildingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func checkShrink(ctx context.Context, tx repository.Tx, p *model.Pool, capacity int) error {
	if capacity >= p.Capacity {
		return nil
	}
	if capacity < p.CurrentSize {
		return fmt.Errorf("%w: capacity %d is below current occupancy %d", model.ErrConflict, capacity, p.CurrentSize)
	}
	if p.Kind != model.PoolRoom {
		return nil
	}
	assignments, err := tx.ListAssignmentsByPool(ctx, p.ID, false)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.BedNumber != nil && *a.BedNumber > capacity {
			return fmt.Errorf("%w: bed %d is still assigned", model.ErrConflict, *a.BedNumber)
		}
	}
	return nil
}

// DeletePool removes a pool and every assignment pointing at it.
func (r *Registry) DeletePool(ctx context.Context, id string) (*model.DeletePoolResult, error) {
	res := &model.DeletePoolResult{PoolID: id}
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		peek, err := tx.GetPool(ctx, id, false)
		if err != nil {
			return notFound(err, "pool", id)
		}
		if peek.Kind == model.PoolRoom {
			if _, err := tx.GetBuilding(ctx, peek.BuildingID, true); err != nil {
				return notFound(err, "building", peek.BuildingID)
			}
		}
		if _, err := tx.ListAssignmentsByPool(ctx, id, true); err != nil {
			return err
		}
		if _, err := tx.GetPool(ctx, id, true); err != nil {
			return notFound(err, "pool", id)
		}
		if res.AssignmentsDeleted, err = tx.DeleteAssignmentsByPool(ctx, id); err != nil {
			return err
		}
		if err := tx.DeletePool(ctx, id); err != nil {
			return err
		}
		if peek.Kind == model.PoolRoom {
			return refreshBuildingTotals(ctx, tx, peek.BuildingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("pool deleted", zap.String("pool_id", id), zap.Int64("assignments", res.AssignmentsDeleted))
	return res, nil
}

// lockPools locks the given pools in id order and returns them by id.
// Duplicate and empty ids are ignored.
func lockPools(ctx context.Context, tx repository.Tx, ids ...string) (map[string]*model.Pool, error) {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	out := make(map[string]*model.Pool, len(sorted))
	for _, id := range sorted {
		p, err := tx.GetPool(ctx, id, true)
		if err != nil {
			return nil, notFound(err, "pool", id)
		}
		out[id] = p
	}
	return out, nil
}
