package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/poros/internal/model"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	s.AddEvent(model.Event{ID: "evt-1", Name: "Camp"})
	s.AddIndividual(model.Individual{ID: "ind-1", EventID: "evt-1"})
	s.AddGroupRegistration(model.GroupRegistration{ID: "grp-1", EventID: "evt-1", TotalParticipants: 4})
	s.AddParticipant(model.Participant{ID: "par-1", GroupRegistrationID: "grp-1"})
	require.NoError(t, s.InTx(context.Background(), func(tx Tx) error {
		return tx.CreatePool(context.Background(), &model.Pool{ID: "pool-1", EventID: "evt-1", Kind: model.PoolMealGroup, Name: "Blue", Capacity: 10})
	}))
	return s
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.SetPoolSize(ctx, "pool-1", 5))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		p, err := tx.GetPool(ctx, "pool-1", false)
		require.NoError(t, err)
		assert.Equal(t, 0, p.CurrentSize)
		return nil
	}))
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := seededStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.InTx(ctx, func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_ParticipantTakesGroupEvent(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		p, err := tx.GetParticipant(ctx, "par-1")
		require.NoError(t, err)
		assert.Equal(t, "evt-1", p.EventID)
		return nil
	}))
}

func TestMemoryStore_AssignmentUniqueness(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	ref := model.AssigneeRef{Kind: model.AssigneeIndividual, ID: "ind-1"}
	now := time.Now()

	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		return tx.CreateAssignment(ctx, &model.Assignment{ID: "a-1", PoolID: "pool-1", PoolKind: model.PoolMealGroup, Assignee: ref, Weight: 1, CreatedAt: now})
	}))

	err := s.InTx(ctx, func(tx Tx) error {
		return tx.CreateAssignment(ctx, &model.Assignment{ID: "a-2", PoolID: "pool-1", PoolKind: model.PoolMealGroup, Assignee: ref, Weight: 1, CreatedAt: now})
	})
	assert.ErrorIs(t, err, model.ErrConflict)

	err = s.InTx(ctx, func(tx Tx) error { return tx.DeletePool(ctx, "pool-1") })
	assert.ErrorIs(t, err, model.ErrConflict)

	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		a, err := tx.FindAssignment(ctx, model.PoolMealGroup, ref, true)
		require.NoError(t, err)
		assert.Equal(t, "a-1", a.ID)

		_, err = tx.FindAssignment(ctx, model.PoolRoom, ref, true)
		assert.ErrorIs(t, err, model.ErrNotFound)
		return nil
	}))
}

func roomAssignment(id string, ref model.AssigneeRef, bed *int) *model.Assignment {
	return &model.Assignment{
		ID:        id,
		PoolID:    "room-1",
		PoolKind:  model.PoolRoom,
		Assignee:  ref,
		BedNumber: bed,
		Weight:    1,
	}
}

func TestMemoryStore_BedUniqueness(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	bed := 1

	err := s.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.CreateBuilding(ctx, &model.Building{ID: "b-1", EventID: "evt-1", Name: "Hall"}))
		require.NoError(t, tx.CreatePool(ctx, &model.Pool{ID: "room-1", EventID: "evt-1", Kind: model.PoolRoom, Name: "101", Capacity: 2, BuildingID: "b-1"}))
		require.NoError(t, tx.CreateAssignment(ctx, roomAssignment("a-1", model.AssigneeRef{Kind: model.AssigneeIndividual, ID: "ind-1"}, &bed)))
		return tx.CreateAssignment(ctx, roomAssignment("a-2", model.AssigneeRef{Kind: model.AssigneeParticipant, ID: "par-1"}, &bed))
	})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestMemoryStore_ResetHelpers(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	s.AddStaff("st-1", "evt-1")
	s.AddStaff("st-2", "evt-other")
	s.AddADA("ada-1", "evt-1")

	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.SetPoolSize(ctx, "pool-1", 3))
		require.NoError(t, tx.CreateAssignment(ctx, &model.Assignment{
			ID:       "a-1",
			PoolID:   "pool-1",
			PoolKind: model.PoolMealGroup,
			Assignee: model.AssigneeRef{Kind: model.AssigneeGroupRegistration, ID: "grp-1"},
			Weight:   4,
		}))

		n, err := tx.DeleteAssignmentsByEvent(ctx, "evt-1", model.PoolMealGroup)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = tx.DeletePoolsByEvent(ctx, "evt-1", model.PoolMealGroup)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = tx.DeleteStaffByEvent(ctx, "evt-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = tx.DeleteADAByEvent(ctx, "evt-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	}))
}
