package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/poros/internal/model"
)

func TestCreatePool_RoomRefreshesBuildingTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.building(t, f.event)

	f.room(t, b.ID, 2)
	f.room(t, b.ID, 4)

	got, err := f.reg.GetBuilding(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalRooms)
	assert.Equal(t, 6, got.TotalBeds)
}

func TestCreatePool_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.building(t, f.event)
	other := f.addEvent("Other")
	foreign := f.building(t, other)

	tests := []struct {
		name string
		req  model.CreatePoolRequest
		want error
	}{
		{"empty name", model.CreatePoolRequest{Kind: model.PoolMealGroup, Name: " ", Capacity: 5}, model.ErrInvalidArgument},
		{"negative capacity", model.CreatePoolRequest{Kind: model.PoolMealGroup, Name: "A", Capacity: -1}, model.ErrInvalidArgument},
		{"unknown kind", model.CreatePoolRequest{Kind: "tent", Name: "A", Capacity: 5}, model.ErrInvalidArgument},
		{"room without building", model.CreatePoolRequest{Kind: model.PoolRoom, Name: "A", Capacity: 2}, model.ErrInvalidArgument},
		{"building on non-room", model.CreatePoolRequest{Kind: model.PoolSmallGroup, Name: "A", Capacity: 2, BuildingID: b.ID}, model.ErrInvalidArgument},
		{
			"details for another kind",
			model.CreatePoolRequest{Kind: model.PoolSeatingSection, Name: "A", Capacity: 2,
				Details: model.PoolDetails{Room: &model.RoomDetails{Floor: "1"}}},
			model.ErrInvalidArgument,
		},
		{
			"bad room gender",
			model.CreatePoolRequest{Kind: model.PoolRoom, Name: "A", Capacity: 2, BuildingID: b.ID,
				Details: model.PoolDetails{Room: &model.RoomDetails{Gender: "any"}}},
			model.ErrInvalidArgument,
		},
		{"unknown building", model.CreatePoolRequest{Kind: model.PoolRoom, Name: "A", Capacity: 2, BuildingID: "nope"}, model.ErrNotFound},
		{"building of another event", model.CreatePoolRequest{Kind: model.PoolRoom, Name: "A", Capacity: 2, BuildingID: foreign.ID}, model.ErrForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.reg.CreatePool(ctx, f.event, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.reg.CreatePool(ctx, "missing-event", model.CreatePoolRequest{Kind: model.PoolMealGroup, Name: "A", Capacity: 1})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListPools_ByKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.building(t, f.event)
	f.room(t, b.ID, 2)
	f.pool(t, model.PoolMealGroup, 10)
	f.pool(t, model.PoolMealGroup, 10)
	f.pool(t, model.PoolSmallGroup, 8)

	all, err := f.reg.ListPools(ctx, f.event, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	meals, err := f.reg.ListPools(ctx, f.event, model.PoolMealGroup)
	require.NoError(t, err)
	assert.Len(t, meals, 2)
	for _, p := range meals {
		assert.Equal(t, model.PoolMealGroup, p.Kind)
	}

	_, err = f.reg.ListPools(ctx, f.event, "tent")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestUpdatePool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.building(t, f.event)
	room := f.room(t, b.ID, 2)

	name, capacity := "Room 101", 4
	p, err := f.reg.UpdatePool(ctx, room.ID, model.UpdatePoolRequest{
		Name:     &name,
		Capacity: &capacity,
		Details:  &model.PoolDetails{Room: &model.RoomDetails{Floor: "1", Gender: "female"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Room 101", p.Name)
	assert.Equal(t, 4, p.Capacity)
	assert.Equal(t, "female", p.Details.Room.Gender)

	got, err := f.reg.GetBuilding(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalBeds)

	wrong := model.PoolDetails{Seating: &model.SeatingDetails{Color: "red"}}
	_, err = f.reg.UpdatePool(ctx, room.ID, model.UpdatePoolRequest{Details: &wrong})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = f.reg.UpdatePool(ctx, "missing", model.UpdatePoolRequest{Name: &name})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdatePool_ShrinkBelowOccupancyRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	meal := f.pool(t, model.PoolMealGroup, 20)
	_, err := f.assign(meal.ID, f.group(f.event, 12))
	require.NoError(t, err)

	capacity := 11
	_, err = f.reg.UpdatePool(ctx, meal.ID, model.UpdatePoolRequest{Capacity: &capacity})
	assert.ErrorIs(t, err, model.ErrConflict)

	capacity = 12
	p, err := f.reg.UpdatePool(ctx, meal.ID, model.UpdatePoolRequest{Capacity: &capacity})
	require.NoError(t, err)
	assert.True(t, p.IsFull())
}

func TestUpdatePool_ShrinkBelowAssignedBedRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.building(t, f.event)
	room := f.room(t, b.ID, 4)
	bed := 4
	_, err := f.reg.Assign(ctx, model.AssignRequest{PoolID: room.ID, Assignee: f.individual(f.event), BedNumber: &bed})
	require.NoError(t, err)

	capacity := 3
	_, err = f.reg.UpdatePool(ctx, room.ID, model.UpdatePoolRequest{Capacity: &capacity})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestDeletePool_CascadesAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.building(t, f.event)
	room := f.room(t, b.ID, 3)
	sibling := f.room(t, b.ID, 3)
	g := f.group(f.event, 0)

	_, err := f.assign(room.ID, f.participant(g))
	require.NoError(t, err)
	_, err = f.assign(room.ID, f.participant(g))
	require.NoError(t, err)
	kept := f.participant(g)
	_, err = f.assign(sibling.ID, kept)
	require.NoError(t, err)

	res, err := f.reg.DeletePool(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.AssignmentsDeleted)

	_, err = f.reg.GetPool(ctx, room.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	rc, err := f.reg.RecountPool(ctx, sibling.ID)
	require.NoError(t, err)
	assert.False(t, rc.Drifted())
	assert.Equal(t, 1, rc.Current)

	got, err := f.reg.GetBuilding(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRooms)
	assert.Equal(t, 3, got.TotalBeds)
	f.requireConsistent(t)

	_, err = f.reg.DeletePool(ctx, room.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteBuilding_Cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.building(t, f.event)
	r1 := f.room(t, b.ID, 2)
	r2 := f.room(t, b.ID, 2)
	meal := f.pool(t, model.PoolMealGroup, 10)
	person := f.individual(f.event)

	_, err := f.assign(r1.ID, person)
	require.NoError(t, err)
	_, err = f.assign(r2.ID, f.individual(f.event))
	require.NoError(t, err)
	_, err = f.assign(meal.ID, person)
	require.NoError(t, err)

	res, err := f.reg.DeleteBuilding(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RoomsDeleted)
	assert.Equal(t, int64(2), res.AssignmentsDeleted)

	_, err = f.reg.GetBuilding(ctx, b.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 1, f.size(t, meal.ID))
	f.requireConsistent(t)

	buildings, err := f.reg.ListBuildings(ctx, f.event)
	require.NoError(t, err)
	assert.Empty(t, buildings)
}
