package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/drift"
	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
)

type fixture struct {
	store *repository.MemoryStore
	queue *drift.MemoryQueue
	reg   *Registry
	event string
	seq   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryStore(),
		queue: drift.NewMemoryQueue(),
	}
	f.reg = NewRegistry(f.store, f.queue, zap.NewNop())
	f.event = f.addEvent("Winter Camp")
	return f
}

func (f *fixture) next(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%03d", prefix, f.seq)
}

func (f *fixture) addEvent(name string) string {
	id := f.next("evt")
	f.store.AddEvent(model.Event{ID: id, Name: name, CreatedAt: time.Now().UTC()})
	return id
}

func (f *fixture) individual(eventID string) model.AssigneeRef {
	id := f.next("ind")
	f.store.AddIndividual(model.Individual{ID: id, EventID: eventID, FirstName: "Ada", LastName: id})
	return model.AssigneeRef{Kind: model.AssigneeIndividual, ID: id}
}

func (f *fixture) group(eventID string, size int) model.AssigneeRef {
	id := f.next("grp")
	f.store.AddGroupRegistration(model.GroupRegistration{ID: id, EventID: eventID, GroupName: "Youth " + id, TotalParticipants: size})
	return model.AssigneeRef{Kind: model.AssigneeGroupRegistration, ID: id}
}

func (f *fixture) participant(group model.AssigneeRef) model.AssigneeRef {
	id := f.next("par")
	f.store.AddParticipant(model.Participant{ID: id, GroupRegistrationID: group.ID, FirstName: "Sam", LastName: id})
	return model.AssigneeRef{Kind: model.AssigneeParticipant, ID: id}
}

func (f *fixture) building(t *testing.T, eventID string) *model.Building {
	t.Helper()
	b, err := f.reg.CreateBuilding(context.Background(), eventID, model.CreateBuildingRequest{Name: f.next("Hall")})
	require.NoError(t, err)
	return b
}

func (f *fixture) room(t *testing.T, buildingID string, capacity int) *model.Pool {
	t.Helper()
	p, err := f.reg.CreatePool(context.Background(), f.event, model.CreatePoolRequest{
		Kind:       model.PoolRoom,
		Name:       f.next("Room"),
		Capacity:   capacity,
		BuildingID: buildingID,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) pool(t *testing.T, kind model.PoolKind, capacity int) *model.Pool {
	t.Helper()
	p, err := f.reg.CreatePool(context.Background(), f.event, model.CreatePoolRequest{
		Kind:     kind,
		Name:     f.next(string(kind)),
		Capacity: capacity,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) assign(poolID string, ref model.AssigneeRef) (*model.AssignResult, error) {
	return f.reg.Assign(context.Background(), model.AssignRequest{PoolID: poolID, Assignee: ref, AssignedBy: "staff-1"})
}

func (f *fixture) size(t *testing.T, poolID string) int {
	t.Helper()
	p, err := f.reg.GetPool(context.Background(), poolID)
	require.NoError(t, err)
	return p.CurrentSize
}

// requireConsistent recomputes every pool's occupancy of the fixture event
// from the ledger and compares it with the stored counter.
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	pools, err := f.reg.ListPools(ctx, f.event, "")
	require.NoError(t, err)
	for _, p := range pools {
		assignments, err := f.reg.ListAssignments(ctx, p.ID)
		require.NoError(t, err)
		sum := 0
		for _, a := range assignments {
			sum += a.Weight
		}
		require.Equalf(t, sum, p.CurrentSize, "pool %s (%s)", p.Name, p.Kind)
	}
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.reg.CreateEvent(ctx, model.CreateEventRequest{Name: "  Spring Retreat ", Description: "April"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Spring Retreat", e.Name)

	got, err := f.reg.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)

	events, err := f.reg.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCreateEvent_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.reg.CreateEvent(context.Background(), model.CreateEventRequest{Name: "   "})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestGetEvent_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.reg.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.reg.GetEvent(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestResolveAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(f.event, 7)
	p := f.participant(g)
	i := f.individual(f.event)

	tests := []struct {
		name   string
		ref    model.AssigneeRef
		weight int
	}{
		{"individual", i, 1},
		{"participant", p, 1},
		{"group", g, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := f.reg.ResolveAssignee(ctx, f.event, tc.ref)
			require.NoError(t, err)
			assert.Equal(t, tc.weight, a.Weight)
			assert.Equal(t, f.event, a.EventID)
			assert.NotEmpty(t, a.Name)
		})
	}
}

func TestResolveAssignee_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.addEvent("Other")
	g := f.group(other, 3)

	_, err := f.reg.ResolveAssignee(ctx, f.event, f.participant(g))
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.reg.ResolveAssignee(ctx, f.event, model.AssigneeRef{Kind: model.AssigneeIndividual, ID: "nobody"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.reg.ResolveAssignee(ctx, f.event, model.AssigneeRef{Kind: "staff", ID: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}
