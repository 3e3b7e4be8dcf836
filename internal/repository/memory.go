package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/poros/internal/model"
)

// MemoryStore keeps everything in process memory. Units of work run one at a
// time against a private copy of the state; the copy replaces the live state
// only when the unit of work succeeds, so a failed call leaves nothing behind.
// It enforces the same uniqueness rules as the Postgres schema.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	events      map[string]model.Event
	individuals map[string]model.Individual
	groups      map[string]model.GroupRegistration
	// participants keep only the parent group id; the event is read from the group.
	participants map[string]model.Participant
	buildings    map[string]model.Building
	pools        map[string]model.Pool
	assignments  map[string]model.Assignment
	staff        map[string]string // staff id -> event id
	ada          map[string]string // accommodation id -> event id
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		events:       map[string]model.Event{},
		individuals:  map[string]model.Individual{},
		groups:       map[string]model.GroupRegistration{},
		participants: map[string]model.Participant{},
		buildings:    map[string]model.Building{},
		pools:        map[string]model.Pool{},
		assignments:  map[string]model.Assignment{},
		staff:        map[string]string{},
		ada:          map[string]string{},
	}}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	pools := make(map[string]model.Pool, len(s.pools))
	for id, p := range s.pools {
		p.Details = p.Details.Clone()
		pools[id] = p
	}
	assignments := make(map[string]model.Assignment, len(s.assignments))
	for id, a := range s.assignments {
		a.BedNumber = cloneInt(a.BedNumber)
		assignments[id] = a
	}
	return &memState{
		events:       cloneMap(s.events),
		individuals:  cloneMap(s.individuals),
		groups:       cloneMap(s.groups),
		participants: cloneMap(s.participants),
		buildings:    cloneMap(s.buildings),
		pools:        pools,
		assignments:  assignments,
		staff:        cloneMap(s.staff),
		ada:          cloneMap(s.ada),
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// InTx runs fn against a private copy of the state and publishes the copy
// when fn returns nil.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// ─── Seeding (registration intake lives outside the registry) ───────────────

// AddEvent stores an event.
func (s *MemoryStore) AddEvent(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.events[e.ID] = e
}

// AddIndividual stores an individual registration.
func (s *MemoryStore) AddIndividual(i model.Individual) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.individuals[i.ID] = i
}

// AddGroupRegistration stores or replaces a group registration.
func (s *MemoryStore) AddGroupRegistration(g model.GroupRegistration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.groups[g.ID] = g
}

// AddParticipant stores a participant of an existing group registration.
func (s *MemoryStore) AddParticipant(p model.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.EventID = ""
	s.state.participants[p.ID] = p
}

// AddStaff stores an event staff row.
func (s *MemoryStore) AddStaff(id, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.staff[id] = eventID
}

// AddADA stores an event ADA accommodation row.
func (s *MemoryStore) AddADA(id, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ada[id] = eventID
}

type memTx struct {
	st *memState
}

// ─── Events ──────────────────────────────────────────────────────────────────

func (t *memTx) CreateEvent(_ context.Context, e *model.Event) error {
	if _, ok := t.st.events[e.ID]; ok {
		return fmt.Errorf("%w: event %s exists", model.ErrConflict, e.ID)
	}
	t.st.events[e.ID] = *e
	return nil
}

func (t *memTx) GetEvent(_ context.Context, id string) (*model.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

func (t *memTx) ListEvents(_ context.Context) ([]model.Event, error) {
	out := make([]model.Event, 0, len(t.st.events))
	for _, e := range t.st.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ─── Registrants ─────────────────────────────────────────────────────────────

func (t *memTx) GetIndividual(_ context.Context, id string) (*model.Individual, error) {
	i, ok := t.st.individuals[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &i, nil
}

func (t *memTx) GetParticipant(_ context.Context, id string) (*model.Participant, error) {
	p, ok := t.st.participants[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	g, ok := t.st.groups[p.GroupRegistrationID]
	if !ok {
		return nil, model.ErrNotFound
	}
	p.EventID = g.EventID
	return &p, nil
}

func (t *memTx) GetGroupRegistration(_ context.Context, id string) (*model.GroupRegistration, error) {
	g, ok := t.st.groups[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &g, nil
}

// ─── Buildings ───────────────────────────────────────────────────────────────

func (t *memTx) CreateBuilding(_ context.Context, b *model.Building) error {
	if _, ok := t.st.events[b.EventID]; !ok {
		return fmt.Errorf("%w: event %s", model.ErrNotFound, b.EventID)
	}
	t.st.buildings[b.ID] = *b
	return nil
}

func (t *memTx) GetBuilding(_ context.Context, id string, _ bool) (*model.Building, error) {
	b, ok := t.st.buildings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) ListBuildings(_ context.Context, eventID string) ([]model.Building, error) {
	var out []model.Building
	for _, b := range t.st.buildings {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) SetBuildingTotals(_ context.Context, id string, rooms, beds int) error {
	b, ok := t.st.buildings[id]
	if !ok {
		return model.ErrNotFound
	}
	b.TotalRooms, b.TotalBeds, b.UpdatedAt = rooms, beds, time.Now().UTC()
	t.st.buildings[id] = b
	return nil
}

func (t *memTx) DeleteBuilding(_ context.Context, id string) error {
	if _, ok := t.st.buildings[id]; !ok {
		return model.ErrNotFound
	}
	for _, p := range t.st.pools {
		if p.BuildingID == id {
			return fmt.Errorf("%w: building %s still has rooms", model.ErrConflict, id)
		}
	}
	delete(t.st.buildings, id)
	return nil
}

func (t *memTx) DeleteBuildingsByEvent(ctx context.Context, eventID string) (int64, error) {
	var n int64
	for id, b := range t.st.buildings {
		if b.EventID != eventID {
			continue
		}
		if err := t.DeleteBuilding(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ─── Pools ───────────────────────────────────────────────────────────────────

func (t *memTx) CreatePool(_ context.Context, p *model.Pool) error {
	if _, ok := t.st.events[p.EventID]; !ok {
		return fmt.Errorf("%w: event %s", model.ErrNotFound, p.EventID)
	}
	if p.BuildingID != "" {
		if _, ok := t.st.buildings[p.BuildingID]; !ok {
			return fmt.Errorf("%w: building %s", model.ErrNotFound, p.BuildingID)
		}
	}
	cp := *p
	cp.Details = p.Details.Clone()
	t.st.pools[p.ID] = cp
	return nil
}

func (t *memTx) GetPool(_ context.Context, id string, _ bool) (*model.Pool, error) {
	p, ok := t.st.pools[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	p.Details = p.Details.Clone()
	return &p, nil
}

func (t *memTx) filterPools(keep func(model.Pool) bool) []model.Pool {
	var out []model.Pool
	for _, p := range t.st.pools {
		if keep(p) {
			p.Details = p.Details.Clone()
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out
}

func (t *memTx) ListPools(_ context.Context, eventID string, kind model.PoolKind) ([]model.Pool, error) {
	return t.filterPools(func(p model.Pool) bool {
		return p.EventID == eventID && (kind == "" || p.Kind == kind)
	}), nil
}

func (t *memTx) ListPoolsByBuilding(_ context.Context, buildingID string) ([]model.Pool, error) {
	return t.filterPools(func(p model.Pool) bool { return p.BuildingID == buildingID }), nil
}

func (t *memTx) UpdatePool(_ context.Context, p *model.Pool) error {
	cur, ok := t.st.pools[p.ID]
	if !ok {
		return model.ErrNotFound
	}
	cur.Name, cur.Capacity, cur.Details, cur.UpdatedAt = p.Name, p.Capacity, p.Details.Clone(), p.UpdatedAt
	t.st.pools[p.ID] = cur
	return nil
}

func (t *memTx) SetPoolSize(_ context.Context, id string, size int) error {
	p, ok := t.st.pools[id]
	if !ok {
		return model.ErrNotFound
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size for pool %s", model.ErrInvalidArgument, id)
	}
	p.CurrentSize, p.UpdatedAt = size, time.Now().UTC()
	t.st.pools[id] = p
	return nil
}

func (t *memTx) DeletePool(_ context.Context, id string) error {
	if _, ok := t.st.pools[id]; !ok {
		return model.ErrNotFound
	}
	for _, a := range t.st.assignments {
		if a.PoolID == id {
			return fmt.Errorf("%w: pool %s still has assignments", model.ErrConflict, id)
		}
	}
	delete(t.st.pools, id)
	return nil
}

func (t *memTx) DeletePoolsByEvent(ctx context.Context, eventID string, kind model.PoolKind) (int64, error) {
	var n int64
	for id, p := range t.st.pools {
		if p.EventID != eventID || p.Kind != kind {
			continue
		}
		if err := t.DeletePool(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ─── Assignments ─────────────────────────────────────────────────────────────

// checkUnique mirrors the partial unique indexes on the assignments table.
func (t *memTx) checkUnique(a *model.Assignment) error {
	for id, other := range t.st.assignments {
		if id == a.ID {
			continue
		}
		if other.PoolKind == a.PoolKind && other.Assignee == a.Assignee {
			return fmt.Errorf("%w: %s already holds a %s assignment", model.ErrConflict, a.Assignee, a.PoolKind)
		}
		if a.BedNumber != nil && other.BedNumber != nil &&
			other.PoolID == a.PoolID && *other.BedNumber == *a.BedNumber {
			return fmt.Errorf("%w: bed already taken", model.ErrConflict)
		}
	}
	return nil
}

func (t *memTx) CreateAssignment(_ context.Context, a *model.Assignment) error {
	if _, ok := t.st.pools[a.PoolID]; !ok {
		return fmt.Errorf("%w: pool %s", model.ErrNotFound, a.PoolID)
	}
	if _, ok := t.st.assignments[a.ID]; ok {
		return fmt.Errorf("%w: assignment %s exists", model.ErrConflict, a.ID)
	}
	if err := t.checkUnique(a); err != nil {
		return err
	}
	cp := *a
	cp.BedNumber = cloneInt(a.BedNumber)
	t.st.assignments[a.ID] = cp
	return nil
}

func (t *memTx) GetAssignment(_ context.Context, id string, _ bool) (*model.Assignment, error) {
	a, ok := t.st.assignments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	a.BedNumber = cloneInt(a.BedNumber)
	return &a, nil
}

func (t *memTx) findOne(keep func(model.Assignment) bool) (*model.Assignment, error) {
	for _, a := range t.st.assignments {
		if keep(a) {
			a.BedNumber = cloneInt(a.BedNumber)
			return &a, nil
		}
	}
	return nil, model.ErrNotFound
}

func (t *memTx) FindAssignment(_ context.Context, kind model.PoolKind, ref model.AssigneeRef, _ bool) (*model.Assignment, error) {
	return t.findOne(func(a model.Assignment) bool { return a.PoolKind == kind && a.Assignee == ref })
}

func (t *memTx) FindAssignmentByBed(_ context.Context, poolID string, bed int) (*model.Assignment, error) {
	return t.findOne(func(a model.Assignment) bool {
		return a.PoolID == poolID && a.BedNumber != nil && *a.BedNumber == bed
	})
}

func (t *memTx) filterAssignments(keep func(model.Assignment) bool) []model.Assignment {
	var out []model.Assignment
	for _, a := range t.st.assignments {
		if keep(a) {
			a.BedNumber = cloneInt(a.BedNumber)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *memTx) ListAssignmentsByPool(_ context.Context, poolID string, _ bool) ([]model.Assignment, error) {
	return t.filterAssignments(func(a model.Assignment) bool { return a.PoolID == poolID }), nil
}

func (t *memTx) ListAssignmentsByAssignee(_ context.Context, ref model.AssigneeRef, _ bool) ([]model.Assignment, error) {
	out := t.filterAssignments(func(a model.Assignment) bool { return a.Assignee == ref })
	sort.SliceStable(out, func(i, j int) bool { return out[i].PoolKind < out[j].PoolKind })
	return out, nil
}

func (t *memTx) UpdateAssignment(_ context.Context, a *model.Assignment) error {
	cur, ok := t.st.assignments[a.ID]
	if !ok {
		return model.ErrNotFound
	}
	if _, ok := t.st.pools[a.PoolID]; !ok {
		return fmt.Errorf("%w: pool %s", model.ErrNotFound, a.PoolID)
	}
	cur.PoolID, cur.BedNumber, cur.Weight = a.PoolID, cloneInt(a.BedNumber), a.Weight
	cur.Notes, cur.AssignedBy, cur.UpdatedAt = a.Notes, a.AssignedBy, a.UpdatedAt
	if err := t.checkUnique(&cur); err != nil {
		return err
	}
	t.st.assignments[a.ID] = cur
	return nil
}

func (t *memTx) DeleteAssignment(_ context.Context, id string) error {
	if _, ok := t.st.assignments[id]; !ok {
		return model.ErrNotFound
	}
	delete(t.st.assignments, id)
	return nil
}

func (t *memTx) deleteAssignmentsWhere(keep func(model.Assignment) bool) int64 {
	var n int64
	for id, a := range t.st.assignments {
		if keep(a) {
			delete(t.st.assignments, id)
			n++
		}
	}
	return n
}

func (t *memTx) DeleteAssignmentsByPool(_ context.Context, poolID string) (int64, error) {
	return t.deleteAssignmentsWhere(func(a model.Assignment) bool { return a.PoolID == poolID }), nil
}

func (t *memTx) DeleteAssignmentsByEvent(_ context.Context, eventID string, kind model.PoolKind) (int64, error) {
	return t.deleteAssignmentsWhere(func(a model.Assignment) bool {
		p, ok := t.st.pools[a.PoolID]
		return ok && p.EventID == eventID && p.Kind == kind
	}), nil
}

// ─── Auxiliary ───────────────────────────────────────────────────────────────

func deleteByEvent(m map[string]string, eventID string) int64 {
	var n int64
	for id, ev := range m {
		if ev == eventID {
			delete(m, id)
			n++
		}
	}
	return n
}

func (t *memTx) DeleteStaffByEvent(_ context.Context, eventID string) (int64, error) {
	return deleteByEvent(t.st.staff, eventID), nil
}

func (t *memTx) DeleteADAByEvent(_ context.Context, eventID string) (int64, error) {
	return deleteByEvent(t.st.ada, eventID), nil
}
