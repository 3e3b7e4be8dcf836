// Package repository implements persistence for the assignment registry.
// PostgresStore uses pgx directly (no ORM); MemoryStore backs tests and
// database-less local runs.
package repository

import (
	"context"

	"github.com/Shivanand-hulikatti/poros/internal/model"
)

// Store runs units of work. fn's changes are committed only when it returns
// nil; any error discards them all.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside one unit of work.
// Lookups return model.ErrNotFound when the row does not exist.
type Tx interface {
	// Events
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)

	// Registrants (owned by registration intake, read here)
	GetIndividual(ctx context.Context, id string) (*model.Individual, error)
	GetParticipant(ctx context.Context, id string) (*model.Participant, error)
	GetGroupRegistration(ctx context.Context, id string) (*model.GroupRegistration, error)

	// Buildings
	CreateBuilding(ctx context.Context, b *model.Building) error
	GetBuilding(ctx context.Context, id string, forUpdate bool) (*model.Building, error)
	ListBuildings(ctx context.Context, eventID string) ([]model.Building, error)
	SetBuildingTotals(ctx context.Context, id string, rooms, beds int) error
	DeleteBuilding(ctx context.Context, id string) error
	DeleteBuildingsByEvent(ctx context.Context, eventID string) (int64, error)

	// Pools. GetPool with forUpdate holds the row until the unit of work ends.
	CreatePool(ctx context.Context, p *model.Pool) error
	GetPool(ctx context.Context, id string, forUpdate bool) (*model.Pool, error)
	ListPools(ctx context.Context, eventID string, kind model.PoolKind) ([]model.Pool, error)
	ListPoolsByBuilding(ctx context.Context, buildingID string) ([]model.Pool, error)
	UpdatePool(ctx context.Context, p *model.Pool) error
	SetPoolSize(ctx context.Context, id string, size int) error
	DeletePool(ctx context.Context, id string) error
	DeletePoolsByEvent(ctx context.Context, eventID string, kind model.PoolKind) (int64, error)

	// Assignments. There is at most one per (pool kind, assignee) and, for
	// rooms, per (pool, bed number); violations return model.ErrConflict.
	// Callers that lock take assignment rows before pool rows.
	CreateAssignment(ctx context.Context, a *model.Assignment) error
	GetAssignment(ctx context.Context, id string, forUpdate bool) (*model.Assignment, error)
	FindAssignment(ctx context.Context, kind model.PoolKind, ref model.AssigneeRef, forUpdate bool) (*model.Assignment, error)
	FindAssignmentByBed(ctx context.Context, poolID string, bed int) (*model.Assignment, error)
	ListAssignmentsByPool(ctx context.Context, poolID string, forUpdate bool) ([]model.Assignment, error)
	ListAssignmentsByAssignee(ctx context.Context, ref model.AssigneeRef, forUpdate bool) ([]model.Assignment, error)
	UpdateAssignment(ctx context.Context, a *model.Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
	DeleteAssignmentsByPool(ctx context.Context, poolID string) (int64, error)
	DeleteAssignmentsByEvent(ctx context.Context, eventID string, kind model.PoolKind) (int64, error)

	// Event-scoped auxiliary rows cleared by a full reset
	DeleteStaffByEvent(ctx context.Context, eventID string) (int64, error)
	DeleteADAByEvent(ctx context.Context, eventID string) (int64, error)
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*pgTx)(nil)
	_ Tx    = (*memTx)(nil)
)
