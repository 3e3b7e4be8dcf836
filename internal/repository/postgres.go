package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/poros/internal/model"
)

// PostgresStore runs units of work as pgx transactions.
//
// Capacity checks are race-free because the ledger reads pool rows with
// SELECT ... FOR UPDATE inside the same transaction that writes the
// assignment and the counter. A second transaction touching the same pool
// blocks on the row lock until the first commits or rolls back, then reads
// the updated counter.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTx begins a transaction, runs fn and commits when fn succeeds.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapErr(err))
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

type scanner interface {
	Scan(dest ...any) error
}

// mapErr translates pgx errors into the model taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "uq_assignments_bed" {
				return fmt.Errorf("%w: bed already taken", model.ErrConflict)
			}
			return fmt.Errorf("%w: duplicate %s", model.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: still referenced (%s)", model.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}

// ─── Events ──────────────────────────────────────────────────────────────────

func (t *pgTx) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO events (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		e.ID, e.Name, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", mapErr(err))
	}
	return nil
}

func (t *pgTx) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM events WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

func (t *pgTx) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, name, description, created_at FROM events ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ─── Registrants ─────────────────────────────────────────────────────────────

func (t *pgTx) GetIndividual(ctx context.Context, id string) (*model.Individual, error) {
	var i model.Individual
	err := t.tx.QueryRow(ctx,
		`SELECT id, event_id, first_name, last_name FROM individual_registrations WHERE id = $1`, id,
	).Scan(&i.ID, &i.EventID, &i.FirstName, &i.LastName)
	if err != nil {
		return nil, mapErr(err)
	}
	return &i, nil
}

func (t *pgTx) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	var p model.Participant
	err := t.tx.QueryRow(ctx,
		`SELECT p.id, p.group_registration_id, g.event_id, p.first_name, p.last_name
		 FROM group_participants p
		 JOIN group_registrations g ON g.id = p.group_registration_id
		 WHERE p.id = $1`, id,
	).Scan(&p.ID, &p.GroupRegistrationID, &p.EventID, &p.FirstName, &p.LastName)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (t *pgTx) GetGroupRegistration(ctx context.Context, id string) (*model.GroupRegistration, error) {
	var g model.GroupRegistration
	err := t.tx.QueryRow(ctx,
		`SELECT id, event_id, group_name, total_participants FROM group_registrations WHERE id = $1`, id,
	).Scan(&g.ID, &g.EventID, &g.GroupName, &g.TotalParticipants)
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

// ─── Buildings ───────────────────────────────────────────────────────────────

const buildingColumns = `id, event_id, name, total_rooms, total_beds, created_at, updated_at`

func scanBuilding(row scanner) (*model.Building, error) {
	var b model.Building
	if err := row.Scan(&b.ID, &b.EventID, &b.Name, &b.TotalRooms, &b.TotalBeds, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *pgTx) CreateBuilding(ctx context.Context, b *model.Building) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO buildings (`+buildingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.EventID, b.Name, b.TotalRooms, b.TotalBeds, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert building: %w", mapErr(err))
	}
	return nil
}

func (t *pgTx) GetBuilding(ctx context.Context, id string, forUpdate bool) (*model.Building, error) {
	q := `SELECT ` + buildingColumns + ` FROM buildings WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	b, err := scanBuilding(t.tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (t *pgTx) ListBuildings(ctx context.Context, eventID string) ([]model.Building, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+buildingColumns+` FROM buildings WHERE event_id = $1 ORDER BY name, id`, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()

	var out []model.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (t *pgTx) SetBuildingTotals(ctx context.Context, id string, rooms, beds int) error {
	return t.execOne(ctx, "set building totals",
		`UPDATE buildings SET total_rooms = $2, total_beds = $3, updated_at = NOW() WHERE id = $1`,
		id, rooms, beds,
	)
}

func (t *pgTx) DeleteBuilding(ctx context.Context, id string) error {
	return t.execOne(ctx, "delete building", `DELETE FROM buildings WHERE id = $1`, id)
}

func (t *pgTx) DeleteBuildingsByEvent(ctx context.Context, eventID string) (int64, error) {
	return t.execCount(ctx, "delete buildings", `DELETE FROM buildings WHERE event_id = $1`, eventID)
}

// ─── Pools ───────────────────────────────────────────────────────────────────

const poolColumns = `id, event_id, kind, name, capacity, current_size, building_id, details, created_at, updated_at`

func scanPool(row scanner) (*model.Pool, error) {
	var (
		p          model.Pool
		kind       string
		buildingID *string
		details    []byte
	)
	err := row.Scan(&p.ID, &p.EventID, &kind, &p.Name, &p.Capacity, &p.CurrentSize,
		&buildingID, &details, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Kind = model.PoolKind(kind)
	if buildingID != nil {
		p.BuildingID = *buildingID
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &p.Details); err != nil {
			return nil, fmt.Errorf("decode pool details: %w", err)
		}
	}
	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *pgTx) CreatePool(ctx context.Context, p *model.Pool) error {
	details, err := json.Marshal(p.Details)
	if err != nil {
		return fmt.Errorf("encode pool details: %w", err)
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO pools (`+poolColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.EventID, string(p.Kind), p.Name, p.Capacity, p.CurrentSize,
		nullable(p.BuildingID), details, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", mapErr(err))
	}
	return nil
}

func (t *pgTx) GetPool(ctx context.Context, id string, forUpdate bool) (*model.Pool, error) {
	q := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	p, err := scanPool(t.tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (t *pgTx) queryPools(ctx context.Context, q string, args ...any) ([]model.Pool, error) {
	rows, err := t.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var out []model.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListPools returns the event's pools; an empty kind returns every kind.
func (t *pgTx) ListPools(ctx context.Context, eventID string, kind model.PoolKind) ([]model.Pool, error) {
	return t.queryPools(ctx,
		`SELECT `+poolColumns+` FROM pools
		 WHERE event_id = $1 AND ($2 = '' OR kind = $2)
		 ORDER BY kind, name, id`,
		eventID, string(kind),
	)
}

func (t *pgTx) ListPoolsByBuilding(ctx context.Context, buildingID string) ([]model.Pool, error) {
	return t.queryPools(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE building_id = $1 ORDER BY name, id`, buildingID,
	)
}

func (t *pgTx) UpdatePool(ctx context.Context, p *model.Pool) error {
	details, err := json.Marshal(p.Details)
	if err != nil {
		return fmt.Errorf("encode pool details: %w", err)
	}
	return t.execOne(ctx, "update pool",
		`UPDATE pools SET name = $2, capacity = $3, details = $4, updated_at = $5 WHERE id = $1`,
		p.ID, p.Name, p.Capacity, details, p.UpdatedAt,
	)
}

func (t *pgTx) SetPoolSize(ctx context.Context, id string, size int) error {
	return t.execOne(ctx, "set pool size",
		`UPDATE pools SET current_size = $2, updated_at = NOW() WHERE id = $1`, id, size,
	)
}

func (t *pgTx) DeletePool(ctx context.Context, id string) error {
	return t.execOne(ctx, "delete pool", `DELETE FROM pools WHERE id = $1`, id)
}

func (t *pgTx) DeletePoolsByEvent(ctx context.Context, eventID string, kind model.PoolKind) (int64, error) {
	return t.execCount(ctx, "delete pools",
		`DELETE FROM pools WHERE event_id = $1 AND kind = $2`, eventID, string(kind),
	)
}

// ─── Assignments ─────────────────────────────────────────────────────────────

const assignmentColumns = `id, pool_id, pool_kind, individual_id, participant_id, group_registration_id,
	bed_number, weight, notes, assigned_by, created_at, updated_at`

// assigneeColumn names the nullable column holding refs of kind k.
func assigneeColumn(k model.AssigneeKind) (string, error) {
	switch k {
	case model.AssigneeIndividual:
		return "individual_id", nil
	case model.AssigneeParticipant:
		return "participant_id", nil
	case model.AssigneeGroupRegistration:
		return "group_registration_id", nil
	}
	return "", fmt.Errorf("%w: unknown assignee kind %q", model.ErrInvalidArgument, k)
}

// assigneeArgs spreads ref over the three nullable columns.
func assigneeArgs(ref model.AssigneeRef) (individual, participant, group *string) {
	id := ref.ID
	switch ref.Kind {
	case model.AssigneeIndividual:
		individual = &id
	case model.AssigneeParticipant:
		participant = &id
	case model.AssigneeGroupRegistration:
		group = &id
	}
	return
}

// assigneeFromColumns is the inverse of assigneeArgs.
func assigneeFromColumns(individual, participant, group *string) (model.AssigneeRef, error) {
	switch {
	case individual != nil:
		return model.AssigneeRef{Kind: model.AssigneeIndividual, ID: *individual}, nil
	case participant != nil:
		return model.AssigneeRef{Kind: model.AssigneeParticipant, ID: *participant}, nil
	case group != nil:
		return model.AssigneeRef{Kind: model.AssigneeGroupRegistration, ID: *group}, nil
	}
	return model.AssigneeRef{}, errors.New("assignment row has no assignee")
}

func scanAssignment(row scanner) (*model.Assignment, error) {
	var (
		a                       model.Assignment
		kind                    string
		individual, participant *string
		group                   *string
	)
	err := row.Scan(&a.ID, &a.PoolID, &kind, &individual, &participant, &group,
		&a.BedNumber, &a.Weight, &a.Notes, &a.AssignedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.PoolKind = model.PoolKind(kind)
	if a.Assignee, err = assigneeFromColumns(individual, participant, group); err != nil {
		return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
	}
	return &a, nil
}

func (t *pgTx) queryAssignments(ctx context.Context, q string, args ...any) ([]model.Assignment, error) {
	rows, err := t.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *pgTx) CreateAssignment(ctx context.Context, a *model.Assignment) error {
	individual, participant, group := assigneeArgs(a.Assignee)
	_, err := t.tx.Exec(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.PoolID, string(a.PoolKind), individual, participant, group,
		a.BedNumber, a.Weight, a.Notes, a.AssignedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", mapErr(err))
	}
	return nil
}

func (t *pgTx) GetAssignment(ctx context.Context, id string, forUpdate bool) (*model.Assignment, error) {
	q := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	a, err := scanAssignment(t.tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (t *pgTx) FindAssignment(ctx context.Context, kind model.PoolKind, ref model.AssigneeRef, forUpdate bool) (*model.Assignment, error) {
	col, err := assigneeColumn(ref.Kind)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + assignmentColumns + ` FROM assignments WHERE pool_kind = $1 AND ` + col + ` = $2`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	a, err := scanAssignment(t.tx.QueryRow(ctx, q, string(kind), ref.ID))
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (t *pgTx) FindAssignmentByBed(ctx context.Context, poolID string, bed int) (*model.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE pool_id = $1 AND bed_number = $2`,
		poolID, bed,
	))
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (t *pgTx) ListAssignmentsByPool(ctx context.Context, poolID string, forUpdate bool) ([]model.Assignment, error) {
	q := `SELECT ` + assignmentColumns + ` FROM assignments WHERE pool_id = $1 ORDER BY created_at, id`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	return t.queryAssignments(ctx, q, poolID)
}

func (t *pgTx) ListAssignmentsByAssignee(ctx context.Context, ref model.AssigneeRef, forUpdate bool) ([]model.Assignment, error) {
	col, err := assigneeColumn(ref.Kind)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + assignmentColumns + ` FROM assignments WHERE ` + col + ` = $1 ORDER BY pool_kind`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	return t.queryAssignments(ctx, q, ref.ID)
}

func (t *pgTx) UpdateAssignment(ctx context.Context, a *model.Assignment) error {
	return t.execOne(ctx, "update assignment",
		`UPDATE assignments
		 SET pool_id = $2, bed_number = $3, weight = $4, notes = $5, assigned_by = $6, updated_at = $7
		 WHERE id = $1`,
		a.ID, a.PoolID, a.BedNumber, a.Weight, a.Notes, a.AssignedBy, a.UpdatedAt,
	)
}

func (t *pgTx) DeleteAssignment(ctx context.Context, id string) error {
	return t.execOne(ctx, "delete assignment", `DELETE FROM assignments WHERE id = $1`, id)
}

func (t *pgTx) DeleteAssignmentsByPool(ctx context.Context, poolID string) (int64, error) {
	return t.execCount(ctx, "delete pool assignments", `DELETE FROM assignments WHERE pool_id = $1`, poolID)
}

func (t *pgTx) DeleteAssignmentsByEvent(ctx context.Context, eventID string, kind model.PoolKind) (int64, error) {
	return t.execCount(ctx, "delete event assignments",
		`DELETE FROM assignments a
		 USING pools p
		 WHERE a.pool_id = p.id AND p.event_id = $1 AND p.kind = $2`,
		eventID, string(kind),
	)
}

// ─── Auxiliary ───────────────────────────────────────────────────────────────

func (t *pgTx) DeleteStaffByEvent(ctx context.Context, eventID string) (int64, error) {
	return t.execCount(ctx, "delete staff", `DELETE FROM event_staff WHERE event_id = $1`, eventID)
}

func (t *pgTx) DeleteADAByEvent(ctx context.Context, eventID string) (int64, error) {
	return t.execCount(ctx, "delete ada accommodations", `DELETE FROM ada_accommodations WHERE event_id = $1`, eventID)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// execOne runs a statement that must touch exactly one row.
func (t *pgTx) execOne(ctx context.Context, op, q string, args ...any) error {
	tag, err := t.tx.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *pgTx) execCount(ctx context.Context, op, q string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return tag.RowsAffected(), nil
}
