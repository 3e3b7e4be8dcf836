package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates every table the registry needs.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Schema is the registry's DDL. The registrant tables are written by
// registration intake; the registry only reads them.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS individual_registrations (
    id         TEXT PRIMARY KEY,
    event_id   TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS group_registrations (
    id                 TEXT PRIMARY KEY,
    event_id           TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    group_name         TEXT NOT NULL DEFAULT '',
    total_participants INT  NOT NULL DEFAULT 0 CHECK (total_participants >= 0)
);

CREATE TABLE IF NOT EXISTS group_participants (
    id                    TEXT PRIMARY KEY,
    group_registration_id TEXT NOT NULL REFERENCES group_registrations(id) ON DELETE CASCADE,
    first_name            TEXT NOT NULL DEFAULT '',
    last_name             TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS buildings (
    id          TEXT PRIMARY KEY,
    event_id    TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    total_rooms INT  NOT NULL DEFAULT 0,
    total_beds  INT  NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_buildings_event_id ON buildings(event_id);

CREATE TABLE IF NOT EXISTS pools (
    id           TEXT PRIMARY KEY,
    event_id     TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    kind         TEXT NOT NULL CHECK (kind IN ('room', 'meal_group', 'seating_section', 'small_group')),
    name         TEXT NOT NULL,
    capacity     INT  NOT NULL CHECK (capacity >= 0),
    current_size INT  NOT NULL DEFAULT 0 CHECK (current_size >= 0),
    building_id  TEXT REFERENCES buildings(id),
    details      JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK ((kind = 'room') = (building_id IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_pools_event_kind ON pools(event_id, kind);
CREATE INDEX IF NOT EXISTS idx_pools_building_id ON pools(building_id);

CREATE TABLE IF NOT EXISTS assignments (
    id                    TEXT PRIMARY KEY,
    pool_id               TEXT NOT NULL REFERENCES pools(id),
    pool_kind             TEXT NOT NULL,
    individual_id         TEXT REFERENCES individual_registrations(id) ON DELETE CASCADE,
    participant_id        TEXT REFERENCES group_participants(id) ON DELETE CASCADE,
    group_registration_id TEXT REFERENCES group_registrations(id) ON DELETE CASCADE,
    bed_number            INT CHECK (bed_number >= 1),
    weight                INT  NOT NULL CHECK (weight >= 0),
    notes                 TEXT NOT NULL DEFAULT '',
    assigned_by           TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (num_nonnulls(individual_id, participant_id, group_registration_id) = 1)
);

CREATE INDEX IF NOT EXISTS idx_assignments_pool_id ON assignments(pool_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_individual
    ON assignments(pool_kind, individual_id) WHERE individual_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_participant
    ON assignments(pool_kind, participant_id) WHERE participant_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_group_registration
    ON assignments(pool_kind, group_registration_id) WHERE group_registration_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_bed
    ON assignments(pool_id, bed_number) WHERE bed_number IS NOT NULL;

CREATE TABLE IF NOT EXISTS event_staff (
    id       TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    name     TEXT NOT NULL,
    role     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ada_accommodations (
    id          TEXT PRIMARY KEY,
    event_id    TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    assignee    TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT ''
);
`
