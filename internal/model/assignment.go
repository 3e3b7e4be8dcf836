package model

import (
	"fmt"
	"time"
)

// AssigneeKind tags which kind of registrant an AssigneeRef points at.
type AssigneeKind string

const (
	AssigneeIndividual        AssigneeKind = "individual"
	AssigneeParticipant       AssigneeKind = "participant"
	AssigneeGroupRegistration AssigneeKind = "group_registration"
)

// ParseAssigneeKind validates s as an assignee kind.
func ParseAssigneeKind(s string) (AssigneeKind, error) {
	k := AssigneeKind(s)
	switch k {
	case AssigneeIndividual, AssigneeParticipant, AssigneeGroupRegistration:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown assignee kind %q", ErrInvalidArgument, s)
}

// AssigneeRef identifies one assignee. Exactly one kind is carried, so
// callers never inspect which of several ids is set.
type AssigneeRef struct {
	Kind AssigneeKind `json:"kind" validate:"required,oneof=individual participant group_registration"`
	ID   string       `json:"id" validate:"required"`
}

func (r AssigneeRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Assignee is a resolved AssigneeRef.
type Assignee struct {
	Ref     AssigneeRef
	EventID string
	Name    string
	// Weight is the occupancy contribution: 1 for a person, the member
	// count for a whole group.
	Weight int
}

// Assignment links one assignee to one pool.
type Assignment struct {
	ID         string      `json:"id"`
	PoolID     string      `json:"pool_id"`
	PoolKind   PoolKind    `json:"pool_kind"`
	Assignee   AssigneeRef `json:"assignee"`
	BedNumber  *int        `json:"bed_number,omitempty"`
	Weight     int         `json:"weight"`
	Notes      string      `json:"notes,omitempty"`
	AssignedBy string      `json:"assigned_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// AssignRequest places an assignee into a pool.
type AssignRequest struct {
	PoolID     string      `json:"-" validate:"required"`
	Assignee   AssigneeRef `json:"assignee"`
	BedNumber  *int        `json:"bed_number,omitempty" validate:"omitempty,min=1"`
	Notes      string      `json:"notes,omitempty" validate:"max=1000"`
	AssignedBy string      `json:"-"`
}

// AssignOutcome says what Assign did to the ledger.
type AssignOutcome string

const (
	OutcomeCreated    AssignOutcome = "created"
	OutcomeMoved      AssignOutcome = "moved"
	OutcomeUnchanged  AssignOutcome = "unchanged"
	OutcomeBedChanged AssignOutcome = "bed_changed"
)

// AssignResult is returned by Assign. Previous is set only for moves.
type AssignResult struct {
	Outcome    AssignOutcome `json:"outcome"`
	Assignment *Assignment   `json:"assignment"`
	Pool       *Pool         `json:"pool"`
	Previous   *Pool         `json:"previous_pool,omitempty"`
}

// UnassignRequest locates one assignment either by AssignmentID or by
// Assignee together with PoolID or PoolKind.
type UnassignRequest struct {
	AssignmentID string
	PoolID       string
	PoolKind     PoolKind
	EventID      string
	Assignee     *AssigneeRef
}

// UnassignResult is returned by Unassign.
type UnassignResult struct {
	Removed    bool        `json:"removed"`
	Assignment *Assignment `json:"assignment"`
	Pool       *Pool       `json:"pool"`
}

// ReleaseResult is returned when every assignment of one assignee is removed.
type ReleaseResult struct {
	Assignee AssigneeRef  `json:"assignee"`
	Removed  []Assignment `json:"removed"`
}

// RecountResult reports a recount of one pool.
type RecountResult struct {
	PoolID   string `json:"pool_id"`
	Previous int    `json:"previous_size"`
	Current  int    `json:"current_size"`
}

// Drifted reports whether the stored counter was wrong.
func (r RecountResult) Drifted() bool { return r.Previous != r.Current }
