package model

import (
	"fmt"
	"time"
)

// PoolKind names one family of assignable pools. An assignee holds at most
// one assignment per kind.
type PoolKind string

const (
	PoolRoom           PoolKind = "room"
	PoolMealGroup      PoolKind = "meal_group"
	PoolSeatingSection PoolKind = "seating_section"
	PoolSmallGroup     PoolKind = "small_group"
)

// PoolKinds lists every kind in a stable order.
var PoolKinds = []PoolKind{PoolRoom, PoolMealGroup, PoolSeatingSection, PoolSmallGroup}

// ParsePoolKind validates s as a pool kind.
func ParsePoolKind(s string) (PoolKind, error) {
	k := PoolKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown pool kind %q", ErrInvalidArgument, s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k PoolKind) Valid() bool {
	switch k {
	case PoolRoom, PoolMealGroup, PoolSeatingSection, PoolSmallGroup:
		return true
	}
	return false
}

// Accepts reports whether assignees of kind a may be placed into pools of
// kind k. Rooms hold people; the other pools hold people or whole groups.
func (k PoolKind) Accepts(a AssigneeKind) bool {
	switch k {
	case PoolRoom:
		return a == AssigneeIndividual || a == AssigneeParticipant
	case PoolMealGroup, PoolSeatingSection, PoolSmallGroup:
		return a == AssigneeIndividual || a == AssigneeGroupRegistration
	}
	return false
}

// RoomDetails is the room-specific part of a pool.
type RoomDetails struct {
	RoomNumber  string `json:"room_number,omitempty"`
	Floor       string `json:"floor,omitempty"`
	Gender      string `json:"gender,omitempty" validate:"omitempty,oneof=male female mixed"`
	HousingType string `json:"housing_type,omitempty"`
}

// MealGroupDetails is the meal-group-specific part of a pool.
type MealGroupDetails struct {
	Color         string `json:"color,omitempty"`
	BreakfastTime string `json:"breakfast_time,omitempty"`
	LunchTime     string `json:"lunch_time,omitempty"`
	DinnerTime    string `json:"dinner_time,omitempty"`
}

// SeatingDetails is the seating-section-specific part of a pool.
type SeatingDetails struct {
	Color   string `json:"color,omitempty"`
	Visible bool   `json:"visible"`
}

// SmallGroupDetails is the small-group-specific part of a pool.
type SmallGroupDetails struct {
	LeaderIDs       []string `json:"leader_ids,omitempty"`
	MeetingLocation string   `json:"meeting_location,omitempty"`
	MeetingTime     string   `json:"meeting_time,omitempty"`
}

// PoolDetails carries at most one section, the one matching the pool kind.
type PoolDetails struct {
	Room       *RoomDetails       `json:"room,omitempty"`
	MealGroup  *MealGroupDetails  `json:"meal_group,omitempty"`
	Seating    *SeatingDetails    `json:"seating,omitempty"`
	SmallGroup *SmallGroupDetails `json:"small_group,omitempty"`
}

// Check returns ErrInvalidArgument when a section other than kind's is set.
func (d PoolDetails) Check(kind PoolKind) error {
	set := map[PoolKind]bool{
		PoolRoom:           d.Room != nil,
		PoolMealGroup:      d.MealGroup != nil,
		PoolSeatingSection: d.Seating != nil,
		PoolSmallGroup:     d.SmallGroup != nil,
	}
	for k, ok := range set {
		if ok && k != kind {
			return fmt.Errorf("%w: %s details given for a %s pool", ErrInvalidArgument, k, kind)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d PoolDetails) Clone() PoolDetails {
	out := PoolDetails{}
	if d.Room != nil {
		r := *d.Room
		out.Room = &r
	}
	if d.MealGroup != nil {
		m := *d.MealGroup
		out.MealGroup = &m
	}
	if d.Seating != nil {
		s := *d.Seating
		out.Seating = &s
	}
	if d.SmallGroup != nil {
		g := *d.SmallGroup
		g.LeaderIDs = append([]string(nil), d.SmallGroup.LeaderIDs...)
		out.SmallGroup = &g
	}
	return out
}

// Pool is a capacity-bounded destination for assignments.
type Pool struct {
	ID          string      `json:"id"`
	EventID     string      `json:"event_id"`
	Kind        PoolKind    `json:"kind"`
	Name        string      `json:"name"`
	Capacity    int         `json:"capacity"`
	CurrentSize int         `json:"current_size"`
	BuildingID  string      `json:"building_id,omitempty"`
	Details     PoolDetails `json:"details"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Remaining returns the unoccupied capacity, never negative.
func (p *Pool) Remaining() int {
	if r := p.Capacity - p.CurrentSize; r > 0 {
		return r
	}
	return 0
}

// IsFull returns true when no capacity remains.
func (p *Pool) IsFull() bool {
	return p.CurrentSize >= p.Capacity
}

// Fits reports whether an assignee of the given weight can still be placed.
func (p *Pool) Fits(weight int) bool {
	return p.Capacity-p.CurrentSize >= weight
}

// CreatePoolRequest is the payload for creating a pool.
type CreatePoolRequest struct {
	Kind       PoolKind    `json:"kind" validate:"required,oneof=room meal_group seating_section small_group"`
	Name       string      `json:"name" validate:"required,max=200"`
	Capacity   int         `json:"capacity" validate:"min=0,max=100000"`
	BuildingID string      `json:"building_id,omitempty" validate:"required_if=Kind room"`
	Details    PoolDetails `json:"details"`
}

// UpdatePoolRequest is a partial update; nil fields are left unchanged.
type UpdatePoolRequest struct {
	Name     *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Capacity *int         `json:"capacity,omitempty" validate:"omitempty,min=0,max=100000"`
	Details  *PoolDetails `json:"details,omitempty"`
}

// DeletePoolResult reports what a pool deletion removed.
type DeletePoolResult struct {
	PoolID             string `json:"pool_id"`
	AssignmentsDeleted int64  `json:"assignments_deleted"`
}

// DeleteBuildingResult reports what a building deletion removed.
type DeleteBuildingResult struct {
	BuildingID         string `json:"building_id"`
	RoomsDeleted       int64  `json:"rooms_deleted"`
	AssignmentsDeleted int64  `json:"assignments_deleted"`
}
