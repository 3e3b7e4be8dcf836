package model

import "fmt"

// ResetCategory selects what a bulk reset clears.
type ResetCategory string

const (
	ResetHousing     ResetCategory = "housing"
	ResetSmallGroups ResetCategory = "small_groups"
	ResetSeating     ResetCategory = "seating"
	ResetMealGroups  ResetCategory = "meal_groups"
	ResetAll         ResetCategory = "all"
)

// ParseResetCategory validates s as a reset category.
func ParseResetCategory(s string) (ResetCategory, error) {
	c := ResetCategory(s)
	switch c {
	case ResetHousing, ResetSmallGroups, ResetSeating, ResetMealGroups, ResetAll:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown reset category %q", ErrInvalidArgument, s)
}

// PoolKinds returns the pool kinds the category covers.
func (c ResetCategory) PoolKinds() []PoolKind {
	switch c {
	case ResetHousing:
		return []PoolKind{PoolRoom}
	case ResetSmallGroups:
		return []PoolKind{PoolSmallGroup}
	case ResetSeating:
		return []PoolKind{PoolSeatingSection}
	case ResetMealGroups:
		return []PoolKind{PoolMealGroup}
	case ResetAll:
		return PoolKinds
	}
	return nil
}

// ResetRequest is the payload for a bulk reset.
type ResetRequest struct {
	Category ResetCategory `json:"category" validate:"required,oneof=housing small_groups seating meal_groups all"`
}

// ResetResult counts the rows each step touched. Deleted keys look like
// "room_assignments", "rooms", "buildings", "staff"; Zeroed is keyed by pool
// kind ("room", "meal_group").
// Counts are returned even when a later step failed.
type ResetResult struct {
	EventID  string           `json:"event_id"`
	Category ResetCategory    `json:"category"`
	Deleted  map[string]int64 `json:"deleted"`
	Zeroed   map[string]int64 `json:"zeroed"`
}
