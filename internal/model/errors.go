package model

import "errors"

// ErrInvalidArgument is returned for malformed input or an unknown enum value.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNotFound is returned when a pool, assignee or assignment does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned for cross-event references.
var ErrForbidden = errors.New("forbidden")

// ErrCapacityExceeded is returned when a pool cannot take the assignee's weight.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrConflict is returned for a taken bed, a concurrent duplicate assignment
// or an update that would contradict current occupancy.
var ErrConflict = errors.New("conflict")
