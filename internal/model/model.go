// Package model defines the core domain types for the Poros assignment registry.
package model

import "time"

// Event scopes every pool, building and registrant.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Building groups rooms. TotalRooms and TotalBeds are derived from its rooms.
type Building struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	TotalRooms int       `json:"total_rooms"`
	TotalBeds  int       `json:"total_beds"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Individual is a person registered on their own.
type Individual struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GroupRegistration is a registered group (e.g. a youth group).
// TotalParticipants is maintained by registration intake and only read here.
type GroupRegistration struct {
	ID                string `json:"id"`
	EventID           string `json:"event_id"`
	GroupName         string `json:"group_name"`
	TotalParticipants int    `json:"total_participants"`
}

// Participant is one member of a group registration. EventID is the parent
// group's event.
type Participant struct {
	ID                  string `json:"id"`
	GroupRegistrationID string `json:"group_registration_id"`
	EventID             string `json:"event_id"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateBuildingRequest is the payload for creating a building.
type CreateBuildingRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
