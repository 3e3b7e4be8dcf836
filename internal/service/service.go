// Package service implements the assignment registry: pool catalog, assignee
// resolution, the assignment ledger, occupancy maintenance and bulk reset.
// Every operation runs as one repository unit of work, so a ledger write and
// the counter updates it implies are committed together or not at all.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
)

// DriftQueue collects pools whose counters need a recount.
type DriftQueue interface {
	Report(ctx context.Context, poolID string) error
	Pending(ctx context.Context) ([]string, error)
	Ack(ctx context.Context, poolID string) error
}

// Registry orchestrates every registry operation.
type Registry struct {
	store    repository.Store
	drift    DriftQueue
	log      *zap.Logger
	validate *validator.Validate

	now   func() time.Time
	newID func() string
}

// NewRegistry constructs a Registry with its dependencies.
func NewRegistry(store repository.Store, drift DriftQueue, log *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		drift:    drift,
		log:      log,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// check runs struct validation and reports failures as ErrInvalidArgument.
func (r *Registry) check(v any) error {
	if err := r.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: invalid %s", model.ErrInvalidArgument, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	return nil
}

// notFound decorates a lookup error with what was being looked up.
func notFound(err error, what, id string) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, what, id)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

// CreateEvent validates the request and stores a new event.
func (r *Registry) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := r.check(req); err != nil {
		return nil, err
	}
	event := &model.Event{
		ID:          r.newID(),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   r.now(),
	}
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns all events, newest first.
func (r *Registry) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		events, err = tx.ListEvents(ctx)
		return err
	})
	return events, err
}

// GetEvent returns a single event by ID.
func (r *Registry) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: event id is required", model.ErrInvalidArgument)
	}
	var event *model.Event
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		event, err = tx.GetEvent(ctx, id)
		if err != nil {
			return notFound(err, "event", id)
		}
		return nil
	})
	return event, err
}

// requireEvent fails with ErrNotFound when the event does not exist.
func requireEvent(ctx context.Context, tx repository.Tx, eventID string) error {
	if _, err := tx.GetEvent(ctx, eventID); err != nil {
		return notFound(err, "event", eventID)
	}
	return nil
}
