package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
)

// resolveAssignee looks the reference up through the lookup matching its kind
// and computes its weight. Participants take the event of their group.
func resolveAssignee(ctx context.Context, tx repository.Tx, ref model.AssigneeRef) (*model.Assignee, error) {
	out := &model.Assignee{Ref: ref, Weight: 1}
	switch ref.Kind {
	case model.AssigneeIndividual:
		i, err := tx.GetIndividual(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, "individual", ref.ID)
		}
		out.EventID = i.EventID
		out.Name = strings.TrimSpace(i.FirstName + " " + i.LastName)
	case model.AssigneeParticipant:
		p, err := tx.GetParticipant(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, "participant", ref.ID)
		}
		out.EventID = p.EventID
		out.Name = strings.TrimSpace(p.FirstName + " " + p.LastName)
	case model.AssigneeGroupRegistration:
		g, err := tx.GetGroupRegistration(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, "group registration", ref.ID)
		}
		out.EventID = g.EventID
		out.Name = g.GroupName
		out.Weight = max(g.TotalParticipants, 0)
	default:
		return nil, fmt.Errorf("%w: unknown assignee kind %q", model.ErrInvalidArgument, ref.Kind)
	}
	return out, nil
}

// ResolveAssignee resolves ref and checks that it belongs to eventID.
func (r *Registry) ResolveAssignee(ctx context.Context, eventID string, ref model.AssigneeRef) (*model.Assignee, error) {
	if err := r.check(ref); err != nil {
		return nil, err
	}
	var a *model.Assignee
	err := r.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if a, err = resolveAssignee(ctx, tx, ref); err != nil {
			return err
		}
		if a.EventID != eventID {
			return fmt.Errorf("%w: %s belongs to another event", model.ErrForbidden, ref)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}
