package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/repository"
)

type Store interface {
	FindInscription(ctx context.Context, id string) (*models.Inscription, error)
	FindTicket(ctx context.Context, inscriptionID, ticketID string) (*models.Ticket, error)
	FindTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)
	MarkTicketCheckedIn(ctx context.Context, ticketID string, at time.Time) (bool, error)
	MarkInscriptionCheckedIn(ctx context.Context, inscriptionID string, at time.Time) (bool, error)
	AppendCheckinLog(ctx context.Context, entry *models.CheckinLog) error
}

// Resolved is a located ticket together with the inscription that owns it.
// Ticket is nil when a legacy inscription stands in for its own ticket.
type Resolved struct {
	Inscription *models.Inscription
	Ticket      *models.Ticket
	Step        StepKind
}

func (r *Resolved) Legacy() bool {
	return r.Ticket == nil
}

func (r *Resolved) ParticipantName() string {
	if r.Ticket != nil && r.Ticket.ParticipantName != "" {
		return r.Ticket.ParticipantName
	}
	return r.Inscription.MainParticipant.Name
}

func (r *Resolved) TicketType() string {
	if r.Ticket != nil && r.Ticket.TicketType != "" {
		return r.Ticket.TicketType
	}
	return r.Inscription.TicketType
}

func (r *Resolved) Contact() string {
	holder := r.Inscription.MainParticipant
	if holder.Phone != "" {
		return holder.Phone
	}
	return holder.Email
}

func (r *Resolved) CheckedIn() (bool, *time.Time) {
	if r.Ticket != nil {
		return r.Ticket.IsCheckedIn, r.Ticket.CheckedInAt
	}
	return r.Inscription.IsCheckedIn, r.Inscription.CheckedInAt
}

type Locator struct {
	store Store
	// observe is told about every executed step and whether it hit.
	observe func(step StepKind, hit bool)
}

func NewLocator(store Store, observe func(step StepKind, hit bool)) *Locator {
	if observe == nil {
		observe = func(StepKind, bool) {}
	}
	return &Locator{store: store, observe: observe}
}

// Locate runs Plan(p) against the store and returns the first hit.
func (l *Locator) Locate(ctx context.Context, p Payload) (*Resolved, error) {
	for _, step := range Plan(p) {
		resolved, err := l.try(ctx, step)
		if err != nil {
			return nil, helpers.WrapError(helpers.KindUpstreamFailure, "Could not look the ticket up.", err)
		}
		l.observe(step.Kind, resolved != nil)
		if resolved != nil {
			return resolved, nil
		}
	}
	return nil, helpers.NewError(helpers.KindNotFound, "Ticket not found for ID: "+p.ID)
}

// try returns nil, nil on a miss.
func (l *Locator) try(ctx context.Context, step Step) (*Resolved, error) {
	switch step.Kind {
	case StepNested:
		ticket, err := l.store.FindTicket(ctx, step.InscriptionID, step.ID)
		if err != nil {
			return nil, ignoreNotFound(err)
		}
		return l.withOwner(ctx, ticket, step.Kind)

	case StepLegacy:
		inscription, err := l.store.FindInscription(ctx, step.ID)
		if err != nil {
			return nil, ignoreNotFound(err)
		}
		if !inscription.Legacy() {
			return nil, nil
		}
		return &Resolved{Inscription: inscription, Step: step.Kind}, nil

	case StepScan:
		ticket, err := l.store.FindTicketByID(ctx, step.ID)
		if err != nil {
			return nil, ignoreNotFound(err)
		}
		return l.withOwner(ctx, ticket, step.Kind)
	}
	return nil, nil
}

func (l *Locator) withOwner(ctx context.Context, ticket *models.Ticket, kind StepKind) (*Resolved, error) {
	inscription, err := l.store.FindInscription(ctx, ticket.InscriptionID)
	if err != nil {
		// A ticket whose parent is gone cannot be admitted.
		return nil, ignoreNotFound(err)
	}
	return &Resolved{Inscription: inscription, Ticket: ticket, Step: kind}, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
