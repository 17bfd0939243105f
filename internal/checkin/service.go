package checkin

import (
	"context"
	"log/slog"
	"time"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/monitoring"
)

const displayTimeLayout = "02/01/2006 15:04:05"

type Result struct {
	ParticipantName string
	TicketType      string
	CheckedInAt     time.Time
}

type Service struct {
	store   Store
	locator *Locator
	logger  *slog.Logger
	now     func() time.Time
	// loc is used for the human-readable time in "already used" messages.
	loc *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDisplayLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		locator: NewLocator(store, trackStep),
		logger:  logger,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate admits the ticket behind raw. The returned error is always an
// *helpers.AppError; its kind is what the scanner shows.
func (s *Service) Validate(ctx context.Context, raw string) (*Result, error) {
	result, err := s.validate(ctx, raw)
	monitoring.TrackCheckin(resultLabel(err))
	return result, err
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(helpers.KindOf(err))
}

func (s *Service) validate(ctx context.Context, raw string) (*Result, error) {
	payload, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	resolved, err := s.locator.Locate(ctx, payload)
	if err != nil {
		return nil, err
	}

	if err := gate(resolved); err != nil {
		return nil, err
	}

	return s.checkIn(ctx, resolved)
}

// gate refuses tickets whose inscription is not paid, on both the legacy and
// the nested path.
func gate(resolved *Resolved) error {
	if resolved.Inscription.IsPaid() {
		return nil
	}
	return &helpers.AppError{
		Kind:            helpers.KindNotPaid,
		Message:         "This ticket has not been paid.",
		ParticipantName: resolved.ParticipantName(),
	}
}

func (s *Service) checkIn(ctx context.Context, resolved *Resolved) (*Result, error) {
	if used, at := resolved.CheckedIn(); used {
		return nil, s.alreadyUsed(resolved, at)
	}

	at := s.now().UTC().Truncate(time.Microsecond)
	var (
		won bool
		err error
	)
	if resolved.Legacy() {
		won, err = s.store.MarkInscriptionCheckedIn(ctx, resolved.Inscription.ID, at)
	} else {
		won, err = s.store.MarkTicketCheckedIn(ctx, resolved.Ticket.ID, at)
	}
	if err != nil {
		return nil, helpers.WrapError(helpers.KindUpstreamFailure, "Could not record the check-in.", err)
	}
	if !won {
		return nil, s.alreadyUsed(resolved, s.reloadCheckedInAt(ctx, resolved))
	}

	s.audit(ctx, resolved, at)

	return &Result{
		ParticipantName: resolved.ParticipantName(),
		TicketType:      resolved.TicketType(),
		CheckedInAt:     at,
	}, nil
}

// reloadCheckedInAt fetches the timestamp written by the scan that won a
// concurrent check-in.
func (s *Service) reloadCheckedInAt(ctx context.Context, resolved *Resolved) *time.Time {
	if resolved.Legacy() {
		inscription, err := s.store.FindInscription(ctx, resolved.Inscription.ID)
		if err != nil {
			s.logger.Warn("reload checked-in inscription", "inscription_id", resolved.Inscription.ID, "error", err)
			return nil
		}
		return inscription.CheckedInAt
	}
	ticket, err := s.store.FindTicket(ctx, resolved.Ticket.InscriptionID, resolved.Ticket.ID)
	if err != nil {
		s.logger.Warn("reload checked-in ticket", "ticket_id", resolved.Ticket.ID, "error", err)
		return nil
	}
	return ticket.CheckedInAt
}

func (s *Service) alreadyUsed(resolved *Resolved, at *time.Time) error {
	message := "TICKET ALREADY USED."
	if at != nil {
		message = "TICKET ALREADY USED at " + at.In(s.loc).Format(displayTimeLayout) + "."
	}
	return &helpers.AppError{
		Kind:            helpers.KindAlreadyUsed,
		Message:         message,
		ParticipantName: resolved.ParticipantName(),
		CheckedInAt:     at,
	}
}

// audit appends the denormalized log entry. Its failure never fails the
// check-in that already happened.
func (s *Service) audit(ctx context.Context, resolved *Resolved, at time.Time) {
	entry := &models.CheckinLog{
		ParticipantName: resolved.ParticipantName(),
		TicketType:      resolved.TicketType(),
		Contact:         resolved.Contact(),
		CheckedInAt:     at,
	}
	if err := s.store.AppendCheckinLog(ctx, entry); err != nil {
		monitoring.TrackAuditFailure()
		s.logger.Error("append check-in log",
			"inscription_id", resolved.Inscription.ID,
			"participant", entry.ParticipantName,
			"error", err,
		)
	}
}

func trackStep(step StepKind, hit bool) {
	monitoring.TrackLocateStep(step.String(), hit)
}
