// Package service orchestrates the lead booking lifecycle: guarding,
// classifying and persisting mutations, appending audit history, and fanning
// out events and confirmation dispatches.
package service

import (
	"context"
	"errors"
	"time"

	"leadbook/internal/events"
	"leadbook/internal/leads/dedup"
	"leadbook/internal/leads/domain"
	"leadbook/internal/leads/ports"
	"leadbook/internal/leads/repository"
	"leadbook/platform/apperr"
	"leadbook/platform/logger"
	"leadbook/platform/phone"

	"github.com/google/uuid"
)

// auditTimeout bounds a detached history append. The mutation has already
// committed by the time the append runs.
const auditTimeout = 5 * time.Second

// Audit actions recorded in booking history.
const (
	ActionLeadCreated        = "LEAD_CREATED"
	ActionBookingCreated     = "BOOKING_CREATED"
	ActionBookingRescheduled = "BOOKING_RESCHEDULED"
	ActionBookingCancelled   = "BOOKING_CANCELLED"
	ActionStatusChanged      = "STATUS_CHANGED"
	ActionLeadRejected       = "LEAD_REJECTED"
	ActionConfirmationSent   = "BOOKING_CONFIRMATION_SENT"
)

// Store is the lead persistence the service depends on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Lead, error)
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryStore is the booking-history persistence the service depends on.
type HistoryStore interface {
	Append(ctx context.Context, params repository.AppendHistoryParams) error
	ListByLead(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]repository.HistoryEntry, error)
	MarkRead(ctx context.Context, leadID, entryID uuid.UUID) error
}

// Actor identifies who is performing a mutation.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Roles []string
}

// Channels selects which confirmation channels a booking mutation requested.
type Channels struct {
	SendEmail  bool
	SendSMS    bool
	TemplateID *uuid.UUID
}

// CreateLeadParams is the service-level input for lead intake.
type CreateLeadParams struct {
	Name        string
	Phone       string
	Email       *string
	Postcode    *string
	Status      domain.Status
	DateBooked  *time.Time
	TimeBooked  *string
	BookingSlot *int
	BookerID    *uuid.UUID
	Channels    Channels
}

// CreateResult reports the outcome of lead intake. Suppressed means an
// identical submission landed inside the duplicate window and nothing was
// written; the caller should treat it as success.
type CreateResult struct {
	Lead         *domain.Lead
	Suppressed   bool
	ExistingLead bool
}

// UpdateLeadParams is the service-level input for a lifecycle mutation.
type UpdateLeadParams struct {
	Change   domain.ChangeRequest
	Channels Channels
}

// Service coordinates lead lifecycle mutations.
type Service struct {
	store         Store
	history       HistoryStore
	guard         *dedup.Guard
	slots         ports.SlotChecker
	authz         ports.Authorizer
	bus           events.Bus
	log           *logger.Logger
	defaultRegion string

	dispatcher       ports.ConfirmationDispatcher
	reminders        ports.ReminderScheduler
	reminderLeadTime time.Duration

	now func() time.Time
}

// New creates the lead lifecycle service. The confirmation dispatcher and
// reminder scheduler are wired later via setters because they depend on this
// service for audit writes.
func New(
	store Store,
	history HistoryStore,
	guard *dedup.Guard,
	slots ports.SlotChecker,
	authz ports.Authorizer,
	bus events.Bus,
	log *logger.Logger,
	defaultRegion string,
) *Service {
	return &Service{
		store:         store,
		history:       history,
		guard:         guard,
		slots:         slots,
		authz:         authz,
		bus:           bus,
		log:           log,
		defaultRegion: defaultRegion,
		now:           time.Now,
	}
}

// SetDispatcher wires the confirmation dispatcher after construction.
func (s *Service) SetDispatcher(d ports.ConfirmationDispatcher) {
	s.dispatcher = d
}

// SetReminderScheduler wires the booking reminder scheduler after
// construction. leadTime is how far before the booked date the reminder runs.
func (s *Service) SetReminderScheduler(r ports.ReminderScheduler, leadTime time.Duration) {
	s.reminders = r
	s.reminderLeadTime = leadTime
}

// CreateLead takes in a new lead. Guard ordering: duplicate suppression,
// then blocked-slot validation when the intake carries a booking, then
// persist. A suppressed duplicate returns success without writing.
func (s *Service) CreateLead(ctx context.Context, actor Actor, params CreateLeadParams) (*CreateResult, error) {
	if params.Name == "" || params.Phone == "" {
		return nil, apperr.Validation("name and phone are required").WithOp("leads.CreateLead")
	}

	status := params.Status
	if status == "" {
		status = domain.StatusNew
	}
	if !domain.IsValidStatus(status) {
		return nil, apperr.Validation("invalid status: " + string(status)).WithOp("leads.CreateLead")
	}

	normalizedPhone := phone.NormalizeE164Region(params.Phone, s.defaultRegion)

	key := dedup.Key(actor.ID, params.Name, normalizedPhone, params.DateBooked)
	if !s.guard.Check(key) {
		s.log.Info("duplicate lead submission suppressed",
			"actor_id", actor.ID.String(), "phone", normalizedPhone)
		return &CreateResult{Suppressed: true}, nil
	}

	existing, err := s.store.FindByPhone(ctx, normalizedPhone)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "lead lookup failed", err).WithOp("leads.CreateLead")
	}

	booking := status == domain.StatusBooked && params.DateBooked != nil
	if booking {
		if err := s.checkSlot(ctx, *params.DateBooked, params.TimeBooked, params.BookingSlot); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	actorID := actor.ID
	lead := &domain.Lead{
		ID:          uuid.New(),
		Name:        params.Name,
		Phone:       normalizedPhone,
		Email:       params.Email,
		Postcode:    params.Postcode,
		Status:      status,
		DateBooked:  params.DateBooked,
		TimeBooked:  params.TimeBooked,
		BookingSlot: params.BookingSlot,
		BookerID:    params.BookerID,
		CreatedAt:   now,
		UpdatedAt:   now,
		UpdatedBy:   &actorID,
	}
	if booking {
		lead.EverBooked = true
		bookedAt := now
		lead.BookedAt = &bookedAt
		assignedAt := now
		lead.AssignedAt = &assignedAt
	}
	if status == domain.StatusAssigned {
		assignedAt := now
		lead.AssignedAt = &assignedAt
	}

	if err := s.store.Create(ctx, lead); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create lead", err).WithOp("leads.CreateLead")
	}

	details := map[string]any{"isExistingLead": existing != nil}
	s.appendAudit(actor, lead, ActionLeadCreated, details)

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		LeadName:   lead.Name,
		Status:     string(lead.Status),
		BookerID:   lead.BookerID,
		DateBooked: lead.DateBooked,
		UpdatedBy:  actor.ID,
	})
	s.bus.Publish(ctx, events.StatsUpdateNeeded{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		BookerID:  lead.BookerID,
	})

	if booking {
		s.publishDiary(ctx, actor, lead, string(domain.StatusNew), domain.TransitionInitialBooking)
		s.dispatchConfirmation(lead, domain.TransitionInitialBooking, params.Channels)
		s.scheduleReminder(ctx, lead)
	}

	return &CreateResult{Lead: lead, ExistingLead: existing != nil}, nil
}

// UpdateLeadStatus applies a lifecycle mutation. Guard ordering:
// authorization, status validation, blocked-slot validation, then classify
// and persist. Audit and fan-out never block or fail the mutation.
func (s *Service) UpdateLeadStatus(ctx context.Context, actor Actor, leadID uuid.UUID, params UpdateLeadParams) (*domain.Lead, error) {
	old, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return nil, s.notFoundOrInternal(err, "leads.UpdateLeadStatus")
	}

	if !s.authz.CanMutate(ctx, actor.ID, actor.Roles, old) {
		return nil, apperr.Forbidden("you are not allowed to modify this lead").WithOp("leads.UpdateLeadStatus")
	}

	req := params.Change
	if !domain.IsValidStatus(req.Status) {
		return nil, apperr.Validation("invalid status: " + string(req.Status)).WithOp("leads.UpdateLeadStatus")
	}

	if req.Status == domain.StatusBooked && req.DateBooked.Set && req.DateBooked.Value != nil {
		var timeSlot *string
		if req.TimeBooked.Set {
			timeSlot = req.TimeBooked.Value
		}
		var slotNumber *int
		if req.BookingSlot.Set {
			slotNumber = req.BookingSlot.Value
		}
		if err := s.checkSlot(ctx, *req.DateBooked.Value, timeSlot, slotNumber); err != nil {
			return nil, err
		}
	}

	updated, kind := domain.Apply(old, req, actor.ID, s.now().UTC())

	if err := s.store.Update(ctx, &updated); err != nil {
		return nil, s.notFoundOrInternal(err, "leads.UpdateLeadStatus")
	}

	action := actionForKind(kind, req.Status)
	if kind != domain.TransitionNoOp {
		details := map[string]any{
			"transitionKind": string(kind),
			"oldStatus":      string(old.Status),
			"newStatus":      string(updated.Status),
		}
		// The snapshot reflects the post-transition lead, so a transition
		// that clears the booking must carry the original values itself.
		if old.DateBooked != nil && updated.DateBooked == nil {
			details["previousDateBooked"] = old.DateBooked.UTC()
			if old.TimeBooked != nil {
				details["previousTimeBooked"] = *old.TimeBooked
			}
			if old.BookingSlot != nil {
				details["previousBookingSlot"] = *old.BookingSlot
			}
		}
		if req.RejectReason.Set && req.RejectReason.Value != nil {
			details["rejectReason"] = *req.RejectReason.Value
		}
		s.appendAudit(actor, &updated, action, details)
	}

	s.bus.Publish(ctx, events.LeadUpdated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		Action:    action,
		Lead:      updated.Snapshot(),
		UpdatedBy: actor.ID,
	})

	if kind != domain.TransitionNoOp {
		s.bus.Publish(ctx, events.StatsUpdateNeeded{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    updated.ID,
			BookerID:  updated.BookerID,
		})
		if old.DateBooked != nil || updated.DateBooked != nil {
			s.publishDiary(ctx, actor, &updated, string(old.Status), kind)
		}
	}

	if kind == domain.TransitionInitialBooking || kind == domain.TransitionReschedule {
		s.dispatchConfirmation(&updated, kind, params.Channels)
		s.scheduleReminder(ctx, &updated)
	}

	return &updated, nil
}

// RejectLead marks a lead rejected with a mandatory reason. It is a
// specialization of UpdateLeadStatus.
func (s *Service) RejectLead(ctx context.Context, actor Actor, leadID uuid.UUID, reason string) (*domain.Lead, error) {
	if reason == "" {
		return nil, apperr.Validation("a rejection reason is required").WithOp("leads.RejectLead")
	}
	return s.UpdateLeadStatus(ctx, actor, leadID, UpdateLeadParams{
		Change: domain.ChangeRequest{
			Status:       domain.StatusRejected,
			RejectReason: domain.OptString{Value: &reason, Set: true},
		},
	})
}

// GetLead returns a lead by id.
func (s *Service) GetLead(ctx context.Context, leadID uuid.UUID) (*domain.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return nil, s.notFoundOrInternal(err, "leads.GetLead")
	}
	return lead, nil
}

// GetHistory returns the lead's booking history, newest first. It verifies
// the lead exists so callers can distinguish "no history" from "no lead".
func (s *Service) GetHistory(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]repository.HistoryEntry, error) {
	if _, err := s.store.GetByID(ctx, leadID); err != nil {
		return nil, s.notFoundOrInternal(err, "leads.GetHistory")
	}
	entries, err := s.history.ListByLead(ctx, leadID, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read history", err).WithOp("leads.GetHistory")
	}
	return entries, nil
}

// MarkHistoryRead flags a history entry as read.
func (s *Service) MarkHistoryRead(ctx context.Context, leadID, entryID uuid.UUID) error {
	if err := s.history.MarkRead(ctx, leadID, entryID); err != nil {
		return s.notFoundOrInternal(err, "leads.MarkHistoryRead")
	}
	return nil
}

// PurgeLead permanently removes a lead. Role enforcement happens at the
// transport layer; this is the only path that deletes lead rows.
func (s *Service) PurgeLead(ctx context.Context, actor Actor, leadID uuid.UUID) error {
	if err := s.store.Delete(ctx, leadID); err != nil {
		return s.notFoundOrInternal(err, "leads.PurgeLead")
	}
	s.bus.Publish(ctx, events.LeadDeleted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		UpdatedBy: actor.ID,
	})
	s.bus.Publish(ctx, events.StatsUpdateNeeded{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
	})
	return nil
}

// RecordConfirmationSent appends the audit entry for a completed
// confirmation dispatch. Called by the messaging module after a successful
// send; failures are logged only.
func (s *Service) RecordConfirmationSent(ctx context.Context, leadID uuid.UUID, emailSent, smsSent bool) {
	err := s.history.Append(ctx, repository.AppendHistoryParams{
		LeadID: leadID,
		Action: ActionConfirmationSent,
		Details: map[string]any{
			"emailSent": emailSent,
			"smsSent":   smsSent,
		},
	})
	if err != nil {
		s.log.AuditAppendFailed(leadID.String(), ActionConfirmationSent, err)
	}
}

func (s *Service) checkSlot(ctx context.Context, date time.Time, timeSlot *string, slotNumber *int) error {
	blocked, reason, err := s.slots.IsBlocked(ctx, date, timeSlot, slotNumber)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "blocked slot check failed", err)
	}
	if blocked {
		if reason == "" {
			reason = "the requested slot is not available"
		}
		return apperr.Conflict(reason)
	}
	return nil
}

// appendAudit records a history entry detached from the request. The
// mutation has already committed; append failures are logged, never
// surfaced.
func (s *Service) appendAudit(actor Actor, lead *domain.Lead, action string, details map[string]any) {
	params := repository.AppendHistoryParams{
		LeadID:          lead.ID,
		Action:          action,
		PerformedBy:     actor.ID,
		PerformedByName: actor.Name,
		Details:         details,
		LeadSnapshot:    lead.Snapshot(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := s.history.Append(ctx, params); err != nil {
			s.log.AuditAppendFailed(lead.ID.String(), action, err)
		}
	}()
}

func (s *Service) publishDiary(ctx context.Context, actor Actor, lead *domain.Lead, oldStatus string, kind domain.TransitionKind) {
	s.bus.Publish(ctx, events.DiaryUpdated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		LeadName:   lead.Name,
		OldStatus:  oldStatus,
		NewStatus:  string(lead.Status),
		DateBooked: lead.DateBooked,
		UpdatedBy:  actor.ID,
	})
	s.bus.Publish(ctx, events.BookingActivity{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		LeadName:       lead.Name,
		TransitionKind: string(kind),
		OldStatus:      oldStatus,
		NewStatus:      string(lead.Status),
		DateBooked:     lead.DateBooked,
		UpdatedBy:      actor.ID,
	})
}

func (s *Service) dispatchConfirmation(lead *domain.Lead, kind domain.TransitionKind, channels Channels) {
	if s.dispatcher == nil || lead.DateBooked == nil {
		return
	}
	if !channels.SendEmail && !channels.SendSMS {
		return
	}
	s.dispatcher.DispatchAsync(ports.ConfirmationJob{
		LeadID:     lead.ID,
		LeadName:   lead.Name,
		Phone:      lead.Phone,
		Email:      lead.Email,
		DateBooked: *lead.DateBooked,
		TimeBooked: lead.TimeBooked,
		Kind:       string(kind),
		SendEmail:  channels.SendEmail,
		SendSMS:    channels.SendSMS,
		TemplateID: channels.TemplateID,
	})
}

func (s *Service) scheduleReminder(ctx context.Context, lead *domain.Lead) {
	if s.reminders == nil || lead.DateBooked == nil {
		return
	}
	runAt := lead.DateBooked.Add(-s.reminderLeadTime)
	if !runAt.After(s.now()) {
		return
	}
	if err := s.reminders.ScheduleBookingReminder(ctx, lead.ID, runAt); err != nil {
		s.log.Warn("failed to schedule booking reminder",
			"lead_id", lead.ID.String(), "error", err)
	}
}

func (s *Service) notFoundOrInternal(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found").WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "storage error", err).WithOp(op)
}

func actionForKind(kind domain.TransitionKind, target domain.Status) string {
	switch kind {
	case domain.TransitionInitialBooking:
		return ActionBookingCreated
	case domain.TransitionReschedule:
		return ActionBookingRescheduled
	case domain.TransitionCancellation:
		return ActionBookingCancelled
	default:
		if target == domain.StatusRejected {
			return ActionLeadRejected
		}
		return ActionStatusChanged
	}
}
