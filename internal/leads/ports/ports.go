// Package ports declares the collaborator interfaces the leads module
// consumes. Implementations live in their own modules and are wired at the
// composition root.
package ports

import (
	"context"
	"time"

	"leadbook/internal/leads/domain"

	"github.com/google/uuid"
)

// SlotChecker validates a requested date/time/slot against the exclusion
// list before a booking is accepted. The returned reason belongs to the most
// specific matching block.
type SlotChecker interface {
	IsBlocked(ctx context.Context, date time.Time, timeSlot *string, slotNumber *int) (bool, string, error)
}

// Authorizer decides whether an actor may mutate a lead. Authorization
// policy itself is owned elsewhere; the orchestrator only consumes the
// verdict.
type Authorizer interface {
	CanMutate(ctx context.Context, actorID uuid.UUID, roles []string, lead *domain.Lead) bool
}

// ReminderScheduler queues a booking reminder for a future run time.
type ReminderScheduler interface {
	ScheduleBookingReminder(ctx context.Context, leadID uuid.UUID, runAt time.Time) error
}

// ConfirmationJob carries everything the messaging module needs to send a
// booking confirmation for one accepted booking.
type ConfirmationJob struct {
	LeadID     uuid.UUID
	LeadName   string
	Phone      string
	Email      *string
	DateBooked time.Time
	TimeBooked *string
	Kind       string
	SendEmail  bool
	SendSMS    bool
	TemplateID *uuid.UUID
}

// ConfirmationDispatcher accepts a dispatch job and runs it detached from
// the calling request. Implementations never return an error to the caller;
// outcomes surface as events.
type ConfirmationDispatcher interface {
	DispatchAsync(job ConfirmationJob)
}
