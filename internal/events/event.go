// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadbook/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published when a new lead is accepted on intake.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	LeadName   string     `json:"leadName"`
	Status     string     `json:"status"`
	BookerID   *uuid.UUID `json:"bookerId,omitempty"`
	DateBooked *time.Time `json:"dateBooked,omitempty"`
	UpdatedBy  uuid.UUID  `json:"updatedBy"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadUpdated is published on every accepted lead mutation. It carries the
// full updated entity as a map so real-time subscribers can replace their
// local copy without a read round-trip.
type LeadUpdated struct {
	BaseEvent
	LeadID    uuid.UUID      `json:"leadId"`
	Action    string         `json:"action"`
	Lead      map[string]any `json:"lead"`
	UpdatedBy uuid.UUID      `json:"updatedBy"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// LeadDeleted is published when a lead is removed by an administrative purge.
type LeadDeleted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	UpdatedBy uuid.UUID `json:"updatedBy"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// StatsUpdateNeeded is published when aggregate counters for a booker may be
// stale. It carries identifiers only; subscribers decide whether to refresh.
type StatsUpdateNeeded struct {
	BaseEvent
	LeadID   uuid.UUID  `json:"leadId"`
	BookerID *uuid.UUID `json:"bookerId,omitempty"`
}

func (e StatsUpdateNeeded) EventName() string { return "leads.stats.update_needed" }

// =============================================================================
// Diary / Calendar Events
// =============================================================================

// DiaryUpdated is published when a mutation affects a scheduled date, for
// calendar-view subscribers.
type DiaryUpdated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	LeadName   string     `json:"leadName"`
	OldStatus  string     `json:"oldStatus"`
	NewStatus  string     `json:"newStatus"`
	DateBooked *time.Time `json:"dateBooked,omitempty"`
	UpdatedBy  uuid.UUID  `json:"updatedBy"`
}

func (e DiaryUpdated) EventName() string { return "diary.updated" }

// BookingActivity is published alongside DiaryUpdated with the transition
// classification, for activity-feed subscribers.
type BookingActivity struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	LeadName       string     `json:"leadName"`
	TransitionKind string     `json:"transitionKind"`
	OldStatus      string     `json:"oldStatus"`
	NewStatus      string     `json:"newStatus"`
	DateBooked     *time.Time `json:"dateBooked,omitempty"`
	UpdatedBy      uuid.UUID  `json:"updatedBy"`
}

func (e BookingActivity) EventName() string { return "diary.booking_activity" }

// =============================================================================
// Confirmation Dispatch Events
// =============================================================================

// BookingConfirmationResult is published exactly once per dispatch task,
// with status "success" or "failed". A timeout counts as a failure.
type BookingConfirmationResult struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Status    string    `json:"status"`
	EmailSent bool      `json:"emailSent"`
	SMSSent   bool      `json:"smsSent"`
	Message   string    `json:"message,omitempty"`
}

func (e BookingConfirmationResult) EventName() string { return "messaging.booking_confirmation" }

// DispatchStatusSuccess and DispatchStatusFailed are the two permitted
// values of BookingConfirmationResult.Status.
const (
	DispatchStatusSuccess = "success"
	DispatchStatusFailed  = "failed"
)

// =============================================================================
// Reminder Events
// =============================================================================

// BookingReminderDue is published by the scheduler worker when a booked
// appointment is approaching and the lead should be reminded.
type BookingReminderDue struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	LeadName   string    `json:"leadName"`
	Phone      string    `json:"phone"`
	DateBooked time.Time `json:"dateBooked"`
}

func (e BookingReminderDue) EventName() string { return "bookings.reminder.due" }
