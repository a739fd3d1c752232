// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew       Status = "New"
	StatusAssigned  Status = "Assigned"
	StatusBooked    Status = "Booked"
	StatusAttended  Status = "Attended"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "No Show"
	StatusRejected  Status = "Rejected"
)

// validStatuses enumerates every status a mutation may target. Transitions
// are a fixed table, not user-configurable.
var validStatuses = map[Status]bool{
	StatusNew:       true,
	StatusAssigned:  true,
	StatusBooked:    true,
	StatusAttended:  true,
	StatusCancelled: true,
	StatusNoShow:    true,
	StatusRejected:  true,
}

// IsValidStatus reports whether s is a member of the status enum.
func IsValidStatus(s Status) bool {
	return validStatuses[s]
}

// Lead is a prospective customer tracked through the appointment-booking
// lifecycle. EverBooked is monotonic: once true it is never unset, including
// across cancellation and rejection. BookedAt and AssignedAt are
// first-set-wins timestamps.
type Lead struct {
	ID            uuid.UUID
	Name          string
	Phone         string
	Email         *string
	Postcode      *string
	Status        Status
	DateBooked    *time.Time
	TimeBooked    *string
	BookingSlot   *int
	BookingStatus *string
	IsConfirmed   *bool
	BookerID      *uuid.UUID
	EverBooked    bool
	HasSale       bool
	BookedAt      *time.Time
	AssignedAt    *time.Time
	RejectReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UpdatedBy     *uuid.UUID
}

// Snapshot returns a map form of the lead for audit entries and fan-out
// payloads. Nullable fields appear only when set.
func (l *Lead) Snapshot() map[string]any {
	snap := map[string]any{
		"id":         l.ID,
		"name":       l.Name,
		"phone":      l.Phone,
		"status":     string(l.Status),
		"everBooked": l.EverBooked,
		"hasSale":    l.HasSale,
	}
	if l.Email != nil {
		snap["email"] = *l.Email
	}
	if l.Postcode != nil {
		snap["postcode"] = *l.Postcode
	}
	if l.DateBooked != nil {
		snap["dateBooked"] = l.DateBooked.UTC().Format(time.RFC3339)
	}
	if l.TimeBooked != nil {
		snap["timeBooked"] = *l.TimeBooked
	}
	if l.BookingSlot != nil {
		snap["bookingSlot"] = *l.BookingSlot
	}
	if l.IsConfirmed != nil {
		snap["isConfirmed"] = *l.IsConfirmed
	}
	if l.BookerID != nil {
		snap["bookerId"] = *l.BookerID
	}
	if l.BookedAt != nil {
		snap["bookedAt"] = l.BookedAt.UTC().Format(time.RFC3339)
	}
	return snap
}
