package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionKind classifies an accepted status mutation. The classifier is
// pure: it inspects the old snapshot and the requested change only, so the
// mapping is testable in isolation from I/O.
type TransitionKind string

const (
	TransitionInitialBooking TransitionKind = "INITIAL_BOOKING"
	TransitionReschedule     TransitionKind = "RESCHEDULE"
	TransitionCancellation   TransitionKind = "CANCELLATION"
	TransitionStatusChange   TransitionKind = "STATUS_CHANGE"
	TransitionNoOp           TransitionKind = "NO_OP"
)

// Optional wrappers distinguish "field absent from the request" from
// "field explicitly set to null". Cancellation depends on this: booking
// fields are cleared only when the caller did not supply them.

type OptTime struct {
	Value *time.Time
	Set   bool
}

type OptString struct {
	Value *string
	Set   bool
}

type OptInt struct {
	Value *int
	Set   bool
}

type OptBool struct {
	Value *bool
	Set   bool
}

// ChangeRequest is the caller's requested mutation of a lead.
type ChangeRequest struct {
	Status        Status
	DateBooked    OptTime
	TimeBooked    OptString
	BookingSlot   OptInt
	BookingStatus OptString
	IsConfirmed   OptBool
	HasSale       OptBool
	RejectReason  OptString
}

// Classify returns the transition kind for applying req to old.
//
// Rules, in order:
//   - CANCELLATION: target status Cancelled, or target New while currently
//     Booked with no booking date supplied.
//   - INITIAL_BOOKING: target Booked with a concrete date, from a lead that
//     was New or never had a booking date.
//   - RESCHEDULE: already Booked with a date, and the supplied date differs
//     (millisecond comparison).
//   - STATUS_CHANGE: any other status movement.
//   - NO_OP: nothing observable changes.
func Classify(old *Lead, req ChangeRequest) TransitionKind {
	if req.Status == StatusCancelled {
		return TransitionCancellation
	}
	if req.Status == StatusNew && old.Status == StatusBooked && !req.DateBooked.Set {
		return TransitionCancellation
	}

	newDate := req.DateBooked.Value
	if req.Status == StatusBooked && req.DateBooked.Set && newDate != nil {
		if old.Status == StatusNew || old.DateBooked == nil {
			return TransitionInitialBooking
		}
		if old.Status == StatusBooked && old.DateBooked != nil &&
			old.DateBooked.UnixMilli() != newDate.UnixMilli() {
			return TransitionReschedule
		}
	}

	if req.Status != old.Status {
		return TransitionStatusChange
	}
	if changesAnyField(old, req) {
		return TransitionStatusChange
	}
	return TransitionNoOp
}

// changesAnyField reports whether any explicitly-supplied field differs from
// the lead's current value. Fields absent from the request never count.
func changesAnyField(old *Lead, req ChangeRequest) bool {
	if req.DateBooked.Set && !timeEqual(old.DateBooked, req.DateBooked.Value) {
		return true
	}
	if req.TimeBooked.Set && !strEqual(old.TimeBooked, req.TimeBooked.Value) {
		return true
	}
	if req.BookingSlot.Set && !intEqual(old.BookingSlot, req.BookingSlot.Value) {
		return true
	}
	if req.BookingStatus.Set && !strEqual(old.BookingStatus, req.BookingStatus.Value) {
		return true
	}
	if req.IsConfirmed.Set && !boolEqual(old.IsConfirmed, req.IsConfirmed.Value) {
		return true
	}
	if req.HasSale.Set && req.HasSale.Value != nil && old.HasSale != *req.HasSale.Value {
		return true
	}
	return false
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UnixMilli() == b.UnixMilli()
}

func strEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func boolEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Apply computes the post-transition lead. It never mutates old; callers
// persist the returned copy. Invariants enforced here:
//   - EverBooked is sticky: set on the first booking, never cleared.
//   - BookedAt and AssignedAt are first-set-wins.
//   - A reschedule resets the confirmation markers but not BookedAt.
//   - Cancellation clears booking fields only when the caller did not
//     supply them; explicit values (including explicit null) are honored.
//   - A rejected lead loses its booking date unless the request explicitly
//     preserves one.
func Apply(old *Lead, req ChangeRequest, actorID uuid.UUID, now time.Time) (Lead, TransitionKind) {
	kind := Classify(old, req)

	updated := *old
	updated.Status = req.Status
	updated.UpdatedAt = now
	updated.UpdatedBy = &actorID

	applyIfSet(&updated, req)

	switch kind {
	case TransitionInitialBooking:
		updated.EverBooked = true
		if updated.BookedAt == nil {
			bookedAt := now
			updated.BookedAt = &bookedAt
		}
		if updated.AssignedAt == nil {
			assignedAt := now
			updated.AssignedAt = &assignedAt
		}

	case TransitionReschedule:
		if !req.IsConfirmed.Set {
			updated.IsConfirmed = nil
		}
		if !req.BookingStatus.Set {
			updated.BookingStatus = nil
		}

	case TransitionCancellation:
		if !req.DateBooked.Set {
			updated.DateBooked = nil
			updated.TimeBooked = nil
			updated.BookingSlot = nil
			updated.IsConfirmed = nil
			updated.BookingStatus = nil
		}

	case TransitionStatusChange:
		if req.Status == StatusRejected && !req.DateBooked.Set {
			updated.DateBooked = nil
		}
		if req.Status == StatusAssigned && updated.AssignedAt == nil {
			assignedAt := now
			updated.AssignedAt = &assignedAt
		}
	}

	return updated, kind
}

// applyIfSet copies explicitly-supplied request fields onto the lead.
func applyIfSet(lead *Lead, req ChangeRequest) {
	if req.DateBooked.Set {
		lead.DateBooked = req.DateBooked.Value
	}
	if req.TimeBooked.Set {
		lead.TimeBooked = req.TimeBooked.Value
	}
	if req.BookingSlot.Set {
		lead.BookingSlot = req.BookingSlot.Value
	}
	if req.BookingStatus.Set {
		lead.BookingStatus = req.BookingStatus.Value
	}
	if req.IsConfirmed.Set {
		lead.IsConfirmed = req.IsConfirmed.Value
	}
	if req.HasSale.Set && req.HasSale.Value != nil {
		lead.HasSale = *req.HasSale.Value
	}
	if req.RejectReason.Set {
		lead.RejectReason = req.RejectReason.Value
	}
}
