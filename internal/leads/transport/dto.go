// Package transport defines the HTTP request/response shapes for the leads
// module and their mapping to domain types.
package transport

import (
	"time"

	"leadbook/internal/leads/domain"
	"leadbook/internal/leads/service"

	"github.com/google/uuid"
)

// CreateLeadRequest is the intake payload. Status and booking fields are
// optional; supplying Booked plus a date makes the intake an immediate
// booking.
type CreateLeadRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=100"`
	Phone       string     `json:"phone" validate:"required,min=7,max=20"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email"`
	Postcode    *string    `json:"postcode,omitempty" validate:"omitempty,max=12"`
	Status      string     `json:"status,omitempty"`
	DateBooked  *time.Time `json:"dateBooked,omitempty"`
	TimeBooked  *string    `json:"timeBooked,omitempty" validate:"omitempty,max=20"`
	BookingSlot *int       `json:"bookingSlot,omitempty" validate:"omitempty,min=1,max=12"`
	BookerID    *uuid.UUID `json:"bookerId,omitempty"`
	SendEmail   bool       `json:"sendEmail"`
	SendSMS     bool       `json:"sendSms"`
	TemplateID  *uuid.UUID `json:"templateId,omitempty"`
}

// ToParams maps the request to service-level intake parameters.
func (r CreateLeadRequest) ToParams() service.CreateLeadParams {
	return service.CreateLeadParams{
		Name:        r.Name,
		Phone:       r.Phone,
		Email:       r.Email,
		Postcode:    r.Postcode,
		Status:      domain.Status(r.Status),
		DateBooked:  r.DateBooked,
		TimeBooked:  r.TimeBooked,
		BookingSlot: r.BookingSlot,
		BookerID:    r.BookerID,
		Channels: service.Channels{
			SendEmail:  r.SendEmail,
			SendSMS:    r.SendSMS,
			TemplateID: r.TemplateID,
		},
	}
}

// UpdateLeadStatusRequest is a lifecycle mutation. Optional wrappers keep
// the absent-vs-null distinction the cancellation contract needs.
type UpdateLeadStatusRequest struct {
	Status        string         `json:"status" validate:"required"`
	DateBooked    OptionalTime   `json:"dateBooked"`
	TimeBooked    OptionalString `json:"timeBooked"`
	BookingSlot   OptionalInt    `json:"bookingSlot"`
	BookingStatus OptionalString `json:"bookingStatus"`
	IsConfirmed   OptionalBool   `json:"isConfirmed"`
	HasSale       OptionalBool   `json:"hasSale"`
	RejectReason  OptionalString `json:"rejectReason"`
	SendEmail     bool           `json:"sendEmail"`
	SendSMS       bool           `json:"sendSms"`
	TemplateID    *uuid.UUID     `json:"templateId,omitempty"`
}

// ToParams maps the request to service-level mutation parameters.
func (r UpdateLeadStatusRequest) ToParams() service.UpdateLeadParams {
	return service.UpdateLeadParams{
		Change: domain.ChangeRequest{
			Status:        domain.Status(r.Status),
			DateBooked:    domain.OptTime{Value: r.DateBooked.Value, Set: r.DateBooked.Set},
			TimeBooked:    domain.OptString{Value: r.TimeBooked.Value, Set: r.TimeBooked.Set},
			BookingSlot:   domain.OptInt{Value: r.BookingSlot.Value, Set: r.BookingSlot.Set},
			BookingStatus: domain.OptString{Value: r.BookingStatus.Value, Set: r.BookingStatus.Set},
			IsConfirmed:   domain.OptBool{Value: r.IsConfirmed.Value, Set: r.IsConfirmed.Set},
			HasSale:       domain.OptBool{Value: r.HasSale.Value, Set: r.HasSale.Set},
			RejectReason:  domain.OptString{Value: r.RejectReason.Value, Set: r.RejectReason.Set},
		},
		Channels: service.Channels{
			SendEmail:  r.SendEmail,
			SendSMS:    r.SendSMS,
			TemplateID: r.TemplateID,
		},
	}
}

// RejectLeadRequest carries the mandatory rejection reason.
type RejectLeadRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// LeadResponse is the JSON view of a lead.
type LeadResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         *string    `json:"email,omitempty"`
	Postcode      *string    `json:"postcode,omitempty"`
	Status        string     `json:"status"`
	DateBooked    *time.Time `json:"dateBooked,omitempty"`
	TimeBooked    *string    `json:"timeBooked,omitempty"`
	BookingSlot   *int       `json:"bookingSlot,omitempty"`
	BookingStatus *string    `json:"bookingStatus,omitempty"`
	IsConfirmed   *bool      `json:"isConfirmed,omitempty"`
	BookerID      *uuid.UUID `json:"bookerId,omitempty"`
	EverBooked    bool       `json:"everBooked"`
	HasSale       bool       `json:"hasSale"`
	BookedAt      *time.Time `json:"bookedAt,omitempty"`
	AssignedAt    *time.Time `json:"assignedAt,omitempty"`
	RejectReason  *string    `json:"rejectReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	UpdatedBy     *uuid.UUID `json:"updatedBy,omitempty"`
}

// FromLead maps a domain lead to its response view.
func FromLead(l *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:            l.ID,
		Name:          l.Name,
		Phone:         l.Phone,
		Email:         l.Email,
		Postcode:      l.Postcode,
		Status:        string(l.Status),
		DateBooked:    l.DateBooked,
		TimeBooked:    l.TimeBooked,
		BookingSlot:   l.BookingSlot,
		BookingStatus: l.BookingStatus,
		IsConfirmed:   l.IsConfirmed,
		BookerID:      l.BookerID,
		EverBooked:    l.EverBooked,
		HasSale:       l.HasSale,
		BookedAt:      l.BookedAt,
		AssignedAt:    l.AssignedAt,
		RejectReason:  l.RejectReason,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		UpdatedBy:     l.UpdatedBy,
	}
}

// CreateLeadResponse wraps intake results. Suppressed duplicates return
// success with no lead body so clients treat the retry as accepted.
type CreateLeadResponse struct {
	Lead         *LeadResponse `json:"lead,omitempty"`
	Suppressed   bool          `json:"suppressed"`
	ExistingLead bool          `json:"existingLead"`
}
