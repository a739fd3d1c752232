// Package transport defines the HTTP shapes for the schedule module.
package transport

import (
	"time"

	"leadbook/internal/schedule/service"
)

// CreateBlockedSlotRequest creates one exclusion entry. Date is a calendar
// date; a missing timeSlot blocks the whole day.
type CreateBlockedSlotRequest struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot   *string `json:"timeSlot,omitempty" validate:"omitempty,max=20"`
	SlotNumber *int    `json:"slotNumber,omitempty" validate:"omitempty,min=1,max=12"`
	Reason     string  `json:"reason" validate:"required,min=3,max=200"`
}

// ToParams maps the request to service-level parameters.
func (r CreateBlockedSlotRequest) ToParams() (service.BlockParams, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return service.BlockParams{}, err
	}
	return service.BlockParams{
		Date:       date,
		TimeSlot:   r.TimeSlot,
		SlotNumber: r.SlotNumber,
		Reason:     r.Reason,
	}, nil
}
