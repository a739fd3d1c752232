package scheduler

import (
	"testing"

	"github.com/google/uuid"
)

func TestBookingReminderPayloadRoundTrip(t *testing.T) {
	leadID := uuid.New()

	task, err := NewBookingReminderTask(BookingReminderPayload{LeadID: leadID.String()})
	if err != nil {
		t.Fatalf("NewBookingReminderTask: %v", err)
	}
	if task.Type() != TaskBookingReminder {
		t.Errorf("task type = %s, want %s", task.Type(), TaskBookingReminder)
	}

	payload, err := ParseBookingReminderPayload(task)
	if err != nil {
		t.Fatalf("ParseBookingReminderPayload: %v", err)
	}
	if payload.LeadID != leadID.String() {
		t.Errorf("leadId = %s, want %s", payload.LeadID, leadID)
	}
}
