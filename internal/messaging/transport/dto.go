// Package transport defines the HTTP shapes for template administration.
package transport

// CreateTemplateRequest creates a confirmation template.
type CreateTemplateRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Type         string `json:"type" validate:"required,oneof=booking_confirmation booking_reminder"`
	EmailSubject string `json:"emailSubject" validate:"required_with=EmailBody,max=200"`
	EmailBody    string `json:"emailBody" validate:"omitempty,max=20000"`
	SMSBody      string `json:"smsBody" validate:"omitempty,max=1000"`
	Active       bool   `json:"active"`
}

// SetActiveRequest toggles a template's active flag.
type SetActiveRequest struct {
	Active bool `json:"active"`
}
