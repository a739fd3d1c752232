// Package dispatch runs booking-confirmation sends detached from the
// booking request. A dispatch can fail or time out without ever affecting
// the committed booking; outcomes surface as events and audit entries.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadbook/internal/events"
	"leadbook/internal/leads/ports"
	"leadbook/internal/messaging/gateway"
	"leadbook/internal/messaging/repository"
	"leadbook/platform/logger"

	"github.com/google/uuid"
)

// AuditWriter records a successful confirmation send in the lead's booking
// history. Implemented by the leads module and wired at the composition
// root.
type AuditWriter interface {
	RecordConfirmationSent(ctx context.Context, leadID uuid.UUID, emailSent, smsSent bool)
}

// TemplateStore resolves confirmation templates.
type TemplateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Template, error)
	FindDefault(ctx context.Context, msgType string) (*repository.Template, error)
}

// Dispatcher executes confirmation jobs. Each job runs on its own
// goroutine, races a timeout, and publishes exactly one result event.
type Dispatcher struct {
	templates TemplateStore
	email     gateway.EmailSender
	sms       gateway.SMSSender
	bus       events.Bus
	log       *logger.Logger
	timeout   time.Duration
	audit     AuditWriter
}

// New creates a dispatcher. email or sms may be nil when the channel is not
// configured; jobs requesting an unconfigured channel fail that channel.
func New(
	templates TemplateStore,
	email gateway.EmailSender,
	sms gateway.SMSSender,
	bus events.Bus,
	log *logger.Logger,
	timeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		templates: templates,
		email:     email,
		sms:       sms,
		bus:       bus,
		log:       log,
		timeout:   timeout,
	}
}

// SetAuditWriter wires the audit sink after construction.
func (d *Dispatcher) SetAuditWriter(w AuditWriter) {
	d.audit = w
}

type outcome struct {
	emailSent bool
	smsSent   bool
	err       error
}

// DispatchAsync runs the job detached from the caller. It returns
// immediately; the result arrives as a single booking_confirmation event.
func (d *Dispatcher) DispatchAsync(job ports.ConfirmationJob) {
	go d.run(job)
}

func (d *Dispatcher) run(job ports.ConfirmationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	tmpl, err := d.resolveTemplate(ctx, job.TemplateID)
	if err != nil {
		d.publishFailure(ctx, job, outcome{err: err})
		return
	}
	if tmpl == nil {
		// No active template configured: nothing to send, nothing to report.
		d.log.Debug("no confirmation template configured, skipping dispatch",
			"lead_id", job.LeadID.String())
		return
	}

	// The timeout abandons the send rather than cancelling it mid-flight;
	// a late result is discarded, not interrupted.
	done := make(chan outcome, 1)
	sendCtx := context.WithoutCancel(ctx)
	go func() {
		done <- d.send(sendCtx, job, tmpl)
	}()

	select {
	case res := <-done:
		if res.err != nil {
			d.publishFailure(ctx, job, res)
			return
		}
		d.publishSuccess(ctx, job, res)
	case <-ctx.Done():
		d.publishFailure(context.Background(), job, outcome{
			err: fmt.Errorf("confirmation dispatch timed out after %s", d.timeout),
		})
	}
}

func (d *Dispatcher) resolveTemplate(ctx context.Context, templateID *uuid.UUID) (*repository.Template, error) {
	if templateID != nil {
		return d.templates.GetByID(ctx, *templateID)
	}
	return d.templates.FindDefault(ctx, repository.TypeBookingConfirmation)
}

func (d *Dispatcher) send(ctx context.Context, job ports.ConfirmationJob, tmpl *repository.Template) outcome {
	var res outcome
	var errs []error

	if job.SendEmail {
		switch {
		case d.email == nil:
			errs = append(errs, errors.New("email channel not configured"))
		case job.Email == nil:
			errs = append(errs, errors.New("lead has no email address"))
		default:
			subject := render(tmpl.EmailSubject, job)
			body := render(tmpl.EmailBody, job)
			if err := d.email.SendEmail(ctx, *job.Email, subject, body); err != nil {
				errs = append(errs, err)
			} else {
				res.emailSent = true
			}
		}
	}

	if job.SendSMS {
		if d.sms == nil {
			errs = append(errs, errors.New("sms channel not configured"))
		} else if err := d.sms.SendSMS(ctx, job.Phone, render(tmpl.SMSBody, job)); err != nil {
			errs = append(errs, err)
		} else {
			res.smsSent = true
		}
	}

	res.err = errors.Join(errs...)
	return res
}

func (d *Dispatcher) publishSuccess(ctx context.Context, job ports.ConfirmationJob, res outcome) {
	d.log.DispatchResult(job.LeadID.String(), res.emailSent, res.smsSent, nil)
	if d.audit != nil {
		d.audit.RecordConfirmationSent(ctx, job.LeadID, res.emailSent, res.smsSent)
	}
	d.bus.Publish(ctx, events.BookingConfirmationResult{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    job.LeadID,
		Status:    events.DispatchStatusSuccess,
		EmailSent: res.emailSent,
		SMSSent:   res.smsSent,
	})
}

func (d *Dispatcher) publishFailure(ctx context.Context, job ports.ConfirmationJob, res outcome) {
	d.log.DispatchResult(job.LeadID.String(), res.emailSent, res.smsSent, res.err)
	d.bus.Publish(ctx, events.BookingConfirmationResult{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    job.LeadID,
		Status:    events.DispatchStatusFailed,
		EmailSent: res.emailSent,
		SMSSent:   res.smsSent,
		Message:   res.err.Error(),
	})
}

// render substitutes the supported template placeholders.
func render(body string, job ports.ConfirmationJob) string {
	timeBooked := ""
	if job.TimeBooked != nil {
		timeBooked = *job.TimeBooked
	}
	replacer := strings.NewReplacer(
		"{{name}}", job.LeadName,
		"{{date}}", job.DateBooked.Format("Monday 2 January 2006"),
		"{{time}}", timeBooked,
	)
	return replacer.Replace(body)
}

// Compile-time check that Dispatcher satisfies the leads module's port.
var _ ports.ConfirmationDispatcher = (*Dispatcher)(nil)
