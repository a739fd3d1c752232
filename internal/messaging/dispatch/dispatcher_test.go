package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadbook/internal/events"
	"leadbook/internal/leads/ports"
	"leadbook/internal/messaging/repository"
	platformevents "leadbook/platform/events"
	"leadbook/platform/logger"

	"github.com/google/uuid"
)

type fakeTemplates struct {
	tmpl *repository.Template
	err  error
}

func (f *fakeTemplates) GetByID(_ context.Context, _ uuid.UUID) (*repository.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.tmpl == nil {
		return nil, repository.ErrNotFound
	}
	return f.tmpl, nil
}

func (f *fakeTemplates) FindDefault(_ context.Context, _ string) (*repository.Template, error) {
	return f.tmpl, f.err
}

type fakeEmail struct {
	mu    sync.Mutex
	sent  []string
	err   error
	delay time.Duration
}

func (f *fakeEmail) SendEmail(ctx context.Context, toEmail, _, _ string) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.sent = append(f.sent, toEmail)
	f.mu.Unlock()
	return nil
}

func (f *fakeEmail) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, toPhone, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.sent = append(f.sent, toPhone)
	f.mu.Unlock()
	return nil
}

type captureBus struct {
	events chan events.Event
}

func newCaptureBus() *captureBus {
	return &captureBus{events: make(chan events.Event, 8)}
}

func (b *captureBus) Publish(_ context.Context, e events.Event) { b.events <- e }

func (b *captureBus) PublishSync(_ context.Context, e events.Event) error {
	b.events <- e
	return nil
}

func (b *captureBus) Subscribe(string, platformevents.Handler) {}

// waitResult returns the next confirmation result, failing after a timeout.
func (b *captureBus) waitResult(t *testing.T) events.BookingConfirmationResult {
	t.Helper()
	select {
	case e := <-b.events:
		res, ok := e.(events.BookingConfirmationResult)
		if !ok {
			t.Fatalf("unexpected event %T", e)
		}
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for confirmation result")
		return events.BookingConfirmationResult{}
	}
}

// assertNoMoreResults verifies no second event trails the first.
func (b *captureBus) assertNoMoreResults(t *testing.T) {
	t.Helper()
	select {
	case e := <-b.events:
		t.Fatalf("unexpected extra event %T", e)
	case <-time.After(100 * time.Millisecond):
	}
}

type fakeAudit struct {
	mu      sync.Mutex
	records int
}

func (f *fakeAudit) RecordConfirmationSent(_ context.Context, _ uuid.UUID, _, _ bool) {
	f.mu.Lock()
	f.records++
	f.mu.Unlock()
}

func (f *fakeAudit) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

func confirmationTemplate() *repository.Template {
	return &repository.Template{
		ID:           uuid.New(),
		Name:         "default",
		Type:         repository.TypeBookingConfirmation,
		EmailSubject: "Your booking on {{date}}",
		EmailBody:    "Hi {{name}}, see you on {{date}} at {{time}}.",
		SMSBody:      "Hi {{name}}, booked for {{date}} {{time}}.",
		Active:       true,
	}
}

func confirmationJob(email *string) ports.ConfirmationJob {
	return ports.ConfirmationJob{
		LeadID:     uuid.New(),
		LeadName:   "Jane Doe",
		Phone:      "+447700900123",
		Email:      email,
		DateBooked: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Kind:       "INITIAL_BOOKING",
		SendEmail:  email != nil,
		SendSMS:    true,
	}
}

func strPtr(s string) *string { return &s }

func TestDispatchSuccessPublishesOneEventAndAudits(t *testing.T) {
	bus := newCaptureBus()
	email := &fakeEmail{}
	sms := &fakeSMS{}
	audit := &fakeAudit{}

	d := New(&fakeTemplates{tmpl: confirmationTemplate()}, email, sms, bus, logger.New("development"), time.Second)
	d.SetAuditWriter(audit)

	d.run(confirmationJob(strPtr("jane@example.com")))

	res := bus.waitResult(t)
	if res.Status != events.DispatchStatusSuccess {
		t.Errorf("status = %s, want success", res.Status)
	}
	if !res.EmailSent || !res.SMSSent {
		t.Errorf("emailSent=%v smsSent=%v, want both true", res.EmailSent, res.SMSSent)
	}
	if audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", audit.count())
	}
	bus.assertNoMoreResults(t)
}

func TestDispatchChannelFailurePublishesFailure(t *testing.T) {
	bus := newCaptureBus()
	email := &fakeEmail{err: errors.New("smtp down")}
	sms := &fakeSMS{}
	audit := &fakeAudit{}

	d := New(&fakeTemplates{tmpl: confirmationTemplate()}, email, sms, bus, logger.New("development"), time.Second)
	d.SetAuditWriter(audit)

	d.run(confirmationJob(strPtr("jane@example.com")))

	res := bus.waitResult(t)
	if res.Status != events.DispatchStatusFailed {
		t.Errorf("status = %s, want failed", res.Status)
	}
	if res.EmailSent {
		t.Error("emailSent must be false when smtp fails")
	}
	if !res.SMSSent {
		t.Error("smsSent must report the channel that did deliver")
	}
	if audit.count() != 0 {
		t.Error("failed dispatch must not record a sent audit entry")
	}
	bus.assertNoMoreResults(t)
}

func TestDispatchTimeoutPublishesExactlyOneFailure(t *testing.T) {
	bus := newCaptureBus()
	email := &fakeEmail{delay: time.Second}
	audit := &fakeAudit{}

	d := New(&fakeTemplates{tmpl: confirmationTemplate()}, email, &fakeSMS{}, bus, logger.New("development"), 20*time.Millisecond)
	d.SetAuditWriter(audit)

	d.run(confirmationJob(strPtr("jane@example.com")))

	res := bus.waitResult(t)
	if res.Status != events.DispatchStatusFailed {
		t.Errorf("status = %s, want failed", res.Status)
	}
	if audit.count() != 0 {
		t.Error("timed-out dispatch must not record a sent audit entry")
	}
	bus.assertNoMoreResults(t)
}

func TestDispatchTimeoutAbandonsSendWithoutCancelling(t *testing.T) {
	bus := newCaptureBus()
	email := &fakeEmail{delay: 100 * time.Millisecond}

	d := New(&fakeTemplates{tmpl: confirmationTemplate()}, email, &fakeSMS{}, bus, logger.New("development"), 20*time.Millisecond)

	job := confirmationJob(strPtr("jane@example.com"))
	job.SendSMS = false
	d.run(job)

	res := bus.waitResult(t)
	if res.Status != events.DispatchStatusFailed {
		t.Errorf("status = %s, want failed", res.Status)
	}

	// The abandoned send runs to completion; its late result is discarded.
	deadline := time.Now().Add(2 * time.Second)
	for email.sentCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if email.sentCount() != 1 {
		t.Errorf("email sends = %d, want the in-flight send to finish", email.sentCount())
	}
	bus.assertNoMoreResults(t)
}

func TestDispatchWithoutTemplateIsSilentNoOp(t *testing.T) {
	bus := newCaptureBus()
	email := &fakeEmail{}
	sms := &fakeSMS{}

	d := New(&fakeTemplates{}, email, sms, bus, logger.New("development"), time.Second)

	d.run(confirmationJob(strPtr("jane@example.com")))

	bus.assertNoMoreResults(t)
	if len(email.sent) != 0 || len(sms.sent) != 0 {
		t.Error("no template must mean no sends")
	}
}

func TestDispatchHonorsRequestedChannels(t *testing.T) {
	bus := newCaptureBus()
	email := &fakeEmail{}
	sms := &fakeSMS{}

	d := New(&fakeTemplates{tmpl: confirmationTemplate()}, email, sms, bus, logger.New("development"), time.Second)

	job := confirmationJob(nil) // no email address: SMS only
	d.run(job)

	res := bus.waitResult(t)
	if res.Status != events.DispatchStatusSuccess {
		t.Errorf("status = %s, want success", res.Status)
	}
	if res.EmailSent {
		t.Error("emailSent must be false when email was not requested")
	}
	if len(email.sent) != 0 {
		t.Error("email must not be attempted when not requested")
	}
	if len(sms.sent) != 1 {
		t.Errorf("sms sends = %d, want 1", len(sms.sent))
	}
}

func TestDispatchAsyncDetachesFromCaller(t *testing.T) {
	bus := newCaptureBus()
	d := New(&fakeTemplates{tmpl: confirmationTemplate()}, &fakeEmail{}, &fakeSMS{}, bus, logger.New("development"), time.Second)

	d.DispatchAsync(confirmationJob(strPtr("jane@example.com")))

	res := bus.waitResult(t)
	if res.Status != events.DispatchStatusSuccess {
		t.Errorf("status = %s, want success", res.Status)
	}
}
