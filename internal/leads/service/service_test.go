package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadbook/internal/events"
	"leadbook/internal/leads/dedup"
	"leadbook/internal/leads/domain"
	"leadbook/internal/leads/ports"
	"leadbook/internal/leads/repository"
	"leadbook/platform/apperr"
	platformevents "leadbook/platform/events"
	"leadbook/platform/logger"

	"github.com/google/uuid"
)

// ---- fakes ----

type fakeStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.Lead
	byPhone map[string]*domain.Lead
	created []*domain.Lead
	updated []*domain.Lead
	deleted []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:    make(map[uuid.UUID]*domain.Lead),
		byPhone: make(map[string]*domain.Lead),
	}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *lead
	return &copied, nil
}

func (f *fakeStore) FindByPhone(_ context.Context, phone string) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.byPhone[phone]
	if !ok {
		return nil, nil
	}
	copied := *lead
	return &copied, nil
}

func (f *fakeStore) Create(_ context.Context, lead *domain.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *lead
	f.byID[lead.ID] = &copied
	f.byPhone[lead.Phone] = &copied
	f.created = append(f.created, &copied)
	return nil
}

func (f *fakeStore) Update(_ context.Context, lead *domain.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[lead.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *lead
	f.byID[lead.ID] = &copied
	f.updated = append(f.updated, &copied)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updated)
}

type fakeHistory struct {
	mu       sync.Mutex
	appends  []repository.AppendHistoryParams
	appended chan struct{}
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{appended: make(chan struct{}, 16)}
}

func (f *fakeHistory) Append(_ context.Context, params repository.AppendHistoryParams) error {
	f.mu.Lock()
	f.appends = append(f.appends, params)
	f.mu.Unlock()
	f.appended <- struct{}{}
	return nil
}

func (f *fakeHistory) ListByLead(_ context.Context, _ uuid.UUID, _, _ int) ([]repository.HistoryEntry, error) {
	return nil, nil
}

func (f *fakeHistory) MarkRead(_ context.Context, _, _ uuid.UUID) error { return nil }

// waitAppend blocks until one detached audit append lands.
func (f *fakeHistory) waitAppend(t *testing.T) repository.AppendHistoryParams {
	t.Helper()
	select {
	case <-f.appended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit append")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends[len(f.appends)-1]
}

func (f *fakeHistory) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appends)
}

type fakeSlots struct {
	blocked bool
	reason  string
}

func (f *fakeSlots) IsBlocked(_ context.Context, _ time.Time, _ *string, _ *int) (bool, string, error) {
	return f.blocked, f.reason, nil
}

type fakeAuthz struct{ allow bool }

func (f *fakeAuthz) CanMutate(_ context.Context, _ uuid.UUID, _ []string, _ *domain.Lead) bool {
	return f.allow
}

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, e)
}

func (f *fakeBus) PublishSync(ctx context.Context, e events.Event) error {
	f.Publish(ctx, e)
	return nil
}

func (f *fakeBus) Subscribe(string, platformevents.Handler) {}

func (f *fakeBus) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.EventName())
	}
	return out
}

func (f *fakeBus) has(name string) bool {
	for _, n := range f.names() {
		if n == name {
			return true
		}
	}
	return false
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []ports.ConfirmationJob
}

func (f *fakeDispatcher) DispatchAsync(job ports.ConfirmationJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
}

func (f *fakeDispatcher) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type fakeReminders struct {
	mu        sync.Mutex
	scheduled []time.Time
}

func (f *fakeReminders) ScheduleBookingReminder(_ context.Context, _ uuid.UUID, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, runAt)
	return nil
}

// ---- harness ----

type harness struct {
	svc        *Service
	store      *fakeStore
	history    *fakeHistory
	slots      *fakeSlots
	authz      *fakeAuthz
	bus        *fakeBus
	dispatcher *fakeDispatcher
	reminders  *fakeReminders
}

func newHarness() *harness {
	h := &harness{
		store:      newFakeStore(),
		history:    newFakeHistory(),
		slots:      &fakeSlots{},
		authz:      &fakeAuthz{allow: true},
		bus:        &fakeBus{},
		dispatcher: &fakeDispatcher{},
		reminders:  &fakeReminders{},
	}
	h.svc = New(h.store, h.history, dedup.New(), h.slots, h.authz, h.bus, logger.New("development"), "GB")
	h.svc.SetDispatcher(h.dispatcher)
	h.svc.SetReminderScheduler(h.reminders, 24*time.Hour)
	return h
}

func (h *harness) seedLead(lead domain.Lead) *domain.Lead {
	copied := lead
	h.store.byID[copied.ID] = &copied
	h.store.byPhone[copied.Phone] = &copied
	return &copied
}

func actor() Actor {
	return Actor{ID: uuid.New(), Name: "Alice Booker", Roles: []string{"booker"}}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func bookedLead(date time.Time) domain.Lead {
	bookedAt := date.Add(-48 * time.Hour)
	return domain.Lead{
		ID:         uuid.New(),
		Name:       "Jane Doe",
		Phone:      "+447700900123",
		Status:     domain.StatusBooked,
		DateBooked: &date,
		EverBooked: true,
		BookedAt:   &bookedAt,
		CreatedAt:  bookedAt,
		UpdatedAt:  bookedAt,
	}
}

// ---- tests ----

func TestCreateLeadSuppressesDuplicateSubmission(t *testing.T) {
	h := newHarness()
	a := actor()
	params := CreateLeadParams{Name: "Jane Doe", Phone: "+447700900123"}

	first, err := h.svc.CreateLead(context.Background(), a, params)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.Suppressed {
		t.Fatal("first submission must not be suppressed")
	}

	second, err := h.svc.CreateLead(context.Background(), a, params)
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if !second.Suppressed {
		t.Error("duplicate inside window must be suppressed")
	}
	if len(h.store.created) != 1 {
		t.Errorf("created %d leads, want 1", len(h.store.created))
	}
}

func TestCreateLeadRequiresNameAndPhone(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreateLead(context.Background(), actor(), CreateLeadParams{Name: "Jane"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestCreateLeadWithBookingDispatchesAndSchedules(t *testing.T) {
	h := newHarness()
	date := time.Now().Add(72 * time.Hour).UTC()

	res, err := h.svc.CreateLead(context.Background(), actor(), CreateLeadParams{
		Name:       "Jane Doe",
		Phone:      "+447700900123",
		Status:     domain.StatusBooked,
		DateBooked: &date,
		Channels:   Channels{SendEmail: true, SendSMS: true},
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if !res.Lead.EverBooked {
		t.Error("intake with booking must set EverBooked")
	}
	if res.Lead.BookedAt == nil {
		t.Error("intake with booking must stamp BookedAt")
	}
	if h.dispatcher.jobCount() != 1 {
		t.Errorf("dispatched %d jobs, want 1", h.dispatcher.jobCount())
	}
	if len(h.reminders.scheduled) != 1 {
		t.Fatalf("scheduled %d reminders, want 1", len(h.reminders.scheduled))
	}
	if got := h.reminders.scheduled[0]; !got.Equal(date.Add(-24 * time.Hour)) {
		t.Errorf("reminder at %v, want 24h before booking", got)
	}
	for _, want := range []string{"leads.lead.created", "leads.stats.update_needed", "diary.updated", "diary.booking_activity"} {
		if !h.bus.has(want) {
			t.Errorf("missing event %s, got %v", want, h.bus.names())
		}
	}

	entry := h.history.waitAppend(t)
	if entry.Action != ActionLeadCreated {
		t.Errorf("audit action = %s, want %s", entry.Action, ActionLeadCreated)
	}
}

func TestCreateLeadFlagsExistingPhone(t *testing.T) {
	h := newHarness()
	h.seedLead(bookedLead(time.Now().Add(24 * time.Hour)))

	res, err := h.svc.CreateLead(context.Background(), actor(), CreateLeadParams{
		Name:  "Jane Again",
		Phone: "+447700900123",
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if !res.ExistingLead {
		t.Error("ExistingLead must be set when the phone is already known")
	}

	entry := h.history.waitAppend(t)
	if got, ok := entry.Details["isExistingLead"].(bool); !ok || !got {
		t.Errorf("audit details isExistingLead = %v, want true", entry.Details["isExistingLead"])
	}
}

func TestCreateLeadBlockedSlotRejects(t *testing.T) {
	h := newHarness()
	h.slots.blocked = true
	h.slots.reason = "staff training day"
	date := time.Now().Add(24 * time.Hour)

	_, err := h.svc.CreateLead(context.Background(), actor(), CreateLeadParams{
		Name:       "Jane Doe",
		Phone:      "+447700900123",
		Status:     domain.StatusBooked,
		DateBooked: &date,
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if len(h.store.created) != 0 {
		t.Error("blocked slot must not create a lead")
	}
}

func TestUpdateLeadStatusInitialBooking(t *testing.T) {
	h := newHarness()
	a := actor()
	lead := h.seedLead(domain.Lead{
		ID:        uuid.New(),
		Name:      "Jane Doe",
		Phone:     "+447700900123",
		Status:    domain.StatusNew,
		CreatedAt: time.Now().Add(-time.Hour),
	})
	date := time.Now().Add(72 * time.Hour).UTC()

	updated, err := h.svc.UpdateLeadStatus(context.Background(), a, lead.ID, UpdateLeadParams{
		Change: domain.ChangeRequest{
			Status:     domain.StatusBooked,
			DateBooked: domain.OptTime{Value: &date, Set: true},
		},
		Channels: Channels{SendSMS: true},
	})
	if err != nil {
		t.Fatalf("UpdateLeadStatus: %v", err)
	}
	if !updated.EverBooked || updated.BookedAt == nil {
		t.Error("initial booking must set EverBooked and BookedAt")
	}
	if h.dispatcher.jobCount() != 1 {
		t.Errorf("dispatched %d jobs, want 1", h.dispatcher.jobCount())
	}

	entry := h.history.waitAppend(t)
	if entry.Action != ActionBookingCreated {
		t.Errorf("audit action = %s, want %s", entry.Action, ActionBookingCreated)
	}
	for _, want := range []string{"leads.lead.updated", "leads.stats.update_needed", "diary.updated", "diary.booking_activity"} {
		if !h.bus.has(want) {
			t.Errorf("missing event %s", want)
		}
	}
}

func TestUpdateLeadStatusBlockedSlotLeavesStateUntouched(t *testing.T) {
	h := newHarness()
	h.slots.blocked = true
	lead := h.seedLead(bookedLead(time.Now().Add(24 * time.Hour)))
	newDate := time.Now().Add(48 * time.Hour)

	_, err := h.svc.UpdateLeadStatus(context.Background(), actor(), lead.ID, UpdateLeadParams{
		Change: domain.ChangeRequest{
			Status:     domain.StatusBooked,
			DateBooked: domain.OptTime{Value: &newDate, Set: true},
		},
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if h.store.updateCount() != 0 {
		t.Error("blocked slot must not persist any change")
	}
	if h.dispatcher.jobCount() != 0 {
		t.Error("blocked slot must not dispatch a confirmation")
	}
}

func TestUpdateLeadStatusForbidden(t *testing.T) {
	h := newHarness()
	h.authz.allow = false
	lead := h.seedLead(bookedLead(time.Now().Add(24 * time.Hour)))

	_, err := h.svc.UpdateLeadStatus(context.Background(), actor(), lead.ID, UpdateLeadParams{
		Change: domain.ChangeRequest{Status: domain.StatusAttended},
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("err = %v, want forbidden", err)
	}
	if h.store.updateCount() != 0 {
		t.Error("forbidden mutation must not persist")
	}
}

func TestUpdateLeadStatusNotFound(t *testing.T) {
	h := newHarness()
	_, err := h.svc.UpdateLeadStatus(context.Background(), actor(), uuid.New(), UpdateLeadParams{
		Change: domain.ChangeRequest{Status: domain.StatusAttended},
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestUpdateLeadStatusInvalidStatus(t *testing.T) {
	h := newHarness()
	lead := h.seedLead(bookedLead(time.Now().Add(24 * time.Hour)))

	_, err := h.svc.UpdateLeadStatus(context.Background(), actor(), lead.ID, UpdateLeadParams{
		Change: domain.ChangeRequest{Status: domain.Status("Archived")},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestUpdateLeadStatusNoOpSkipsAuditAndFanOut(t *testing.T) {
	h := newHarness()
	lead := h.seedLead(bookedLead(time.Now().Add(24 * time.Hour)))

	_, err := h.svc.UpdateLeadStatus(context.Background(), actor(), lead.ID, UpdateLeadParams{
		Change: domain.ChangeRequest{Status: domain.StatusBooked},
	})
	if err != nil {
		t.Fatalf("UpdateLeadStatus: %v", err)
	}
	if !h.bus.has("leads.lead.updated") {
		t.Error("no-op must still publish the updated entity")
	}
	if h.bus.has("leads.stats.update_needed") {
		t.Error("no-op must not trigger a stats refresh")
	}
	if h.dispatcher.jobCount() != 0 {
		t.Error("no-op must not dispatch a confirmation")
	}
	if h.history.appendCount() != 0 {
		t.Error("no-op must not append audit history")
	}
}

func TestUpdateLeadStatusCancellation(t *testing.T) {
	h := newHarness()
	date := time.Now().Add(24 * time.Hour)
	seed := bookedLead(date)
	seed.TimeBooked = strPtr("AM")
	seed.BookingSlot = intPtr(2)
	lead := h.seedLead(seed)

	updated, err := h.svc.UpdateLeadStatus(context.Background(), actor(), lead.ID, UpdateLeadParams{
		Change: domain.ChangeRequest{Status: domain.StatusCancelled},
	})
	if err != nil {
		t.Fatalf("UpdateLeadStatus: %v", err)
	}
	if updated.DateBooked != nil {
		t.Error("cancellation without a supplied date must clear DateBooked")
	}
	if !updated.EverBooked {
		t.Error("EverBooked must survive cancellation")
	}
	if h.dispatcher.jobCount() != 0 {
		t.Error("cancellation must not dispatch a confirmation")
	}

	entry := h.history.waitAppend(t)
	if entry.Action != ActionBookingCancelled {
		t.Errorf("audit action = %s, want %s", entry.Action, ActionBookingCancelled)
	}

	// The cleared booking survives in the audit details.
	prev, ok := entry.Details["previousDateBooked"].(time.Time)
	if !ok || !prev.Equal(date) {
		t.Errorf("previousDateBooked = %v, want %v", entry.Details["previousDateBooked"], date)
	}
	if entry.Details["previousTimeBooked"] != "AM" {
		t.Errorf("previousTimeBooked = %v, want AM", entry.Details["previousTimeBooked"])
	}
	if entry.Details["previousBookingSlot"] != 2 {
		t.Errorf("previousBookingSlot = %v, want 2", entry.Details["previousBookingSlot"])
	}
}

func TestRejectLeadRequiresReason(t *testing.T) {
	h := newHarness()
	_, err := h.svc.RejectLead(context.Background(), actor(), uuid.New(), "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestRejectLeadRecordsReason(t *testing.T) {
	h := newHarness()
	lead := h.seedLead(bookedLead(time.Now().Add(24 * time.Hour)))

	updated, err := h.svc.RejectLead(context.Background(), actor(), lead.ID, "wrong area")
	if err != nil {
		t.Fatalf("RejectLead: %v", err)
	}
	if updated.Status != domain.StatusRejected {
		t.Errorf("status = %s, want Rejected", updated.Status)
	}
	if updated.RejectReason == nil || *updated.RejectReason != "wrong area" {
		t.Errorf("reject reason = %v, want wrong area", updated.RejectReason)
	}

	entry := h.history.waitAppend(t)
	if entry.Action != ActionLeadRejected {
		t.Errorf("audit action = %s, want %s", entry.Action, ActionLeadRejected)
	}
	if entry.Details["rejectReason"] != "wrong area" {
		t.Errorf("audit details rejectReason = %v", entry.Details["rejectReason"])
	}
	if _, ok := entry.Details["previousDateBooked"].(time.Time); !ok {
		t.Errorf("previousDateBooked = %v, want the cleared booking date", entry.Details["previousDateBooked"])
	}
}

func TestPurgeLeadPublishesDeletion(t *testing.T) {
	h := newHarness()
	lead := h.seedLead(bookedLead(time.Now().Add(24 * time.Hour)))

	if err := h.svc.PurgeLead(context.Background(), actor(), lead.ID); err != nil {
		t.Fatalf("PurgeLead: %v", err)
	}
	if len(h.store.deleted) != 1 {
		t.Fatalf("deleted %d leads, want 1", len(h.store.deleted))
	}
	if !h.bus.has("leads.lead.deleted") {
		t.Error("purge must publish lead deleted")
	}
}

func TestRecordConfirmationSentAppendsAudit(t *testing.T) {
	h := newHarness()
	leadID := uuid.New()

	h.svc.RecordConfirmationSent(context.Background(), leadID, true, false)

	entry := h.history.waitAppend(t)
	if entry.Action != ActionConfirmationSent {
		t.Errorf("audit action = %s, want %s", entry.Action, ActionConfirmationSent)
	}
	if got, _ := entry.Details["emailSent"].(bool); !got {
		t.Error("emailSent detail must be true")
	}
}
