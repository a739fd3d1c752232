// Package notification bridges the internal event bus onto the SSE stream
// so connected clients see lead, diary and dispatch activity live.
package notification

import (
	"context"

	"leadbook/internal/events"
	apphttp "leadbook/internal/http"
	"leadbook/internal/notification/sse"
	"leadbook/platform/logger"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	SSE *sse.Service
}

// NewModule creates the notification module and subscribes the SSE bridge
// to every event type the stream carries.
func NewModule(eventBus events.Bus, log *logger.Logger) *Module {
	service := sse.New(log)
	subscribe(eventBus, service)
	return &Module{SSE: service}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the stream endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/stream", m.SSE.Handler())
}

// Close shuts down all SSE streams.
func (m *Module) Close() {
	m.SSE.Close()
}

func subscribe(bus events.Bus, service *sse.Service) {
	on := func(eventName string, handler func(events.Event)) {
		bus.Subscribe(eventName, events.HandlerFunc(func(_ context.Context, event events.Event) error {
			handler(event)
			return nil
		}))
	}

	on(events.LeadCreated{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.LeadCreated); ok {
			service.Broadcast(sse.Event{Type: sse.EventLeadCreated, LeadID: e.LeadID, Data: e})
		}
	})
	on(events.LeadUpdated{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.LeadUpdated); ok {
			service.Broadcast(sse.Event{Type: sse.EventLeadUpdated, LeadID: e.LeadID, Data: e})
		}
	})
	on(events.LeadDeleted{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.LeadDeleted); ok {
			service.Broadcast(sse.Event{Type: sse.EventLeadDeleted, LeadID: e.LeadID, Data: e})
		}
	})
	on(events.StatsUpdateNeeded{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.StatsUpdateNeeded); ok {
			service.Broadcast(sse.Event{Type: sse.EventStatsUpdateNeeded, LeadID: e.LeadID, Data: e})
		}
	})
	on(events.DiaryUpdated{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.DiaryUpdated); ok {
			service.Broadcast(sse.Event{Type: sse.EventDiaryUpdated, LeadID: e.LeadID, Data: e})
		}
	})
	on(events.BookingActivity{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.BookingActivity); ok {
			service.Broadcast(sse.Event{Type: sse.EventBookingActivity, LeadID: e.LeadID, Data: e})
		}
	})
	on(events.BookingConfirmationResult{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.BookingConfirmationResult); ok {
			service.Broadcast(sse.Event{Type: sse.EventBookingConfirmation, LeadID: e.LeadID, Data: e})
		}
	})
	on(events.BookingReminderDue{}.EventName(), func(event events.Event) {
		if e, ok := event.(events.BookingReminderDue); ok {
			service.Broadcast(sse.Event{Type: sse.EventBookingReminder, LeadID: e.LeadID, Data: e})
		}
	})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
