package sse

import (
	"testing"

	"leadbook/platform/logger"

	"github.com/google/uuid"
)

func newClient() *client {
	return &client{userID: uuid.New(), events: make(chan Event, 2)}
}

func TestRemoveClientAfterCloseDoesNotPanic(t *testing.T) {
	svc := New(logger.New("development"))
	c := newClient()
	svc.addClient(c)

	svc.Close()

	// A handler unwinding after shutdown must not close the channel twice.
	svc.removeClient(c)

	if _, ok := <-c.events; ok {
		t.Error("expected events channel to be closed")
	}
}

func TestRemoveClientDropsEmptyUserEntry(t *testing.T) {
	svc := New(logger.New("development"))
	c := newClient()
	svc.addClient(c)
	svc.removeClient(c)

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if len(svc.clients) != 0 {
		t.Errorf("clients map has %d entries, want 0", len(svc.clients))
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	svc := New(logger.New("development"))
	c := &client{userID: uuid.New(), events: make(chan Event, 1)}
	svc.addClient(c)
	defer svc.removeClient(c)

	svc.Broadcast(Event{Type: EventLeadUpdated})
	svc.Broadcast(Event{Type: EventStatsUpdateNeeded}) // buffer full, dropped

	if got := len(c.events); got != 1 {
		t.Errorf("buffered events = %d, want 1", got)
	}
}
