// Package sse provides Server-Sent Events support for real-time updates.
package sse

import (
	"encoding/json"
	"sync"

	"leadbook/platform/httpkit"
	"leadbook/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType enumerates the stream event names clients subscribe to.
type EventType string

const (
	EventLeadCreated         EventType = "lead_created"
	EventLeadUpdated         EventType = "lead_updated"
	EventLeadDeleted         EventType = "lead_deleted"
	EventStatsUpdateNeeded   EventType = "stats_update_needed"
	EventDiaryUpdated        EventType = "diary_updated"
	EventBookingActivity     EventType = "booking_activity"
	EventBookingConfirmation EventType = "booking_confirmation"
	EventBookingReminder     EventType = "booking_reminder"
)

// Event is one SSE payload.
type Event struct {
	Type   EventType   `json:"type"`
	LeadID uuid.UUID   `json:"leadId,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// client is a connected SSE stream.
type client struct {
	userID uuid.UUID
	events chan Event
}

// Service manages SSE connections and broadcasting. Lead lifecycle updates
// are broadcast to every connected user; diary and stats views are shared.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

// New creates a new SSE service.
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.userID] = append(s.clients[c.userID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close only if still registered; Close() may have drained the map
	// and closed every channel already.
	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			if len(s.clients[c.userID]) == 0 {
				delete(s.clients, c.userID)
			}
			close(c.events)
			return
		}
	}
}

// Broadcast sends an event to every connected client. A slow client's full
// buffer drops the event rather than blocking the broadcast.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for userID, clients := range s.clients {
		for _, c := range clients {
			select {
			case c.events <- event:
			default:
				s.log.Warn("sse buffer full, dropping event",
					"user_id", userID.String(), "event", string(event.Type))
			}
		}
	}
}

// Handler returns the gin handler for SSE connections.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := httpkit.MustGetIdentity(c)
		if id == nil {
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID: id.UserID(),
			events: make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": cl.userID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down all client streams.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
