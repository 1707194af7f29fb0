// Package chat provides live message fan-out for chat sessions and the
// assistant responder that answers user messages.
package chat

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/pkg/models"
)

// OutboundFrame is the wire format pushed to live listeners.
type OutboundFrame struct {
	Type string              `json:"type"`
	Data *models.ChatMessage `json:"data"`
}

// InboundFrame is the wire format received from live connections.
type InboundFrame struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sender delivers frames to one live connection. Send errors mark the
// connection dead.
type Sender interface {
	Send(frame OutboundFrame) error
	Close() error
}

// Registry tracks live listeners per chat session and fans messages out to
// them. A failed send drops the listener.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]map[string]Sender
}

// NewRegistry creates an empty listener registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]map[string]Sender)}
}

// Add registers a listener for a session and returns its listener ID.
func (r *Registry) Add(sessionID int64, sender Sender) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[sessionID] == nil {
		r.sessions[sessionID] = make(map[string]Sender)
	}
	r.sessions[sessionID][id] = sender

	log.Debug().Int64("session_id", sessionID).Str("listener_id", id).Msg("Chat listener added")
	return id
}

// Remove drops a listener without closing it. Used when the connection
// already terminated on its own.
func (r *Registry) Remove(sessionID int64, listenerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if listeners, ok := r.sessions[sessionID]; ok {
		delete(listeners, listenerID)
		if len(listeners) == 0 {
			delete(r.sessions, sessionID)
		}
	}
}

// Broadcast delivers a stored message to every listener of its session.
// Listeners whose send fails are closed and dropped.
func (r *Registry) Broadcast(msg *models.ChatMessage) {
	frame := OutboundFrame{Type: "message", Data: msg}

	r.mu.Lock()
	defer r.mu.Unlock()

	listeners := r.sessions[msg.SessionID]
	for id, sender := range listeners {
		if err := sender.Send(frame); err != nil {
			log.Debug().Err(err).
				Int64("session_id", msg.SessionID).
				Str("listener_id", id).
				Msg("Dropping dead chat listener")
			sender.Close()
			delete(listeners, id)
		}
	}
	if len(listeners) == 0 {
		delete(r.sessions, msg.SessionID)
	}
}

// CloseSession closes and removes every listener of a session. Called when
// the session is deleted.
func (r *Registry) CloseSession(sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sender := range r.sessions[sessionID] {
		sender.Close()
	}
	delete(r.sessions, sessionID)
}

// CloseAll closes every listener across all sessions. Called on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID, listeners := range r.sessions {
		for _, sender := range listeners {
			sender.Close()
		}
		delete(r.sessions, sessionID)
	}
}

// Count returns the number of live listeners for a session.
func (r *Registry) Count(sessionID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[sessionID])
}
