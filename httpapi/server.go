// Package httpapi exposes the UI-facing control surface: cancelling an
// in-flight operation, probing its state, and streaming session events
// over a WebSocket. Document rendering and persistence stay with the
// surrounding application.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/quillflow/agent-core/cancel"
	"github.com/quillflow/agent-core/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server routes control requests to the cancellation registry and
// relays session events to WebSocket subscribers.
type Server struct {
	registry *cancel.Registry

	mu       sync.Mutex
	sessions map[string]<-chan session.Event
}

// NewServer returns a server bound to the given registry.
func NewServer(registry *cancel.Registry) *Server {
	return &Server{
		registry: registry,
		sessions: make(map[string]<-chan session.Event),
	}
}

// RegisterSession makes a session's event stream available to one
// WebSocket subscriber under its request id.
func (s *Server) RegisterSession(id string, events <-chan session.Event) {
	s.mu.Lock()
	s.sessions[id] = events
	s.mu.Unlock()
}

// claimSession removes and returns the event stream for id; a stream
// feeds exactly one subscriber.
func (s *Server) claimSession(id string) (<-chan session.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return events, ok
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/operations/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/operations/{id}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/events", s.handleEvents).Methods(http.MethodGet)
	return r
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req cancelRequest
	if r.Body != nil {
		// Body is optional; a missing or invalid reason is just empty.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ok := s.registry.Cancel(id, req.Reason)
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: ok})
}

type statusResponse struct {
	Cancelled bool `json:"cancelled"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, statusResponse{Cancelled: s.registry.IsCancelled(id)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	events, ok := s.claimSession(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "session_id", id, "error", err)
		return
	}
	defer ws.Close()

	for event := range events {
		msg, ok := wireEvent(event)
		if !ok {
			continue
		}
		if err := ws.WriteJSON(msg); err != nil {
			slog.Warn("dropping websocket subscriber", "session_id", id, "error", err)
			return
		}
		if event.Type() == session.EventTypeStatus {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
