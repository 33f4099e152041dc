// Package collectortest provides an in-memory Yelix collector for tests and
// local development. It records every registration and event it accepts and
// can inject failures on either endpoint.
package collectortest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/yelix-cloud/yelix-sdk-go/internal/auth"
)

// Registration records one instance-creation call.
type Registration struct {
	Environment string            `json:"environment"`
	Schema      map[string]any    `json:"schema"`
	Machine     map[string]string `json:"machine"`
}

// Event records one delivered event.
type Event struct {
	InstanceID string            `json:"-"`
	EventID    string            `json:"-"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	DurationMS float64           `json:"duration_ms"`
	StartTime  int64             `json:"start_time"`
	Machine    map[string]string `json:"machine"`
}

// Server is a fake collector backed by httptest.
type Server struct {
	mu               sync.Mutex
	apiKey           string
	instanceID       string
	registrations    []Registration
	events           []Event
	failRegistration bool
	failDelivery     bool

	httpSrv *httptest.Server
}

// New starts a fake collector that authenticates requests with apiKey and
// issues instanceID on registration.
func New(apiKey, instanceID string) *Server {
	s := &Server{apiKey: apiKey, instanceID: instanceID}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/instances", s.handleRegister)
	mux.HandleFunc("POST /v1/instances/{id}/events", s.handleEvent)
	s.httpSrv = httptest.NewServer(mux)
	return s
}

// URL returns the collector base URL.
func (s *Server) URL() string {
	return s.httpSrv.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.httpSrv.Close()
}

// FailRegistration makes subsequent registration calls return 500.
func (s *Server) FailRegistration(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRegistration = fail
}

// FailDelivery makes subsequent event deliveries return 500.
func (s *Server) FailDelivery(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelivery = fail
}

// Registrations returns a snapshot of recorded registrations.
func (s *Server) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Registration, len(s.registrations))
	copy(out, s.registrations)
	return out
}

// Events returns a snapshot of recorded events in arrival order.
func (s *Server) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return false
	}
	if _, err := auth.Parse(token, s.apiKey); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid bearer token")
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	var reg Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed registration payload")
		return
	}
	s.mu.Lock()
	fail := s.failRegistration
	if !fail {
		s.registrations = append(s.registrations, reg)
	}
	id := s.instanceID
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "registration unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	instanceID := r.PathValue("id")
	s.mu.Lock()
	known := instanceID == s.instanceID
	s.mu.Unlock()
	if !known {
		writeError(w, http.StatusNotFound, "unknown instance")
		return
	}
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event payload")
		return
	}
	ev.InstanceID = instanceID
	ev.EventID = r.Header.Get("X-Yelix-Event-ID")
	s.mu.Lock()
	fail := s.failDelivery
	if !fail {
		s.events = append(s.events, ev)
	}
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "delivery unavailable")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// writeJSON writes a JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
