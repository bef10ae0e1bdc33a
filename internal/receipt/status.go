package receipt

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

const msgFetchFailed = "Could not fetch receipt. "

// StatusComponent looks up one receipt record at a time
type StatusComponent struct {
	backend Backend

	mu    sync.Mutex
	state StatusState
}

// NewStatusComponent creates an idle status component pre-filled with defaultID
func NewStatusComponent(backend Backend, defaultID string) *StatusComponent {
	return &StatusComponent{
		backend: backend,
		state:   StatusState{Default: defaultID},
	}
}

// State returns a snapshot of the component
func (s *StatusComponent) State() StatusState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetDefault pre-fills the input with id, dropping the previously looked up
// identifier unless a lookup for it is still in flight
func (s *StatusComponent) SetDefault(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Default = id
	if !s.state.Pending() {
		s.state.Input = ""
	}
}

// Submit fetches the record for id. An empty id only clears the input.
func (s *StatusComponent) Submit(ctx context.Context, id string) (StatusState, error) {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	if s.state.Pending() {
		st := s.state
		s.mu.Unlock()
		return st, ErrInFlight
	}
	if id == "" {
		// A cleared field stays cleared; nothing is fetched
		s.state.Input = ""
		s.state.Default = ""
		st := s.state
		s.mu.Unlock()
		return st, nil
	}
	s.state = StatusState{Phase: PhaseSubmitting, Input: id, Default: s.state.Default}
	s.mu.Unlock()

	record, err := s.backend.GetReceipt(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		slog.Warn("Receipt lookup failed", "id", id, "error", err)
		s.state = StatusState{Phase: PhaseFailed, Input: id, Default: s.state.Default, Error: msgFetchFailed + err.Error()}
		return s.state, nil
	}
	s.state = StatusState{Phase: PhaseSuccess, Input: id, Default: s.state.Default, Record: record}
	return s.state, nil
}
