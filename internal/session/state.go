// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	internal_type "github.com/rapidaai/songid/internal/type"
)

// Reason records how a session ended.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonMatched  Reason = "matched"
	ReasonTimedOut Reason = "timed-out"
	ReasonStopped  Reason = "stopped"
	ReasonFailed   Reason = "failed"
)

// State is the only mutable state shared between concurrent segment
// pipelines. The matched latch is one-way: once set it can never clear
// within the session, and every pipeline re-checks it immediately before
// submitting. inFlight enforces single-flight on the recognition endpoint.
type State struct {
	id       string
	matched  atomic.Bool
	inFlight atomic.Bool

	mu     sync.Mutex
	track  *internal_type.Track
	reason Reason
}

func NewState() *State {
	return &State{id: uuid.NewString()}
}

func (s *State) ID() string { return s.id }

// Latch records the matched track. Only the first caller wins; later calls
// are no-ops and return false. The flag flips before the track is stored,
// which is safe because Track is only read after Latched() is observed true
// by the same goroutine that stops the session.
func (s *State) Latch(track *internal_type.Track) bool {
	if !s.matched.CompareAndSwap(false, true) {
		return false
	}
	s.mu.Lock()
	s.track = track
	s.reason = ReasonMatched
	s.mu.Unlock()
	return true
}

func (s *State) Latched() bool { return s.matched.Load() }

func (s *State) Track() *internal_type.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// BeginAttempt claims the single submission slot. It refuses when a match
// has already latched or another attempt is outstanding.
func (s *State) BeginAttempt() bool {
	if s.matched.Load() {
		return false
	}
	return s.inFlight.CompareAndSwap(false, true)
}

func (s *State) EndAttempt() {
	s.inFlight.Store(false)
}

// Finish records a terminal reason. A latched match always wins over any
// later reason.
func (s *State) Finish(reason Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == ReasonMatched {
		return
	}
	s.reason = reason
}

func (s *State) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
