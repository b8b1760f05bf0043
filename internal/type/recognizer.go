// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"context"

	internal_audio "github.com/rapidaai/songid/internal/audio"
)

// Track is the identity of a recognized song.
type Track struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
	// ExternalID is the stable identifier used for downstream lookups.
	// A match without one is still a match, just not linkable.
	ExternalID string `json:"externalId,omitempty"`
}

// Degraded reports whether the track was identified without a stable
// external identifier.
func (t *Track) Degraded() bool { return t.ExternalID == "" }

type OutcomeKind int

const (
	// OutcomeNoMatchYet means the request was valid but nothing matched;
	// the session keeps listening.
	OutcomeNoMatchYet OutcomeKind = iota
	// OutcomeMatched carries a track identity and latches the session.
	OutcomeMatched
	// OutcomeFailed is a hard error for this attempt only.
	OutcomeFailed
	// OutcomeSkipped means no request was made: an attempt was already in
	// flight or a match had already latched.
	OutcomeSkipped
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoMatchYet:
		return "no-match-yet"
	case OutcomeMatched:
		return "matched"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of one recognition attempt.
type Outcome struct {
	Kind  OutcomeKind
	Track *Track // set only when Kind == OutcomeMatched
	Err   error  // set only when Kind == OutcomeFailed
}

// Submitter posts one processed blob to the recognition endpoint and drives
// the session's continue/stop decision. Implementations enforce single-flight
// and never submit after a match has latched.
type Submitter interface {
	Submit(ctx context.Context, blob internal_audio.Blob) Outcome
}
