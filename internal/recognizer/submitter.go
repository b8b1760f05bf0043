// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recognizer

import (
	"context"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_session "github.com/rapidaai/songid/internal/session"
	internal_type "github.com/rapidaai/songid/internal/type"
	recognition_client "github.com/rapidaai/songid/pkg/clients/recognition"
	"github.com/rapidaai/songid/pkg/commons"
	"github.com/rapidaai/songid/pkg/utils"
)

type recognitionSubmitter struct {
	logger commons.Logger
	client recognition_client.RecognitionServiceClient
	state  *internal_session.State
	mode   string
}

// NewRecognitionSubmitter wires the endpoint client to the session state.
// The submitter is the only writer of the match latch.
func NewRecognitionSubmitter(
	logger commons.Logger,
	client recognition_client.RecognitionServiceClient,
	state *internal_session.State,
	mode string,
) internal_type.Submitter {
	return &recognitionSubmitter{
		logger: logger,
		client: client,
		state:  state,
		mode:   mode,
	}
}

func (s *recognitionSubmitter) Submit(ctx context.Context, blob internal_audio.Blob) internal_type.Outcome {
	// Single-flight: an outstanding attempt or a latched match means this
	// segment is dropped without touching the network. Segment-timer overlap
	// must never flood the backend or double-count a match.
	if !s.state.BeginAttempt() {
		s.logger.Debugf("recognize: submission skipped (in flight or latched), session=%s", s.state.ID())
		return internal_type.Outcome{Kind: internal_type.OutcomeSkipped}
	}
	defer s.state.EndAttempt()

	resp, err := s.client.Recognize(ctx, s.mode, blob)
	if err != nil {
		// A failure arriving after a match has latched is swallowed; it must
		// never overwrite a success.
		if s.state.Latched() {
			s.logger.Debugf("recognize: failure after latch discarded, session=%s: %v", s.state.ID(), err)
			return internal_type.Outcome{Kind: internal_type.OutcomeSkipped}
		}
		s.logger.Errorf("recognize: attempt failed, session=%s: %v", s.state.ID(), err)
		return internal_type.Outcome{Kind: internal_type.OutcomeFailed, Err: err}
	}

	if resp.NoContent {
		s.logger.Infof("recognize: no match yet, session=%s", s.state.ID())
		return internal_type.Outcome{Kind: internal_type.OutcomeNoMatchYet}
	}

	track := utils.Ptr(internal_type.Track{
		Title:      resp.Title,
		Artists:    resp.Artists,
		Album:      resp.Album,
		ExternalID: resp.ExternalID,
	})
	// Latch before anything else can suspend this goroutine; concurrent
	// segment callbacks check the latch and must observe it immediately.
	if !s.state.Latch(track) {
		return internal_type.Outcome{Kind: internal_type.OutcomeSkipped}
	}
	if track.Degraded() {
		s.logger.Warnf("recognize: matched %q without external id, session=%s", track.Title, s.state.ID())
	} else {
		s.logger.Infof("recognize: matched %q (%s), session=%s", track.Title, track.ExternalID, s.state.ID())
	}
	return internal_type.Outcome{Kind: internal_type.OutcomeMatched, Track: track}
}
