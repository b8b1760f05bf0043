// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_converter "github.com/rapidaai/songid/internal/audio/converter"
	internal_normalizer "github.com/rapidaai/songid/internal/audio/normalizer"
	internal_prober "github.com/rapidaai/songid/internal/audio/prober"
	internal_wave "github.com/rapidaai/songid/internal/audio/wave"
	internal_session "github.com/rapidaai/songid/internal/session"
	internal_type "github.com/rapidaai/songid/internal/type"
	"github.com/rapidaai/songid/pkg/commons"
	"github.com/rapidaai/songid/pkg/utils"
)

const (
	ModeMusic   = "music"
	ModeHumming = "humming"

	DefaultSegmentInterval = 10 * time.Second
	DefaultSessionTimeout  = 30 * time.Second
)

// Phase is the controller's externally visible state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRecording Phase = "recording"
	PhaseMatched   Phase = "matched"
	PhaseFailed    Phase = "failed"
	PhaseTimedOut  Phase = "timed-out"
)

// Options configure one listening session.
type Options struct {
	// Mode selects the gain constant and whether the humming shelf filters
	// apply. Defaults to music.
	Mode string
	// SegmentInterval is the chunk cadence.
	SegmentInterval time.Duration
	// SessionTimeout bounds total listening time for the whole session,
	// not per segment.
	SessionTimeout time.Duration
	Audio          internal_audio.AudioConfig
}

func (o Options) segmentInterval() time.Duration {
	if o.SegmentInterval <= 0 {
		return DefaultSegmentInterval
	}
	return o.SegmentInterval
}

func (o Options) sessionTimeout() time.Duration {
	if o.SessionTimeout <= 0 {
		return DefaultSessionTimeout
	}
	return o.SessionTimeout
}

func (o Options) humming() bool { return o.Mode == ModeHumming }

func (o Options) gain() float64 {
	if o.humming() {
		return internal_normalizer.HummingGain
	}
	return internal_normalizer.MusicGain
}

// Result is what a finished session reports back to the caller.
type Result struct {
	SessionID string
	Reason    internal_session.Reason
	Track     *internal_type.Track
}

// SubmitterFactory binds a submitter to a freshly created session state.
type SubmitterFactory func(state *internal_session.State) internal_type.Submitter

// Controller owns the capture source and the segmented-recording timer and
// routes every segment through probing, normalization or conversion, and
// submission.
type Controller struct {
	logger       commons.Logger
	capturer     internal_type.Capturer
	prober       internal_prober.Prober
	converter    internal_converter.Converter
	normalizer   internal_normalizer.Normalizer
	newSubmitter SubmitterFactory
	options      Options

	mu    sync.Mutex
	phase Phase
}

func NewController(
	logger commons.Logger,
	capturer internal_type.Capturer,
	prober internal_prober.Prober,
	converter internal_converter.Converter,
	normalizer internal_normalizer.Normalizer,
	newSubmitter SubmitterFactory,
	options Options,
) *Controller {
	return &Controller{
		logger:       logger,
		capturer:     capturer,
		prober:       prober,
		converter:    converter,
		normalizer:   normalizer,
		newSubmitter: newSubmitter,
		options:      options,
		phase:        PhaseIdle,
	}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Listen runs one full session: acquire the source, emit a segment every
// interval, and stop on match, timeout, cancellation or source exhaustion.
// Source acquisition failure is the only fatal error; everything after that
// degrades per stage and the session keeps listening.
func (c *Controller) Listen(ctx context.Context) (*Result, error) {
	state := internal_session.NewState()
	submitter := c.newSubmitter(state)

	if err := c.capturer.Start(ctx, c.options.Audio); err != nil {
		c.setPhase(PhaseFailed)
		return nil, fmt.Errorf("capture: source acquisition failed: %w", err)
	}
	// Released on every terminal path, including panics below.
	defer func() {
		if err := c.capturer.Stop(); err != nil {
			c.logger.Warnf("capture: source release failed, session=%s: %v", state.ID(), err)
		}
		c.setPhase(PhaseIdle)
	}()

	c.setPhase(PhaseRecording)
	c.logger.Infof("capture: session %s recording (mode=%s interval=%s timeout=%s)",
		state.ID(), c.options.Mode, c.options.segmentInterval(), c.options.sessionTimeout())

	// The session-wide countdown. Cancelling it covers every legitimate
	// stop path, so it can never fire after the session has ended.
	sessionCtx, cancel := context.WithTimeout(ctx, c.options.sessionTimeout())
	defer cancel()

	ticker := time.NewTicker(c.options.segmentInterval())
	defer ticker.Stop()

	// Segment pipelines run concurrently and may finish out of order. Every
	// outcome must reach the loop while the session lives, or the pending
	// count drifts; done releases late completions after return instead.
	outcomes := make(chan internal_type.Outcome, 16)
	done := make(chan struct{})
	defer close(done)
	pending := 0

	var buf bytes.Buffer
	frames := c.capturer.Frames()
	drained := false

	dispatch := func() {
		segment := c.takeSegment(&buf)
		if segment.IsEmpty() {
			return
		}
		pending++
		// Pipelines deliberately get the caller's context, not the session
		// countdown: in-flight work is never force-cancelled, its result
		// just dies on the latch check.
		utils.Go(c.logger, "capture-segment", func() {
			outcome := c.processSegment(ctx, state, submitter, segment)
			select {
			case outcomes <- outcome:
			case <-done:
			}
		})
	}

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				// Source exhausted (file input or device stop): flush what
				// is buffered and stop producing new segments.
				frames = nil
				drained = true
				dispatch()
				if pending == 0 {
					return c.finish(state, internal_session.ReasonTimedOut,
						"capture: source exhausted without a match, session=%s")
				}
				continue
			}
			buf.Write(frame)

		case <-ticker.C:
			dispatch()

		case outcome := <-outcomes:
			pending--
			switch outcome.Kind {
			case internal_type.OutcomeMatched:
				c.setPhase(PhaseMatched)
				state.Finish(internal_session.ReasonMatched)
				return &Result{
					SessionID: state.ID(),
					Reason:    internal_session.ReasonMatched,
					Track:     outcome.Track,
				}, nil
			case internal_type.OutcomeFailed:
				// A single failed attempt is a backend hiccup, not a session
				// ender: keep listening until the countdown decides.
				c.logger.Warnf("capture: attempt failed, continuing session %s: %v",
					state.ID(), outcome.Err)
			}
			if drained && pending == 0 {
				return c.finish(state, internal_session.ReasonTimedOut,
					"capture: source exhausted without a match, session=%s")
			}

		case <-sessionCtx.Done():
			// A match that latched in the same instant the countdown fired
			// still wins.
			if state.Latched() {
				c.setPhase(PhaseMatched)
				state.Finish(internal_session.ReasonMatched)
				return &Result{
					SessionID: state.ID(),
					Reason:    internal_session.ReasonMatched,
					Track:     state.Track(),
				}, nil
			}
			if errors.Is(sessionCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				c.setPhase(PhaseTimedOut)
				return c.finish(state, internal_session.ReasonTimedOut,
					"capture: session %s timed out without a match")
			}
			return c.finish(state, internal_session.ReasonStopped,
				"capture: session %s stopped")
		}
	}
}

func (c *Controller) finish(state *internal_session.State, reason internal_session.Reason, logFormat string) (*Result, error) {
	state.Finish(reason)
	c.logger.Infof(logFormat, state.ID())
	if reason == internal_session.ReasonTimedOut {
		c.setPhase(PhaseTimedOut)
	}
	return &Result{
		SessionID: state.ID(),
		Reason:    reason,
		Track:     state.Track(),
	}, nil
}

// takeSegment drains the frame buffer into one AudioSegment blob. Raw
// LINEAR16 device frames are wrapped in a WAVE container with the true
// capture parameters; encoded sources pass through under their own type.
func (c *Controller) takeSegment(buf *bytes.Buffer) internal_audio.Blob {
	if buf.Len() == 0 {
		return internal_audio.Blob{}
	}
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	buf.Reset()

	mimeType := c.capturer.MimeType()
	if mimeType == internal_audio.MimeLinear16 {
		return internal_audio.Blob{
			Data:     internal_wave.EncodePCM16(data, c.options.Audio),
			MimeType: internal_audio.MimeWave,
		}
	}
	return internal_audio.Blob{Data: data, MimeType: mimeType}
}

// processSegment is one segment's pipeline. It never returns an error: every
// preprocessing stage falls back to passing its input onward, and only the
// submitter's outcome reaches the session loop.
func (c *Controller) processSegment(
	ctx context.Context,
	state *internal_session.State,
	submitter internal_type.Submitter,
	segment internal_audio.Blob,
) internal_type.Outcome {
	// A just-latched match can race with segment callbacks already in
	// flight; discarding here keeps those no-ops silent.
	if state.Latched() {
		c.logger.Debugf("capture: segment discarded after latch, session=%s", state.ID())
		return internal_type.Outcome{Kind: internal_type.OutcomeSkipped}
	}

	var processed internal_audio.Blob
	if c.prober.CanDecode(ctx, segment) {
		processed = c.normalizer.Normalize(ctx, segment, c.options.gain(), c.options.humming())
	} else {
		converted, err := c.converter.Convert(ctx, segment)
		if err != nil {
			// Even the raw-bytes fallback was impossible; transmit the
			// original capture untouched.
			c.logger.Warnf("capture: conversion impossible, submitting original blob, session=%s: %v",
				state.ID(), err)
			processed = segment
		} else {
			processed = converted
		}
	}

	return submitter.Submit(ctx, processed)
}
