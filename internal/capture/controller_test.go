// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_converter "github.com/rapidaai/songid/internal/audio/converter"
	internal_decoder "github.com/rapidaai/songid/internal/audio/decoder"
	internal_normalizer "github.com/rapidaai/songid/internal/audio/normalizer"
	internal_prober "github.com/rapidaai/songid/internal/audio/prober"
	internal_recognizer "github.com/rapidaai/songid/internal/recognizer"
	internal_session "github.com/rapidaai/songid/internal/session"
	internal_type "github.com/rapidaai/songid/internal/type"
	recognition_client "github.com/rapidaai/songid/pkg/clients/recognition"
	"github.com/rapidaai/songid/pkg/commons"
)

type scriptedCapturer struct {
	mimeType string
	startErr error
	frames   chan []byte

	mu      sync.Mutex
	stopped bool
}

func newScriptedCapturer(mimeType string) *scriptedCapturer {
	return &scriptedCapturer{
		mimeType: mimeType,
		frames:   make(chan []byte, 64),
	}
}

func (s *scriptedCapturer) Start(_ context.Context, _ internal_audio.AudioConfig) error {
	return s.startErr
}

func (s *scriptedCapturer) Frames() <-chan []byte { return s.frames }

func (s *scriptedCapturer) MimeType() string { return s.mimeType }

// Stop records the release without closing the frame channel; tests that
// exercise source exhaustion close it themselves.
func (s *scriptedCapturer) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func (s *scriptedCapturer) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Name("test-capture"), commons.Level("error"))
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

func newTestController(t *testing.T, capturer internal_type.Capturer, handler http.HandlerFunc, options Options) *Controller {
	t.Helper()
	logger := newTestLogger(t)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := recognition_client.NewRecognitionServiceClientHTTP(logger, server.URL, "test-key", 5*time.Second)

	decoder := internal_decoder.NewPlatformDecoder(logger)
	return NewController(
		logger,
		capturer,
		internal_prober.NewFormatProber(logger, decoder),
		internal_converter.NewFormatConverter(logger, decoder),
		internal_normalizer.NewVolumeNormalizer(logger, decoder),
		func(state *internal_session.State) internal_type.Submitter {
			return internal_recognizer.NewRecognitionSubmitter(logger, client, state, options.Mode)
		},
		options,
	)
}

func fastOptions(mode string) Options {
	return Options{
		Mode:            mode,
		SegmentInterval: 25 * time.Millisecond,
		SessionTimeout:  250 * time.Millisecond,
		Audio:           internal_audio.DefaultAudioConfig,
	}
}

// Scenario: WAVE segments reach the endpoint, the endpoint keeps answering
// "no content", and the session times out without latching.
func TestListenNoMatchTimesOut(t *testing.T) {
	var requests atomic.Int32
	var sawWave atomic.Bool

	capturer := newScriptedCapturer(internal_audio.MimeLinear16)
	controller := newTestController(t, capturer, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Content-Type") == internal_audio.MimeWave {
			sawWave.Store(true)
		}
		w.WriteHeader(http.StatusNoContent)
	}, fastOptions(ModeMusic))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			select {
			case capturer.frames <- make([]byte, 1600):
			default:
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	result, err := controller.Listen(context.Background())
	<-done
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	if result.Reason != internal_session.ReasonTimedOut {
		t.Errorf("expected timed-out, got %q", result.Reason)
	}
	if result.Track != nil {
		t.Error("no track may be reported without a match")
	}
	if requests.Load() == 0 {
		t.Fatal("expected at least one recognition attempt")
	}
	if !sawWave.Load() {
		t.Error("LINEAR16 segments must arrive at the endpoint as WAVE")
	}
	if !capturer.wasStopped() {
		t.Error("source must be released on timeout")
	}
}

// Scenario: an undecodable webm capture falls back to raw-byte wrapping and
// the endpoint matches it; the session latches and stops.
func TestListenMatchStopsSession(t *testing.T) {
	capturer := newScriptedCapturer(internal_audio.MimeWebm)
	controller := newTestController(t, capturer, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"X","artists":["A"],"album":"B","externalId":"abc"}`)
	}, Options{
		Mode:            ModeMusic,
		SegmentInterval: 25 * time.Millisecond,
		// Generous: the undecodable-blob path may probe external decoders
		// and must never lose the race against the countdown here.
		SessionTimeout: 10 * time.Second,
		Audio:          internal_audio.DefaultAudioConfig,
	})

	capturer.frames <- []byte("definitely not audio")

	result, err := controller.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	if result.Reason != internal_session.ReasonMatched {
		t.Fatalf("expected matched, got %q", result.Reason)
	}
	if result.Track == nil || result.Track.Title != "X" || result.Track.ExternalID != "abc" {
		t.Errorf("unexpected track: %+v", result.Track)
	}
	if !capturer.wasStopped() {
		t.Error("source must be released on match")
	}
	if controller.Phase() != PhaseIdle {
		t.Errorf("controller must return to idle, got %q", controller.Phase())
	}
}

// Scenario: nothing is ever captured; the countdown fires with no attempts.
func TestListenTimeoutWithoutSegments(t *testing.T) {
	var requests atomic.Int32
	capturer := newScriptedCapturer(internal_audio.MimeLinear16)
	controller := newTestController(t, capturer, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}, fastOptions(ModeMusic))

	result, err := controller.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	if result.Reason != internal_session.ReasonTimedOut {
		t.Errorf("expected timed-out, got %q", result.Reason)
	}
	if requests.Load() != 0 {
		t.Errorf("no attempts expected, got %d", requests.Load())
	}
}

func TestListenSourceAcquisitionFailureIsFatal(t *testing.T) {
	capturer := newScriptedCapturer(internal_audio.MimeLinear16)
	capturer.startErr = fmt.Errorf("device busy")
	controller := newTestController(t, capturer, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request may be made when capture never starts")
	}, fastOptions(ModeMusic))

	if _, err := controller.Listen(context.Background()); err == nil {
		t.Fatal("expected fatal error")
	}
	if controller.Phase() != PhaseFailed {
		t.Errorf("expected failed phase, got %q", controller.Phase())
	}
}

// Scenario: the source closes after one frame (file input); the buffered
// segment is flushed immediately and the session ends when its attempt
// resolves without a match.
func TestListenSourceExhaustion(t *testing.T) {
	var requests atomic.Int32
	capturer := newScriptedCapturer(internal_audio.MimeWave)
	controller := newTestController(t, capturer, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}, Options{
		Mode:            ModeMusic,
		SegmentInterval: 25 * time.Millisecond,
		SessionTimeout:  10 * time.Second,
		Audio:           internal_audio.DefaultAudioConfig,
	})

	capturer.frames <- []byte("wave-typed capture bytes")
	close(capturer.frames)

	start := time.Now()
	result, err := controller.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	if result.Reason != internal_session.ReasonTimedOut {
		t.Errorf("expected timed-out, got %q", result.Reason)
	}
	if requests.Load() != 1 {
		t.Errorf("expected exactly one attempt, got %d", requests.Load())
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("exhausted source must not wait for the countdown, took %s", elapsed)
	}
}

// Scenario: a slow endpoint holds one attempt in flight while the ticker keeps
// dispatching; the overlapping segments resolve as skipped. Every outcome must
// reach the session loop, or the pending count never drains and the exhausted
// source would hang until the countdown.
func TestListenDrainsOverlappingAttempts(t *testing.T) {
	var requests atomic.Int32
	capturer := newScriptedCapturer(internal_audio.MimeWave)
	controller := newTestController(t, capturer, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}, Options{
		Mode:            ModeMusic,
		SegmentInterval: 25 * time.Millisecond,
		SessionTimeout:  10 * time.Second,
		Audio:           internal_audio.DefaultAudioConfig,
	})

	go func() {
		for i := 0; i < 8; i++ {
			select {
			case capturer.frames <- []byte("wave-typed capture bytes"):
			default:
			}
			time.Sleep(20 * time.Millisecond)
		}
		close(capturer.frames)
	}()

	start := time.Now()
	result, err := controller.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	if result.Reason != internal_session.ReasonTimedOut {
		t.Errorf("expected timed-out, got %q", result.Reason)
	}
	if requests.Load() == 0 {
		t.Fatal("expected at least one recognition attempt")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("exhausted source must not wait for the countdown, took %s", elapsed)
	}
}

// A cancelled context is a manual stop, not a timeout.
func TestListenManualStop(t *testing.T) {
	capturer := newScriptedCapturer(internal_audio.MimeLinear16)
	controller := newTestController(t, capturer, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, Options{
		Mode:            ModeMusic,
		SegmentInterval: 25 * time.Millisecond,
		SessionTimeout:  10 * time.Second,
		Audio:           internal_audio.DefaultAudioConfig,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := controller.Listen(ctx)
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	if result.Reason != internal_session.ReasonStopped {
		t.Errorf("expected stopped, got %q", result.Reason)
	}
	if !capturer.wasStopped() {
		t.Error("source must be released on manual stop")
	}
}
