// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_prober

import (
	"context"
	"fmt"
	"testing"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	"github.com/rapidaai/songid/pkg/commons"
)

type stubDecoder struct {
	fail  bool
	calls int
}

func (d *stubDecoder) Decode(_ context.Context, blob internal_audio.Blob) (*internal_audio.Decoded, error) {
	d.calls++
	if d.fail {
		return nil, fmt.Errorf("unsupported codec")
	}
	return &internal_audio.Decoded{
		Samples:    [][]float64{{0, 0, 0}},
		SampleRate: 44100,
	}, nil
}

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Name("test-prober"), commons.Level("error"))
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

func TestCanDecodeWaveFastPath(t *testing.T) {
	decoder := &stubDecoder{fail: true}
	prober := NewFormatProber(newTestLogger(t), decoder)

	blob := internal_audio.Blob{Data: []byte{1, 2, 3}, MimeType: internal_audio.MimeWave}
	if !prober.CanDecode(context.Background(), blob) {
		t.Error("WAVE-typed blob must be trivially decodable")
	}
	if decoder.calls != 0 {
		t.Errorf("fast path must not touch the decoder, got %d calls", decoder.calls)
	}
}

func TestCanDecodeEmptyBuffer(t *testing.T) {
	decoder := &stubDecoder{}
	prober := NewFormatProber(newTestLogger(t), decoder)

	blob := internal_audio.Blob{Data: nil, MimeType: internal_audio.MimeWebm}
	if prober.CanDecode(context.Background(), blob) {
		t.Error("empty buffer must not be decodable")
	}
	if decoder.calls != 0 {
		t.Errorf("empty input must not touch the decoder, got %d calls", decoder.calls)
	}
}

func TestCanDecodeProbesOtherTypes(t *testing.T) {
	tests := []struct {
		name string
		fail bool
		want bool
	}{
		{"decodable", false, true},
		{"undecodable", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := &stubDecoder{fail: tt.fail}
			prober := NewFormatProber(newTestLogger(t), decoder)

			blob := internal_audio.Blob{Data: []byte{1, 2, 3}, MimeType: internal_audio.MimeWebmOpus}
			if got := prober.CanDecode(context.Background(), blob); got != tt.want {
				t.Errorf("expected %t, got %t", tt.want, got)
			}
			if decoder.calls != 1 {
				t.Errorf("expected exactly one probe decode, got %d", decoder.calls)
			}
		})
	}
}
