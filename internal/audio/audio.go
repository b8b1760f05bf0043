// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import "strings"

const (
	AudioBytesPerSample = 2  // LINEAR16 sample width in bytes
	AudioBitsPerSample  = 16 // LINEAR16 sample width in bits
	AudioPCMFormat      = 1  // WAV PCM format tag
)

// MIME types seen on captured segments.
const (
	MimeWave     = "audio/wav"
	MimeWebmOpus = "audio/webm;codecs=opus"
	MimeWebm     = "audio/webm"
	MimeOggOpus  = "audio/ogg;codecs=opus"
	MimeMp4      = "audio/mp4"
	MimeULaw     = "audio/basic" // G.711 µ-law
	MimeLinear16 = "audio/l16"   // raw interleaved s16le device frames
)

// IsWave reports whether the MIME type declares an uncompressed WAVE
// container. Matching is substring-based so parameterized types
// ("audio/wav;codecs=1") still qualify.
func IsWave(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	return strings.Contains(mt, "wav")
}

// AudioConfig describes the capture format for a session.
type AudioConfig struct {
	SampleRate uint32
	Channels   uint16
}

func (c AudioConfig) GetSampleRate() uint32 {
	if c.SampleRate == 0 {
		return DefaultAudioConfig.SampleRate
	}
	return c.SampleRate
}

func (c AudioConfig) GetChannels() uint16 {
	if c.Channels == 0 {
		return DefaultAudioConfig.Channels
	}
	return c.Channels
}

// DefaultAudioConfig is the capture format recognition expects: mono
// LINEAR16 at 44.1 kHz, no echo cancellation or gain control applied.
var DefaultAudioConfig = AudioConfig{
	SampleRate: 44100,
	Channels:   1,
}

// Blob is one opaque encoded audio buffer plus its declared MIME type.
// Segments, converted output and normalized output all travel as Blobs.
type Blob struct {
	Data     []byte
	MimeType string
}

func (b Blob) IsEmpty() bool { return len(b.Data) == 0 }

func (b Blob) IsWave() bool { return IsWave(b.MimeType) }

// Decoded is in-memory linear PCM: one float64 slice per channel, sample
// values nominally in [-1, 1]. It exists only inside a single processing
// call and is never shared across calls.
type Decoded struct {
	Samples    [][]float64
	SampleRate uint32
}

func (d *Decoded) Channels() uint16 { return uint16(len(d.Samples)) }

// Frames returns the per-channel sample count.
func (d *Decoded) Frames() int {
	if len(d.Samples) == 0 {
		return 0
	}
	return len(d.Samples[0])
}
