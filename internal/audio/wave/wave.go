// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_wave

import (
	"bytes"
	"encoding/binary"
	"fmt"

	internal_audio "github.com/rapidaai/songid/internal/audio"
)

// HeaderSize is the fixed RIFF/WAVE header length produced by this package.
const HeaderSize = 44

// Encode renders decoded PCM into a self-contained uncompressed WAVE byte
// layout: 44-byte header followed by interleaved 16-bit signed little-endian
// samples. The function is deterministic and has no failure modes for a
// well-formed input; it is the single source of truth for container layout.
func Encode(decoded *internal_audio.Decoded) []byte {
	channels := int(decoded.Channels())
	frames := decoded.Frames()

	pcm := make([]byte, 0, frames*channels*internal_audio.AudioBytesPerSample)
	scratch := make([]byte, internal_audio.AudioBytesPerSample)
	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(scratch, uint16(sampleToInt16(decoded.Samples[ch][frame])))
			pcm = append(pcm, scratch...)
		}
	}

	return writeContainer(pcm, decoded.SampleRate, uint16(channels))
}

// EncodePCM16 wraps already-interleaved s16le device frames in a WAVE
// container without touching the samples.
func EncodePCM16(pcm []byte, cfg internal_audio.AudioConfig) []byte {
	return writeContainer(pcm, cfg.GetSampleRate(), cfg.GetChannels())
}

// WrapRaw places raw, un-decoded bytes behind a minimal WAVE header with
// assumed parameters (mono, 44.1 kHz, 16-bit). This does not transcode
// anything: the payload is mislabeled as PCM. Output is degraded quality by
// construction and exists only so an undecodable capture still yields a
// transmittable blob.
func WrapRaw(raw []byte) []byte {
	return writeContainer(raw,
		internal_audio.DefaultAudioConfig.SampleRate,
		internal_audio.DefaultAudioConfig.Channels)
}

func writeContainer(pcmData []byte, sampleRate uint32, channels uint16) []byte {
	var buf bytes.Buffer
	byteRate := sampleRate * uint32(channels) * internal_audio.AudioBytesPerSample
	blockAlign := channels * internal_audio.AudioBytesPerSample

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcmData)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(internal_audio.AudioPCMFormat))
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(internal_audio.AudioBitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcmData)))
	buf.Write(pcmData)

	return buf.Bytes()
}

// sampleToInt16 clamps to [-1, 1] and scales. Positive and negative halves
// use separate factors (32767 / 32768) so -1.0 maps to math.MinInt16 without
// wrapping.
func sampleToInt16(sample float64) int16 {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	if sample < 0 {
		return int16(sample * 32768)
	}
	return int16(sample * 32767)
}

// Decode parses a WAVE blob produced by this package (or any plain PCM
// 16-bit RIFF file) back into per-channel float64 samples.
func Decode(data []byte) (*internal_audio.Decoded, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("wave: buffer too short for header: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wave: missing RIFF/WAVE magic")
	}

	format := binary.LittleEndian.Uint16(data[20:22])
	if format != internal_audio.AudioPCMFormat {
		return nil, fmt.Errorf("wave: unsupported format tag %d", format)
	}
	channels := int(binary.LittleEndian.Uint16(data[22:24]))
	if channels < 1 {
		return nil, fmt.Errorf("wave: illegal channel count %d", channels)
	}
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(data[34:36])
	if bitsPerSample != internal_audio.AudioBitsPerSample {
		return nil, fmt.Errorf("wave: unsupported bit depth %d", bitsPerSample)
	}

	pcm := data[HeaderSize:]
	if declared := binary.LittleEndian.Uint32(data[40:44]); int(declared) < len(pcm) {
		pcm = pcm[:declared]
	}

	frameSize := channels * internal_audio.AudioBytesPerSample
	frames := len(pcm) / frameSize

	samples := make([][]float64, channels)
	for ch := range samples {
		samples[ch] = make([]float64, frames)
	}
	for frame := 0; frame < frames; frame++ {
		base := frame * frameSize
		for ch := 0; ch < channels; ch++ {
			raw := int16(binary.LittleEndian.Uint16(pcm[base+ch*2 : base+ch*2+2]))
			samples[ch][frame] = int16ToSample(raw)
		}
	}

	return &internal_audio.Decoded{
		Samples:    samples,
		SampleRate: sampleRate,
	}, nil
}

func int16ToSample(v int16) float64 {
	if v < 0 {
		return float64(v) / 32768
	}
	return float64(v) / 32767
}
