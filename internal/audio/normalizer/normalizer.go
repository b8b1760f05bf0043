// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_normalizer

import (
	"context"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_decoder "github.com/rapidaai/songid/internal/audio/decoder"
	internal_wave "github.com/rapidaai/songid/internal/audio/wave"
	"github.com/rapidaai/songid/pkg/commons"
)

// Deterministic gain multipliers per recognition mode. Humming is quieter
// and spectrally narrower than recorded music, so it gets a stronger boost
// plus the shelving pair.
const (
	MusicGain   = 2.5
	HummingGain = 4.0

	lowShelfFreqHz  = 1000.0
	lowShelfGainDB  = 6.0 // boost hum fundamentals
	highShelfFreqHz = 3000.0
	highShelfGainDB = -3.0 // suppress high-frequency noise
)

// Normalizer boosts a captured blob to a level the recognition backend hears
// well, re-encoded as WAVE. It never fails: any processing problem returns
// the input blob unchanged.
type Normalizer interface {
	Normalize(ctx context.Context, blob internal_audio.Blob, gain float64, humming bool) internal_audio.Blob
}

type volumeNormalizer struct {
	logger  commons.Logger
	decoder internal_decoder.Decoder
}

func NewVolumeNormalizer(logger commons.Logger, decoder internal_decoder.Decoder) Normalizer {
	return &volumeNormalizer{
		logger:  logger,
		decoder: decoder,
	}
}

func (n *volumeNormalizer) Normalize(ctx context.Context, blob internal_audio.Blob, gain float64, humming bool) internal_audio.Blob {
	if blob.IsEmpty() {
		return blob
	}
	// WAVE captures are treated as already normalized and skip the boost.
	// TODO(product): confirm WAVE capture is loud enough without it.
	if blob.IsWave() {
		return blob
	}

	decoded, err := n.decoder.Decode(ctx, blob)
	if err != nil {
		n.logger.Warnf("normalizer: decode failed for %q, passing input through: %v",
			blob.MimeType, err)
		return blob
	}

	chain := BuildChain(gain, humming)
	for ch := range decoded.Samples {
		samples := decoded.Samples[ch]
		for _, stage := range chain {
			samples = stage.Process(samples, decoded.SampleRate)
		}
		decoded.Samples[ch] = samples
	}

	return internal_audio.Blob{
		Data:     internal_wave.Encode(decoded),
		MimeType: internal_audio.MimeWave,
	}
}

// BuildChain assembles the offline render chain: the gain stage first, then
// in humming mode the low-shelf and high-shelf adjustments in that order.
func BuildChain(gain float64, humming bool) []Stage {
	chain := []Stage{gainStage{multiplier: gain}}
	if humming {
		chain = append(chain,
			shelfStage{kind: "lowshelf", freqHz: lowShelfFreqHz, gainDB: lowShelfGainDB},
			shelfStage{kind: "highshelf", freqHz: highShelfFreqHz, gainDB: highShelfGainDB},
		)
	}
	return chain
}
