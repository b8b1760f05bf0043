// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_converter

import (
	"context"
	"fmt"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_decoder "github.com/rapidaai/songid/internal/audio/decoder"
	internal_wave "github.com/rapidaai/songid/internal/audio/wave"
	"github.com/rapidaai/songid/pkg/commons"
)

// Converter produces a transmittable WAVE blob from an arbitrary capture.
type Converter interface {
	Convert(ctx context.Context, blob internal_audio.Blob) (internal_audio.Blob, error)
}

type formatConverter struct {
	logger  commons.Logger
	decoder internal_decoder.Decoder
}

func NewFormatConverter(logger commons.Logger, decoder internal_decoder.Decoder) Converter {
	return &formatConverter{
		logger:  logger,
		decoder: decoder,
	}
}

// Convert applies a three-tier policy:
//
//  1. WAVE input is returned unchanged.
//  2. Otherwise decode and re-encode, the true conversion path.
//  3. If decoding is impossible but bytes exist, wrap the raw bytes in a
//     minimal WAVE header with assumed parameters. This mislabels the
//     payload as PCM and is degraded quality, not a transcode; recognition
//     backends tolerate imperfect audio far better than a missing request.
//
// Only an empty buffer is an error; the caller then keeps the original blob.
func (c *formatConverter) Convert(ctx context.Context, blob internal_audio.Blob) (internal_audio.Blob, error) {
	if blob.IsWave() {
		return blob, nil
	}
	if blob.IsEmpty() {
		return internal_audio.Blob{}, fmt.Errorf("converter: empty audio buffer")
	}

	decoded, err := c.decoder.Decode(ctx, blob)
	if err == nil {
		return internal_audio.Blob{
			Data:     internal_wave.Encode(decoded),
			MimeType: internal_audio.MimeWave,
		}, nil
	}

	c.logger.Warnf("converter: decode failed for %q, wrapping raw bytes as WAVE (degraded): %v",
		blob.MimeType, err)
	return internal_audio.Blob{
		Data:     internal_wave.WrapRaw(blob.Data),
		MimeType: internal_audio.MimeWave,
	}, nil
}
