// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_decoder

import (
	"context"
	"fmt"
	"strings"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_wave "github.com/rapidaai/songid/internal/audio/wave"
	"github.com/rapidaai/songid/pkg/commons"
)

// Decoder turns an encoded audio blob into linear PCM. Implementations are
// safe for concurrent use; each call is self-contained and releases whatever
// it opened before returning.
type Decoder interface {
	Decode(ctx context.Context, blob internal_audio.Blob) (*internal_audio.Decoded, error)
}

type platformDecoder struct {
	logger commons.Logger
	ffmpeg *ffmpegDecoder
}

// NewPlatformDecoder builds the default decoder. WAVE is parsed in-process,
// Ogg/Opus through libopus, µ-law through the G.711 codec, and everything
// else (webm, mp4, mp3, ...) through an ffmpeg subprocess, which is how
// arbitrary container formats are decoded outside a browser.
func NewPlatformDecoder(logger commons.Logger) Decoder {
	return &platformDecoder{
		logger: logger,
		ffmpeg: newFFmpegDecoder(logger),
	}
}

func (d *platformDecoder) Decode(ctx context.Context, blob internal_audio.Blob) (*internal_audio.Decoded, error) {
	if blob.IsEmpty() {
		return nil, fmt.Errorf("decoder: empty audio buffer")
	}

	switch {
	case blob.IsWave():
		return internal_wave.Decode(blob.Data)
	case strings.HasPrefix(strings.ToLower(blob.MimeType), internal_audio.MimeOggOpus),
		strings.HasPrefix(strings.ToLower(blob.MimeType), "audio/ogg"):
		decoded, err := decodeOggOpus(blob.Data)
		if err != nil {
			// Not every ogg blob carries opus; hand it to ffmpeg.
			d.logger.Debugf("decoder: opus decode failed (%v), retrying with ffmpeg", err)
			return d.ffmpeg.Decode(ctx, blob)
		}
		return decoded, nil
	case strings.EqualFold(blob.MimeType, internal_audio.MimeULaw):
		return decodeULaw(blob.Data), nil
	default:
		return d.ffmpeg.Decode(ctx, blob)
	}
}
