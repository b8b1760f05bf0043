// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_decoder

import (
	"bytes"
	"fmt"
	"io"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	opus "gopkg.in/hraban/opus.v2"
)

// opusSampleRate is fixed by the codec: libopus always renders at 48 kHz.
const opusSampleRate = 48000

// decodeOggOpus decodes an Ogg/Opus blob to mono linear PCM. Voice capture
// produces mono opus streams; the stream is read as a single channel.
func decodeOggOpus(data []byte) (*internal_audio.Decoded, error) {
	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoder: opus stream open: %w", err)
	}
	defer stream.Close()

	buf := make([]int16, 16384)
	samples := make([]float64, 0, len(data))
	for {
		n, err := stream.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoder: opus read: %w", err)
		}
		for _, v := range buf[:n] {
			samples = append(samples, int16ToFloat(v))
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("decoder: opus stream produced no samples")
	}

	return &internal_audio.Decoded{
		Samples:    [][]float64{samples},
		SampleRate: opusSampleRate,
	}, nil
}

func int16ToFloat(v int16) float64 {
	if v < 0 {
		return float64(v) / 32768
	}
	return float64(v) / 32767
}
