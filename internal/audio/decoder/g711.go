// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_decoder

import (
	"encoding/binary"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	"github.com/zaf/g711"
)

// G.711 µ-law is always 8 kHz mono.
const ulawSampleRate = 8000

// decodeULaw expands µ-law bytes ("audio/basic") to linear PCM. Expansion is
// table-driven and cannot fail.
func decodeULaw(data []byte) *internal_audio.Decoded {
	lpcm := g711.DecodeUlaw(data)

	samples := make([]float64, len(lpcm)/internal_audio.AudioBytesPerSample)
	for i := range samples {
		raw := int16(binary.LittleEndian.Uint16(lpcm[i*2 : i*2+2]))
		samples[i] = int16ToFloat(raw)
	}

	return &internal_audio.Decoded{
		Samples:    [][]float64{samples},
		SampleRate: ulawSampleRate,
	}
}
