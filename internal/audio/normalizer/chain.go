// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_normalizer

import "math"

// Stage is one processing node in the offline render chain. Process receives
// one channel of samples and the sample rate and returns the processed
// channel; implementations keep no state across calls.
type Stage interface {
	Name() string
	Process(samples []float64, sampleRate uint32) []float64
}

type gainStage struct {
	multiplier float64
}

func (s gainStage) Name() string { return "gain" }

func (s gainStage) Process(samples []float64, _ uint32) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v * s.multiplier
	}
	return out
}

// shelfStage is a second-order (biquad) shelving filter. kind selects the
// low or high shelf variant; gainDB is the shelf gain at the extreme band.
type shelfStage struct {
	kind   string // "lowshelf" | "highshelf"
	freqHz float64
	gainDB float64
}

func (s shelfStage) Name() string { return s.kind }

func (s shelfStage) Process(samples []float64, sampleRate uint32) []float64 {
	b0, b1, b2, a1, a2 := s.coefficients(float64(sampleRate))

	out := make([]float64, len(samples))
	var x1, x2, y1, y2 float64
	for i, x := range samples {
		y := b0*x + b1*x1 + b2*x2 - a1*y1 - a2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		out[i] = y
	}
	return out
}

// coefficients derives normalized biquad coefficients from the audio-EQ
// cookbook shelf formulas with shelf slope S = 1.
func (s shelfStage) coefficients(sampleRate float64) (b0, b1, b2, a1, a2 float64) {
	amp := math.Pow(10, s.gainDB/40)
	w0 := 2 * math.Pi * s.freqHz / sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / 2 * math.Sqrt2
	beta := 2 * math.Sqrt(amp) * alpha

	var a0 float64
	if s.kind == "lowshelf" {
		b0 = amp * ((amp + 1) - (amp-1)*cosW0 + beta)
		b1 = 2 * amp * ((amp - 1) - (amp+1)*cosW0)
		b2 = amp * ((amp + 1) - (amp-1)*cosW0 - beta)
		a0 = (amp + 1) + (amp-1)*cosW0 + beta
		a1 = -2 * ((amp - 1) + (amp+1)*cosW0)
		a2 = (amp + 1) + (amp-1)*cosW0 - beta
	} else {
		b0 = amp * ((amp + 1) + (amp-1)*cosW0 + beta)
		b1 = -2 * amp * ((amp - 1) + (amp+1)*cosW0)
		b2 = amp * ((amp + 1) + (amp-1)*cosW0 - beta)
		a0 = (amp + 1) - (amp-1)*cosW0 + beta
		a1 = 2 * ((amp - 1) - (amp+1)*cosW0)
		a2 = (amp + 1) - (amp-1)*cosW0 - beta
	}

	return b0 / a0, b1 / a0, b2 / a0, a1 / a0, a2 / a0
}
