// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_prober

import (
	"context"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_decoder "github.com/rapidaai/songid/internal/audio/decoder"
	"github.com/rapidaai/songid/pkg/commons"
)

// Prober answers one question: can this blob be decoded here. It is a pure
// query; failure is always a false result, never an error.
type Prober interface {
	CanDecode(ctx context.Context, blob internal_audio.Blob) bool
}

type formatProber struct {
	logger  commons.Logger
	decoder internal_decoder.Decoder
}

func NewFormatProber(logger commons.Logger, decoder internal_decoder.Decoder) Prober {
	return &formatProber{
		logger:  logger,
		decoder: decoder,
	}
}

func (p *formatProber) CanDecode(ctx context.Context, blob internal_audio.Blob) bool {
	if blob.IsEmpty() {
		return false
	}
	// WAVE-typed blobs are trivially decodable, skip the probe decode.
	if blob.IsWave() {
		return true
	}

	if _, err := p.decoder.Decode(ctx, blob); err != nil {
		p.logger.Debugf("prober: %q not decodable: %v", blob.MimeType, err)
		return false
	}
	return true
}
