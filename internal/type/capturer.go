// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"context"

	internal_audio "github.com/rapidaai/songid/internal/audio"
)

// Capturer is the audio source for a session. Start acquires the device
// exclusively and is the only fatal failure point of a session. Frames
// delivers encoded byte chunks as they arrive; the channel closes when the
// source is exhausted or stopped.
type Capturer interface {
	Start(ctx context.Context, cfg internal_audio.AudioConfig) error
	Frames() <-chan []byte
	// MimeType declares the encoding of delivered frames. Raw LINEAR16
	// device frames report MimeLinear16; file sources report their
	// container type.
	MimeType() string
	Stop() error
}
