// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_decoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	"github.com/rapidaai/songid/pkg/commons"
)

// ffmpegDecoder shells out to ffmpeg to decode container formats that have
// no in-process codec (webm, mp4, mp3, ...). The subprocess reads the blob
// on stdin and writes raw s16le mono at the session sample rate on stdout.
// A missing ffmpeg binary is just a decode failure; callers already degrade
// on those.
type ffmpegDecoder struct {
	logger commons.Logger
	binary string
}

func newFFmpegDecoder(logger commons.Logger) *ffmpegDecoder {
	return &ffmpegDecoder{
		logger: logger,
		binary: "ffmpeg",
	}
}

func (d *ffmpegDecoder) Decode(ctx context.Context, blob internal_audio.Blob) (*internal_audio.Decoded, error) {
	sampleRate := internal_audio.DefaultAudioConfig.SampleRate

	cmd := exec.CommandContext(ctx, d.binary,
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", "1",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(blob.Data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("decoder: ffmpeg failed for %q: %v, output: %s",
			blob.MimeType, err, stderr.String())
	}

	raw := stdout.Bytes()
	if len(raw) < internal_audio.AudioBytesPerSample {
		return nil, fmt.Errorf("decoder: ffmpeg produced no samples for %q", blob.MimeType)
	}

	samples := make([]float64, len(raw)/internal_audio.AudioBytesPerSample)
	for i := range samples {
		samples[i] = int16ToFloat(int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2])))
	}

	return &internal_audio.Decoded{
		Samples:    [][]float64{samples},
		SampleRate: sampleRate,
	}, nil
}
