// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capturer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_type "github.com/rapidaai/songid/internal/type"
	"github.com/rapidaai/songid/pkg/commons"
)

// fileCapturer feeds one already-recorded capture through the same segment
// pipeline as live audio. It delivers the file's bytes as a single frame and
// closes, so the controller flushes an immediate segment.
type fileCapturer struct {
	logger commons.Logger
	path   string

	mu       sync.Mutex
	mimeType string
	frames   chan []byte
}

func NewFileCapturer(logger commons.Logger, path string) internal_type.Capturer {
	return &fileCapturer{
		logger: logger,
		path:   path,
		frames: make(chan []byte, 1),
	}
}

func (f *fileCapturer) Start(_ context.Context, _ internal_audio.AudioConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("capture-file: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("capture-file: %s is empty", f.path)
	}

	f.mimeType = mimeFromExtension(f.path)
	f.logger.Infof("capture-file: %s (%d bytes, %s)", f.path, len(data), f.mimeType)

	f.frames <- data
	close(f.frames)
	return nil
}

func (f *fileCapturer) Frames() <-chan []byte { return f.frames }

func (f *fileCapturer) MimeType() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mimeType
}

func (f *fileCapturer) Stop() error { return nil }

func mimeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return internal_audio.MimeWave
	case ".webm":
		return internal_audio.MimeWebm
	case ".ogg", ".oga", ".opus":
		return internal_audio.MimeOggOpus
	case ".mp4", ".m4a", ".aac":
		return internal_audio.MimeMp4
	case ".ul", ".ulaw", ".au":
		return internal_audio.MimeULaw
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
