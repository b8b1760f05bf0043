// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capturer

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_type "github.com/rapidaai/songid/internal/type"
	"github.com/rapidaai/songid/pkg/commons"
	"github.com/rapidaai/songid/pkg/utils"
)

// levelLogInterval is how many device callbacks pass between input-level
// log lines.
const levelLogInterval = 200

// microphoneCapturer acquires the default capture device through miniaudio
// and emits raw interleaved s16le frames. The device is opened without echo
// cancellation, noise suppression or auto gain: recognition accuracy depends
// on the unmodified signal, not speech-call quality.
type microphoneCapturer struct {
	logger commons.Logger

	mu        sync.Mutex
	allocated *malgo.AllocatedContext
	device    *malgo.Device
	frames    chan []byte
	closeOnce sync.Once
	callbacks int
}

func NewMicrophoneCapturer(logger commons.Logger) internal_type.Capturer {
	return &microphoneCapturer{
		logger: logger,
		frames: make(chan []byte, 64),
	}
}

func (m *microphoneCapturer) Start(_ context.Context, cfg internal_audio.AudioConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allocated, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.logger.Debugf("capture-device: %s", message)
	})
	if err != nil {
		return fmt.Errorf("capture-device: context init: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.GetChannels())
	deviceConfig.SampleRate = cfg.GetSampleRate()
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			buf := make([]byte, len(input))
			copy(buf, input)
			select {
			case m.frames <- buf:
			default:
				// Consumer is behind; dropping one callback's worth of
				// audio beats blocking the device thread.
			}
			m.observeLevel(input)
		},
	}

	device, err := malgo.InitDevice(allocated.Context, deviceConfig, callbacks)
	if err != nil {
		_ = allocated.Uninit()
		allocated.Free()
		return fmt.Errorf("capture-device: device init: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = allocated.Uninit()
		allocated.Free()
		return fmt.Errorf("capture-device: device start: %w", err)
	}

	m.allocated = allocated
	m.device = device
	m.logger.Infof("capture-device: microphone open (rate=%d channels=%d)",
		cfg.GetSampleRate(), cfg.GetChannels())
	return nil
}

// observeLevel logs a coarse mean input level every levelLogInterval
// callbacks, enough to see a dead microphone in the logs.
func (m *microphoneCapturer) observeLevel(input []byte) {
	m.callbacks++
	if m.callbacks%levelLogInterval != 0 {
		return
	}
	levels := make([]float32, len(input)/internal_audio.AudioBytesPerSample)
	for i := range levels {
		v := int16(binary.LittleEndian.Uint16(input[i*2 : i*2+2]))
		levels[i] = float32(math.Abs(float64(v)) / 32768)
	}
	m.logger.Debugf("capture-device: input level %.4f", utils.AverageFloat32(levels))
}

func (m *microphoneCapturer) Frames() <-chan []byte { return m.frames }

func (m *microphoneCapturer) MimeType() string { return internal_audio.MimeLinear16 }

func (m *microphoneCapturer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	var err error
	if m.allocated != nil {
		err = m.allocated.Uninit()
		m.allocated.Free()
		m.allocated = nil
	}
	m.closeOnce.Do(func() { close(m.frames) })
	return err
}
