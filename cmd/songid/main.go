// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/rapidaai/songid/config"
	internal_audio "github.com/rapidaai/songid/internal/audio"
	internal_converter "github.com/rapidaai/songid/internal/audio/converter"
	internal_decoder "github.com/rapidaai/songid/internal/audio/decoder"
	internal_normalizer "github.com/rapidaai/songid/internal/audio/normalizer"
	internal_prober "github.com/rapidaai/songid/internal/audio/prober"
	internal_capture "github.com/rapidaai/songid/internal/capture"
	internal_capturer "github.com/rapidaai/songid/internal/capturer"
	internal_recognizer "github.com/rapidaai/songid/internal/recognizer"
	internal_session "github.com/rapidaai/songid/internal/session"
	internal_type "github.com/rapidaai/songid/internal/type"
	recognition_client "github.com/rapidaai/songid/pkg/clients/recognition"
	"github.com/rapidaai/songid/pkg/commons"
	"github.com/rapidaai/songid/pkg/utils"
)

func main() {
	filePath := flag.String("file", "", "recognize a recorded audio file instead of the microphone")
	mode := flag.String("mode", "", "recognition mode: music or humming (overrides config)")
	flag.Parse()

	vConfig, err := config.InitConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	appConfig, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if !utils.IsEmpty(*mode) {
		appConfig.Mode = *mode
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(appConfig.Name),
		commons.Path(appConfig.LogPath),
		commons.Level(appConfig.LogLevel),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var capturer internal_type.Capturer
	if !utils.IsEmpty(*filePath) {
		capturer = internal_capturer.NewFileCapturer(logger, *filePath)
	} else {
		capturer = internal_capturer.NewMicrophoneCapturer(logger)
	}

	decoder := internal_decoder.NewPlatformDecoder(logger)
	client := recognition_client.NewRecognitionServiceClientHTTP(
		logger,
		appConfig.RecognitionHost,
		appConfig.RecognitionAPIKey,
		appConfig.RequestTimeout(),
	)

	controller := internal_capture.NewController(
		logger,
		capturer,
		internal_prober.NewFormatProber(logger, decoder),
		internal_converter.NewFormatConverter(logger, decoder),
		internal_normalizer.NewVolumeNormalizer(logger, decoder),
		func(state *internal_session.State) internal_type.Submitter {
			return internal_recognizer.NewRecognitionSubmitter(logger, client, state, appConfig.Mode)
		},
		internal_capture.Options{
			Mode:            appConfig.Mode,
			SegmentInterval: appConfig.SegmentInterval(),
			SessionTimeout:  appConfig.SessionTimeout(),
			Audio: internal_audio.AudioConfig{
				SampleRate: appConfig.SampleRate,
				Channels:   appConfig.Channels,
			},
		},
	)

	color.Cyan("Listening... (mode=%s, press Ctrl-C to stop)", appConfig.Mode)
	result, err := controller.Listen(ctx)
	if err != nil {
		color.Red("Could not start capture: %v", err)
		os.Exit(1)
	}

	switch result.Reason {
	case internal_session.ReasonMatched:
		track := result.Track
		color.Green("Matched: %s by %s", track.Title, strings.Join(track.Artists, ", "))
		if track.Album != "" {
			fmt.Printf("Album: %s\n", track.Album)
		}
		if track.Degraded() {
			color.Yellow("(no external id available for this match)")
		} else {
			fmt.Printf("ID: %s\n", track.ExternalID)
		}
	case internal_session.ReasonTimedOut:
		color.Yellow("No match found. Move closer to the audio source and try again.")
	case internal_session.ReasonStopped:
		color.Yellow("Stopped.")
	default:
		color.Red("Session ended: %s", result.Reason)
	}
}
