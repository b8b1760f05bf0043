// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	// Recognition endpoint contract.
	RecognitionHost   string `mapstructure:"recognition_host" validate:"required"`
	RecognitionAPIKey string `mapstructure:"recognition_api_key"`
	RequestTimeoutMs  int    `mapstructure:"request_timeout_ms" validate:"gt=0"`

	// Capture options.
	Mode              string `mapstructure:"mode" validate:"oneof=music humming"`
	SegmentIntervalMs int    `mapstructure:"segment_interval_ms" validate:"gt=0"`
	SessionTimeoutMs  int    `mapstructure:"session_timeout_ms" validate:"gt=0"`
	SampleRate        uint32 `mapstructure:"sample_rate" validate:"gt=0"`
	Channels          uint16 `mapstructure:"channels" validate:"gt=0"`
}

func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c *AppConfig) SegmentInterval() time.Duration {
	return time.Duration(c.SegmentIntervalMs) * time.Millisecond
}

func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMs) * time.Millisecond
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	v.SetDefault("SERVICE_NAME", "songid")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")

	v.SetDefault("RECOGNITION_HOST", "")
	v.SetDefault("RECOGNITION_API_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT_MS", 15000)

	v.SetDefault("MODE", "music")
	v.SetDefault("SEGMENT_INTERVAL_MS", 10000)
	v.SetDefault("SESSION_TIMEOUT_MS", 30000)
	v.SetDefault("SAMPLE_RATE", 44100)
	v.SetDefault("CHANNELS", 1)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
