// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Sensor sources understood by SENSOR_SOURCE.
const (
	SourceMock    = "mock"
	SourceMPU9250 = "mpu9250"
	SourceSerial  = "serial"
	SourceMQTT    = "mqtt"
	SourceReplay  = "replay"
)

// EnvPrefix prefixes environment overrides, e.g. FEEDME_MQTT_BROKER.
const EnvPrefix = "FEEDME"

// Config holds all application configuration values.
type Config struct {
	// MQTT (empty broker disables publishing)
	MQTTBroker          string
	MQTTClientIDDetect  string
	MQTTClientIDProduce string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicSamples string
	TopicEvents  string
	TopicStatus  string

	// Sensor source
	SensorSource string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	IMUCalibrate  bool

	// Serial lid board
	SerialPort     string
	SerialBaudRate int

	// Replay
	ReplayFile string
	ReplayLoop bool

	// Mock
	MockSwingSeconds int

	// Detector
	SamplingPeriodMicros int
	OpenThresholdDeg     float64
	CloseThresholdDeg    float64
	ResetOnStart         bool

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Logging
	LogLevel string
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu guards globalConfig for concurrent readers.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		MQTTClientIDDetect:  "feedme-detector",
		MQTTClientIDProduce: "feedme-producer",
		MQTTClientIDConsole: "feedme-console",
		MQTTClientIDWeb:     "feedme-web",
		MQTTClientIDDisplay: "feedme-display",

		TopicSamples: "feedme/sensor/rotation",
		TopicEvents:  "feedme/lid/event",
		TopicStatus:  "feedme/lid/status",

		SensorSource: SourceMock,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		SerialBaudRate: 9600,

		MockSwingSeconds: 10,

		SamplingPeriodMicros: 500000,
		OpenThresholdDeg:     80,
		CloseThresholdDeg:    10,
		ResetOnStart:         true,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		DisplayI2CBus:         "",
		DisplayUpdateInterval: 500,

		LogLevel: "info",
	}
}

// Load reads a KEY=VALUE configuration file. Blank lines and # comments
// are allowed. FEEDME_<KEY> environment variables override file values.
func Load(configPath string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return fromViper(v)
}

// LoadEnv builds a configuration from defaults and FEEDME_* environment
// variables only.
func LoadEnv() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// BindEnv makes AllKeys report keys that only exist in the environment.
	for _, key := range knownKeys {
		if err := v.BindEnv(strings.ToLower(key)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	for _, key := range v.AllKeys() {
		if !v.IsSet(key) {
			continue
		}
		if err := cfg.setValue(strings.ToUpper(key), strings.TrimSpace(v.GetString(key))); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var knownKeys = []string{
	"MQTT_BROKER", "MQTT_CLIENT_ID_DETECT", "MQTT_CLIENT_ID_PRODUCE", "MQTT_CLIENT_ID_CONSOLE",
	"MQTT_CLIENT_ID_WEB", "MQTT_CLIENT_ID_DISPLAY",
	"TOPIC_SAMPLES", "TOPIC_EVENTS", "TOPIC_STATUS",
	"SENSOR_SOURCE",
	"IMU_SPI_DEVICE", "IMU_CS_PIN", "IMU_ACCEL_RANGE", "IMU_CALIBRATE",
	"SERIAL_PORT", "SERIAL_BAUD_RATE",
	"REPLAY_FILE", "REPLAY_LOOP",
	"MOCK_SWING_SECONDS",
	"SAMPLING_PERIOD_US", "OPEN_THRESHOLD_DEG", "CLOSE_THRESHOLD_DEG", "RESET_ON_START",
	"WEB_SERVER_PORT", "WEB_STATIC_DIR",
	"DISPLAY_I2C_BUS", "DISPLAY_UPDATE_INTERVAL",
	"LOG_LEVEL",
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_DETECT":
		c.MQTTClientIDDetect = value
	case "MQTT_CLIENT_ID_PRODUCE":
		c.MQTTClientIDProduce = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_EVENTS":
		c.TopicEvents = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Sensor source
	case "SENSOR_SOURCE":
		c.SensorSource = strings.ToLower(value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_CALIBRATE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_CALIBRATE %q: %w", value, err)
		}
		c.IMUCalibrate = b

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", rate)
		}
		c.SerialBaudRate = rate

	// Replay
	case "REPLAY_FILE":
		c.ReplayFile = value
	case "REPLAY_LOOP":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REPLAY_LOOP %q: %w", value, err)
		}
		c.ReplayLoop = b

	// Mock
	case "MOCK_SWING_SECONDS":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_SWING_SECONDS %q: %w", value, err)
		}
		c.MockSwingSeconds = secs

	// Detector
	case "SAMPLING_PERIOD_US":
		us, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLING_PERIOD_US %q: %w", value, err)
		}
		c.SamplingPeriodMicros = us
	case "OPEN_THRESHOLD_DEG":
		deg, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid OPEN_THRESHOLD_DEG %q: %w", value, err)
		}
		c.OpenThresholdDeg = deg
	case "CLOSE_THRESHOLD_DEG":
		deg, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CLOSE_THRESHOLD_DEG %q: %w", value, err)
		}
		c.CloseThresholdDeg = deg
	case "RESET_ON_START":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RESET_ON_START %q: %w", value, err)
		}
		c.ResetOnStart = b

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks ranges and the fields the selected source needs.
func (c *Config) validate() error {
	if c.SamplingPeriodMicros <= 0 {
		return fmt.Errorf("SAMPLING_PERIOD_US must be positive, got %d", c.SamplingPeriodMicros)
	}
	if c.OpenThresholdDeg <= c.CloseThresholdDeg {
		return fmt.Errorf("OPEN_THRESHOLD_DEG (%.1f) must be above CLOSE_THRESHOLD_DEG (%.1f)", c.OpenThresholdDeg, c.CloseThresholdDeg)
	}
	if c.OpenThresholdDeg > 90 || c.CloseThresholdDeg < -90 {
		return fmt.Errorf("thresholds must lie within [-90, 90]")
	}

	switch c.SensorSource {
	case SourceMock:
		if c.MockSwingSeconds <= 0 {
			return fmt.Errorf("MOCK_SWING_SECONDS must be positive, got %d", c.MockSwingSeconds)
		}
	case SourceMPU9250:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
	case SourceMQTT:
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
		if c.TopicSamples == "" {
			return fmt.Errorf("TOPIC_SAMPLES is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
	default:
		return fmt.Errorf("unknown SENSOR_SOURCE %q (want mock, mpu9250, serial, mqtt or replay)", c.SensorSource)
	}

	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT out of range: %d", c.WebServerPort)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// SamplingPeriod is SAMPLING_PERIOD_US as a duration.
func (c *Config) SamplingPeriod() time.Duration {
	return time.Duration(c.SamplingPeriodMicros) * time.Microsecond
}

// InitGlobal initializes the global configuration from file, or from the
// environment alone when configPath is empty. Only the first call has an
// effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if configPath == "" {
			globalConfig, err = LoadEnv()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
