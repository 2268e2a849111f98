// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/lsm303_unified/internal/lsm303"
)

const (
	AppName           = "lsm303"
	DefaultConfigName = "config"
	EnvConfigFile     = "LSM303_CONFIG"

	TransportI2C       = "i2c"
	TransportBusPirate = "buspirate"
)

var userHomeDir, _ = os.UserHomeDir()

// DefaultConfigPath is where `init` writes the template.
var DefaultConfigPath = filepath.Join(userHomeDir, ".config", AppName, DefaultConfigName+".yaml")

var searchPaths = []string{
	filepath.Join(userHomeDir, ".config", AppName),
	"/etc/" + AppName,
	"./",
}

// Config holds all application configuration values.
type Config struct {
	// Bus
	I2CBus        string `mapstructure:"i2c_bus" yaml:"i2c_bus"`
	Transport     string `mapstructure:"transport" yaml:"transport"` // "i2c" or "buspirate"
	SerialPort    string `mapstructure:"serial_port" yaml:"serial_port"`
	SerialBaud    uint   `mapstructure:"serial_baud" yaml:"serial_baud"`
	ReadTimeoutMS int    `mapstructure:"read_timeout_ms" yaml:"read_timeout_ms"`

	// Accelerometer
	AccelSensorID   int32   `mapstructure:"accel_sensor_id" yaml:"accel_sensor_id"`
	AccelDataRateHz float64 `mapstructure:"accel_data_rate_hz" yaml:"accel_data_rate_hz"`

	// Magnetometer
	MagSensorID   int32   `mapstructure:"mag_sensor_id" yaml:"mag_sensor_id"`
	MagGainGauss  float64 `mapstructure:"mag_gain_gauss" yaml:"mag_gain_gauss"`
	MagDataRateHz float64 `mapstructure:"mag_data_rate_hz" yaml:"mag_data_rate_hz"`

	// Timing
	SampleIntervalMS int `mapstructure:"sample_interval_ms" yaml:"sample_interval_ms"`

	// MQTT
	MQTTBroker   string `mapstructure:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTClientID string `mapstructure:"mqtt_client_id" yaml:"mqtt_client_id"`
	TopicAccel   string `mapstructure:"topic_accel" yaml:"topic_accel"`
	TopicMag     string `mapstructure:"topic_mag" yaml:"topic_mag"`

	// Web Server
	WebServerPort int `mapstructure:"web_server_port" yaml:"web_server_port"`

	// Display
	DisplayI2CAddr          uint16 `mapstructure:"display_i2c_addr" yaml:"display_i2c_addr"`
	DisplayUpdateIntervalMS int    `mapstructure:"display_update_interval_ms" yaml:"display_update_interval_ms"`

	// Storage
	StoragePath string `mapstructure:"storage_path" yaml:"storage_path"`

	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// Defaults returns a Config with every key set to its default.
func Defaults() Config {
	return Config{
		I2CBus:                  "",
		Transport:               TransportI2C,
		SerialPort:              "/dev/ttyUSB0",
		SerialBaud:              115200,
		ReadTimeoutMS:           100,
		AccelSensorID:           54321,
		AccelDataRateHz:         100,
		MagSensorID:             12345,
		MagGainGauss:            1.3,
		MagDataRateHz:           15,
		SampleIntervalMS:        100,
		MQTTBroker:              "tcp://localhost:1883",
		MQTTClientID:            "lsm303-producer",
		TopicAccel:              "lsm303/accel",
		TopicMag:                "lsm303/mag",
		WebServerPort:           8080,
		DisplayI2CAddr:          0x3C,
		DisplayUpdateIntervalMS: 250,
		StoragePath:             "lsm303_events.db",
		Debug:                   false,
	}
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

func newViper() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("i2c_bus", d.I2CBus)
	v.SetDefault("transport", d.Transport)
	v.SetDefault("serial_port", d.SerialPort)
	v.SetDefault("serial_baud", d.SerialBaud)
	v.SetDefault("read_timeout_ms", d.ReadTimeoutMS)
	v.SetDefault("accel_sensor_id", d.AccelSensorID)
	v.SetDefault("accel_data_rate_hz", d.AccelDataRateHz)
	v.SetDefault("mag_sensor_id", d.MagSensorID)
	v.SetDefault("mag_gain_gauss", d.MagGainGauss)
	v.SetDefault("mag_data_rate_hz", d.MagDataRateHz)
	v.SetDefault("sample_interval_ms", d.SampleIntervalMS)
	v.SetDefault("mqtt_broker", d.MQTTBroker)
	v.SetDefault("mqtt_client_id", d.MQTTClientID)
	v.SetDefault("topic_accel", d.TopicAccel)
	v.SetDefault("topic_mag", d.TopicMag)
	v.SetDefault("web_server_port", d.WebServerPort)
	v.SetDefault("display_i2c_addr", d.DisplayI2CAddr)
	v.SetDefault("display_update_interval_ms", d.DisplayUpdateIntervalMS)
	v.SetDefault("storage_path", d.StoragePath)
	v.SetDefault("debug", d.Debug)

	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path, or from LSM303_CONFIG, or from the
// search paths. A missing file is not an error: defaults and environment
// variables still apply. Flags bound into v by the caller take precedence.
func Load(path string) (*Config, error) {
	return load(newViper(), path)
}

// LoadWith is Load on a caller-prepared viper instance (e.g. with bound flags).
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	return load(v, path)
}

// NewViper returns a viper instance carrying the defaults and env bindings.
func NewViper() *viper.Viper { return newViper() }

func load(v *viper.Viper, path string) (*Config, error) {
	explicit := true
	switch {
	case path != "":
		v.SetConfigFile(path)
	case os.Getenv(EnvConfigFile) != "":
		v.SetConfigFile(os.Getenv(EnvConfigFile))
	default:
		explicit = false
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debugf("config: no config file found, using defaults")
	} else {
		log.Debugf("config: using %s", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks required fields and enumerated values.
func (c *Config) validate() error {
	switch c.Transport {
	case TransportI2C:
	case TransportBusPirate:
		if c.SerialPort == "" {
			return fmt.Errorf("serial_port is required for transport %q", c.Transport)
		}
		if c.SerialBaud == 0 {
			return fmt.Errorf("serial_baud is required for transport %q", c.Transport)
		}
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportI2C, TransportBusPirate, c.Transport)
	}
	if _, err := lsm303.AccelDataRateFromHz(c.AccelDataRateHz); err != nil {
		return fmt.Errorf("accel_data_rate_hz: %w", err)
	}
	if _, err := lsm303.MagGainFromGauss(c.MagGainGauss); err != nil {
		return fmt.Errorf("mag_gain_gauss: %w", err)
	}
	if _, err := lsm303.MagDataRateFromHz(c.MagDataRateHz); err != nil {
		return fmt.Errorf("mag_data_rate_hz: %w", err)
	}
	if c.ReadTimeoutMS <= 0 {
		return fmt.Errorf("read_timeout_ms must be positive, got %d", c.ReadTimeoutMS)
	}
	if c.SampleIntervalMS <= 0 {
		return fmt.Errorf("sample_interval_ms must be positive, got %d", c.SampleIntervalMS)
	}
	if c.AccelSensorID == c.MagSensorID {
		return fmt.Errorf("accel_sensor_id and mag_sensor_id must differ, both are %d", c.AccelSensorID)
	}
	return nil
}

// ReadTimeout returns ReadTimeoutMS as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// SampleInterval returns SampleIntervalMS as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMS) * time.Millisecond
}

// AccelOpts builds channel options from the configuration.
func (c *Config) AccelOpts() (lsm303.AccelOpts, error) {
	rate, err := lsm303.AccelDataRateFromHz(c.AccelDataRateHz)
	if err != nil {
		return lsm303.AccelOpts{}, err
	}
	return lsm303.AccelOpts{SensorID: c.AccelSensorID, DataRate: rate}, nil
}

// MagOpts builds channel options from the configuration.
func (c *Config) MagOpts() (lsm303.MagOpts, error) {
	gain, err := lsm303.MagGainFromGauss(c.MagGainGauss)
	if err != nil {
		return lsm303.MagOpts{}, err
	}
	rate, err := lsm303.MagDataRateFromHz(c.MagDataRateHz)
	if err != nil {
		return lsm303.MagOpts{}, err
	}
	return lsm303.MagOpts{SensorID: c.MagSensorID, Gain: gain, DataRate: rate}, nil
}

// WriteTemplate dumps cfg as YAML to path. An existing file is only replaced
// when overwrite is set.
func WriteTemplate(cfg Config, path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s already exists", path)
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// InitGlobal loads the configuration once; later calls return the first result.
func InitGlobal(configPath string) error {
	return initGlobal(func() (*Config, error) { return Load(configPath) })
}

// InitGlobalWith is InitGlobal using a caller-prepared viper instance.
func InitGlobalWith(v *viper.Viper, configPath string) error {
	return initGlobal(func() (*Config, error) { return LoadWith(v, configPath) })
}

var initErr error

func initGlobal(load func() (*Config, error)) error {
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, initErr = load()
		if initErr == nil && globalConfig.Debug {
			log.SetLevel(log.DebugLevel)
		}
	})
	return initErr
}

// Get returns the global configuration. InitGlobal must be called first, or
// this returns nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
