package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relabs-tech/lsm303_unified/internal/lsm303"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
transport: i2c
i2c_bus: "1"
accel_data_rate_hz: 400
mag_gain_gauss: 4.7
mag_data_rate_hz: 75
mqtt_broker: tcp://broker:1883
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.I2CBus != "1" || cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if cfg.SampleIntervalMS != 100 || cfg.TopicMag != "lsm303/mag" {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	mo, err := cfg.MagOpts()
	if err != nil {
		t.Fatalf("MagOpts: %v", err)
	}
	if mo.Gain != lsm303.MagGain4_7 || mo.DataRate != lsm303.MagRate75Hz {
		t.Errorf("MagOpts = %+v", mo)
	}
	ao, err := cfg.AccelOpts()
	if err != nil {
		t.Fatalf("AccelOpts: %v", err)
	}
	if ao.DataRate != lsm303.AccelRate400Hz || ao.SensorID != 54321 {
		t.Errorf("AccelOpts = %+v", ao)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"gain", "mag_gain_gauss: 3.3\n", "mag_gain_gauss"},
		{"accel rate", "accel_data_rate_hz: 42\n", "accel_data_rate_hz"},
		{"mag rate", "mag_data_rate_hz: 60\n", "mag_data_rate_hz"},
		{"transport", "transport: spi\n", "transport"},
		{"timeout", "read_timeout_ms: 0\n", "read_timeout_ms"},
		{"ids", "accel_sensor_id: 7\nmag_sensor_id: 7\n", "must differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LSM303_MAG_GAIN_GAUSS", "8.1")
	cfg, err := Load(writeConfig(t, "mag_gain_gauss: 1.3\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MagGainGauss != 8.1 {
		t.Errorf("MagGainGauss = %g, want 8.1 from environment", cfg.MagGainGauss)
	}
}

func TestWriteTemplateReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	d := Defaults()
	d.Transport = TransportBusPirate
	if err := WriteTemplate(d, path, false); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if err := WriteTemplate(d, path, false); err == nil {
		t.Fatal("expected refusal to overwrite without flag")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load template: %v", err)
	}
	if cfg.Transport != TransportBusPirate || cfg.SerialBaud != 115200 {
		t.Errorf("template reload = %+v", cfg)
	}
}
