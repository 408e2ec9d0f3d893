package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/gpio"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(250), cfg.PollIntervalMs)
	assert.Equal(t, 120, cfg.Cooldown())
	assert.Equal(t, 2, cfg.Indicator.BlinkIntervalSeconds)
	assert.Equal(t, gpio.DefaultChip, cfg.Sensor.Chip)
	assert.Equal(t, gpio.PinTrigger, cfg.Sensor.Pin)
	assert.Equal(t, gpio.PinReadOnly, cfg.ReadOnlySwitch.Pin)
	assert.Equal(t, gpio.PinLED, cfg.Indicator.Pin)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/train-logger/events.dat", cfg.Storage.Path)
	assert.Equal(t, 1024, cfg.Storage.CapacityBytes)
	assert.Equal(t, "always", cfg.Storage.Durability)
	assert.Equal(t, 0, cfg.Storage.Offsets.SecondsCounter)
	assert.Equal(t, 4, cfg.Storage.Offsets.EventIndex)
	assert.Equal(t, uint16(0x50), cfg.Storage.I2C.Address)
	assert.Empty(t, cfg.Diagnostics.HTTPAddr)
	assert.Empty(t, cfg.Diagnostics.MQTT.Broker)
	assert.Empty(t, cfg.Diagnostics.JournalPath)

	require.NoError(t, cfg.Validate())
}

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfigFile(t, "train-logger.yaml", `
poll_interval_ms: 125
debounce:
  cooldown_ticks: 40
sensor:
  pin: 5
  active_low: true
storage:
  backend: memory
  capacity_bytes: 64
diagnostics:
  http_addr: ":9090"
  mqtt:
    broker: tcp://broker.local:1883
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(125), cfg.PollIntervalMs)
	assert.Equal(t, 40, cfg.Cooldown())
	assert.Equal(t, 5, cfg.Sensor.Pin)
	assert.True(t, cfg.Sensor.ActiveLow)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 64, cfg.Storage.CapacityBytes)
	assert.Equal(t, ":9090", cfg.Diagnostics.HTTPAddr)
	assert.Equal(t, "tcp://broker.local:1883", cfg.Diagnostics.MQTT.Broker)

	// Unspecified fields still pick up defaults.
	assert.Equal(t, 2, cfg.Indicator.BlinkIntervalSeconds)
	assert.Equal(t, 4, cfg.Storage.Offsets.EventIndex)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfigFile(t, "train-logger.json", `{
  "poll_interval_ms": 500,
  "storage": {
    "backend": "file",
    "path": "/tmp/events.dat",
    "durability": "os"
  }
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(500), cfg.PollIntervalMs)
	assert.Equal(t, "/tmp/events.dat", cfg.Storage.Path)
	assert.Equal(t, "os", cfg.Storage.Durability)
	assert.Equal(t, 120, cfg.Cooldown())
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeConfigFile(t, "train-logger.toml", "poll_interval_ms = 250\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file extension")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "bad.yaml", "poll_interval_ms: [not a number\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestCooldownZeroFromFile(t *testing.T) {
	// Zero is a deliberate setting, not an absent one. It must survive
	// the defaulting pass.
	path := writeConfigFile(t, "zero.yaml", `
debounce:
  cooldown_ticks: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Cooldown())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRAINLOG_POLL_INTERVAL_MS", "200")
	t.Setenv("TRAINLOG_COOLDOWN_TICKS", "0")
	t.Setenv("TRAINLOG_STORAGE_BACKEND", "memory")
	t.Setenv("TRAINLOG_FORCE_READ_ONLY", "true")
	t.Setenv("TRAINLOG_MQTT_BROKER", "tcp://10.0.0.2:1883")
	t.Setenv("TRAINLOG_I2C_ADDRESS", "0x57")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(200), cfg.PollIntervalMs)
	assert.Equal(t, 0, cfg.Cooldown())
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.True(t, cfg.ReadOnlySwitch.Force)
	assert.Equal(t, "tcp://10.0.0.2:1883", cfg.Diagnostics.MQTT.Broker)
	assert.Equal(t, uint16(0x57), cfg.Storage.I2C.Address)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "train-logger.yaml", "poll_interval_ms: 500\n")
	t.Setenv("TRAINLOG_POLL_INTERVAL_MS", "125")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(125), cfg.PollIntervalMs)
}

func TestEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TRAINLOG_POLL_INTERVAL_MS", "fast")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(250), cfg.PollIntervalMs)
}

func TestValidatePollInterval(t *testing.T) {
	cases := []struct {
		ms int64
		ok bool
	}{
		{125, true},
		{200, true},
		{250, true},
		{500, true},
		{1000, true},
		{-5, false},
		{300, false},
		{333, false},
		{1500, false},
	}

	for _, tc := range cases {
		cfg := Default()
		cfg.PollIntervalMs = tc.ms
		err := cfg.Validate()
		if tc.ok {
			assert.NoError(t, err, "poll_interval_ms=%d", tc.ms)
		} else {
			assert.Error(t, err, "poll_interval_ms=%d", tc.ms)
		}
	}
}

func TestValidateCooldownNegative(t *testing.T) {
	cfg := Default()
	ticks := -1
	cfg.Debounce.CooldownTicks = &ticks

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debounce.cooldown_ticks")
}

func TestValidateBlinkInterval(t *testing.T) {
	cfg := Default()
	cfg.Indicator.BlinkIntervalSeconds = -2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indicator.blink_interval_seconds")
}

func TestValidateBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "eeprom"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestValidateDurability(t *testing.T) {
	cfg := Default()
	cfg.Storage.Durability = "never"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.durability")
}

func TestValidateOffsets(t *testing.T) {
	cfg := Default()
	cfg.Storage.Offsets.SecondsCounter = 8
	cfg.Storage.Offsets.EventIndex = 8

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.offsets.event_index")
}

func TestValidateCapacityTooSmall(t *testing.T) {
	cfg := Default()
	cfg.Storage.CapacityBytes = 8

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.capacity_bytes")
}

func TestValidateSimulateBurst(t *testing.T) {
	cfg := Default()
	cfg.Sensor.Simulate.PeriodTicks = 10
	cfg.Sensor.Simulate.BurstTicks = 20

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sensor.simulate.burst_ticks")
}

func TestValidateI2CAddress(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = BackendI2C
	cfg.Storage.I2C.Address = 0x02

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.i2c.address")

	// The same address is fine when the backend does not use I2C.
	cfg.Storage.Backend = BackendMemory
	assert.NoError(t, cfg.Validate())
}

func TestValidateMDNSRequiresHTTP(t *testing.T) {
	cfg := Default()
	cfg.Diagnostics.MDNS = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diagnostics.mdns")

	cfg.Diagnostics.HTTPAddr = ":8080"
	assert.NoError(t, cfg.Validate())
}

func TestTicksPerSecond(t *testing.T) {
	cases := map[int64]int{125: 8, 200: 5, 250: 4, 500: 2, 1000: 1}
	for ms, want := range cases {
		cfg := Default()
		cfg.PollIntervalMs = ms
		assert.Equal(t, want, cfg.TicksPerSecond(), "poll_interval_ms=%d", ms)
	}
}

func TestTickerInterval(t *testing.T) {
	cfg := Default()
	cfg.PollIntervalMs = 125
	assert.Equal(t, "125ms", cfg.TickerInterval().String())
}

func TestLayout(t *testing.T) {
	cfg := Default()
	assert.Equal(t, eventlog.DefaultLayout(), cfg.Layout())

	cfg.Storage.Offsets.SecondsCounter = 16
	cfg.Storage.Offsets.EventIndex = 20
	layout := cfg.Layout()
	assert.Equal(t, 16, layout.CounterAddress)
	assert.Equal(t, 20, layout.IndexAddress)
}
