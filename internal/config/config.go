// Package config manages daemon configuration. Settings load from a
// file (JSON or YAML), can be overridden through TRAINLOG_ environment
// variables, and are immutable once the daemon starts.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/gpio"
)

// Config is the complete daemon configuration.
type Config struct {
	// PollIntervalMs is the sensor polling cadence in milliseconds.
	// Must divide 1000 evenly so whole ticks add up to one second.
	// Default: 250
	PollIntervalMs int64 `json:"poll_interval_ms,omitempty" yaml:"poll_interval_ms,omitempty"`

	// Debounce specifies the detection cooldown.
	Debounce DebounceConfig `json:"debounce,omitempty" yaml:"debounce,omitempty"`

	// Indicator specifies the heartbeat LED.
	Indicator IndicatorConfig `json:"indicator,omitempty" yaml:"indicator,omitempty"`

	// Sensor specifies the train detection input.
	Sensor SensorConfig `json:"sensor,omitempty" yaml:"sensor,omitempty"`

	// ReadOnlySwitch specifies the maintenance switch sampled at startup.
	ReadOnlySwitch SwitchConfig `json:"read_only_switch,omitempty" yaml:"read_only_switch,omitempty"`

	// Storage specifies the event log backend.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`

	// Diagnostics specifies the observational surfaces (HTTP, mDNS,
	// MQTT, journal). All are off by default.
	Diagnostics DiagnosticsConfig `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// DebounceConfig defines the cooldown applied after each detection.
type DebounceConfig struct {
	// CooldownTicks is the number of poll ticks after a pulse during
	// which further triggers are suppressed. Zero is a valid setting
	// (a held trigger pulses every other tick), which is why this is
	// a pointer: nil means "use the default".
	// Default: 120
	CooldownTicks *int `json:"cooldown_ticks,omitempty" yaml:"cooldown_ticks,omitempty"`
}

// IndicatorConfig defines the heartbeat LED.
type IndicatorConfig struct {
	// BlinkIntervalSeconds controls the normal-mode blink cadence:
	// the LED is lit during every second divisible by this value.
	// Default: 2
	BlinkIntervalSeconds int `json:"blink_interval_seconds,omitempty" yaml:"blink_interval_seconds,omitempty"`

	// Chip is the GPIO chip device name. Default: "gpiochip0"
	Chip string `json:"chip,omitempty" yaml:"chip,omitempty"`

	// Pin is the GPIO line driving the LED. Default: 22
	Pin int `json:"pin,omitempty" yaml:"pin,omitempty"`

	// Disabled runs the daemon without an LED.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// SensorConfig defines the train detection input.
type SensorConfig struct {
	// Chip is the GPIO chip device name. Default: "gpiochip0"
	Chip string `json:"chip,omitempty" yaml:"chip,omitempty"`

	// Pin is the GPIO line the sensor is wired to. Default: 17
	Pin int `json:"pin,omitempty" yaml:"pin,omitempty"`

	// ActiveLow inverts the reading for sensors that pull the line
	// low when a train is present.
	ActiveLow bool `json:"active_low,omitempty" yaml:"active_low,omitempty"`

	// Simulate replaces the GPIO sensor with a synthetic one.
	Simulate SimulateConfig `json:"simulate,omitempty" yaml:"simulate,omitempty"`
}

// SimulateConfig defines the synthetic sensor used for development
// off-device.
type SimulateConfig struct {
	// Enabled switches the daemon to the simulated sensor.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// PeriodTicks is the tick interval between simulated trains.
	// Default: 200
	PeriodTicks int `json:"period_ticks,omitempty" yaml:"period_ticks,omitempty"`

	// BurstTicks is how many ticks each simulated train occupies the
	// sensor. Default: 8
	BurstTicks int `json:"burst_ticks,omitempty" yaml:"burst_ticks,omitempty"`
}

// SwitchConfig defines the read-only maintenance switch.
type SwitchConfig struct {
	// Chip is the GPIO chip device name. Default: "gpiochip0"
	Chip string `json:"chip,omitempty" yaml:"chip,omitempty"`

	// Pin is the GPIO line the switch is wired to. Default: 27
	Pin int `json:"pin,omitempty" yaml:"pin,omitempty"`

	// Force latches read-only mode without sampling the switch.
	Force bool `json:"force,omitempty" yaml:"force,omitempty"`
}

// StorageConfig defines the event log backend.
type StorageConfig struct {
	// Backend selects the storage implementation:
	// "file" (default), "i2c" (AT24-style EEPROM), or "memory"
	// (volatile, for development).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Path is the backing file for the file backend.
	// Default: "/var/lib/train-logger/events.dat"
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// CapacityBytes is the size of the storage region. For the file
	// backend this only applies when creating a new file; an existing
	// file's size wins. Default: 1024
	CapacityBytes int `json:"capacity_bytes,omitempty" yaml:"capacity_bytes,omitempty"`

	// Durability controls write flushing for the file backend:
	// "always" (sync every write, default) or "os" (let the OS
	// decide).
	Durability string `json:"durability,omitempty" yaml:"durability,omitempty"`

	// Offsets places the header fields inside the region.
	Offsets OffsetsConfig `json:"offsets,omitempty" yaml:"offsets,omitempty"`

	// I2C configures the EEPROM backend.
	I2C I2CConfig `json:"i2c,omitempty" yaml:"i2c,omitempty"`
}

// OffsetsConfig places the persistent header fields.
type OffsetsConfig struct {
	// SecondsCounter is the byte offset of the seconds counter.
	// Default: 0
	SecondsCounter int `json:"seconds_counter" yaml:"seconds_counter"`

	// EventIndex is the byte offset of the event index pointer.
	// Default: 4
	EventIndex int `json:"event_index,omitempty" yaml:"event_index,omitempty"`
}

// I2CConfig configures the EEPROM backend.
type I2CConfig struct {
	// Bus is the I2C bus name ("1", "/dev/i2c-1"). Empty selects the
	// first available bus.
	Bus string `json:"bus,omitempty" yaml:"bus,omitempty"`

	// Address is the 7-bit device address. Default: 0x50
	Address uint16 `json:"address,omitempty" yaml:"address,omitempty"`
}

// DiagnosticsConfig defines the observational surfaces.
type DiagnosticsConfig struct {
	// HTTPAddr is the status server listen address (":8080").
	// Empty disables the server.
	HTTPAddr string `json:"http_addr,omitempty" yaml:"http_addr,omitempty"`

	// MDNS announces the status server via mDNS. Requires HTTPAddr.
	MDNS bool `json:"mdns,omitempty" yaml:"mdns,omitempty"`

	// JournalPath is the CBOR diagnostic journal file. Empty disables
	// journaling.
	JournalPath string `json:"journal_path,omitempty" yaml:"journal_path,omitempty"`

	// MQTT configures the broker mirror. Empty broker disables it.
	MQTT MQTTConfig `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
}

// MQTTConfig configures the MQTT mirror.
type MQTTConfig struct {
	// Broker is the broker URL ("tcp://host:1883"). Empty disables
	// the mirror.
	Broker string `json:"broker,omitempty" yaml:"broker,omitempty"`

	// ClientID overrides the MQTT client id. Empty uses
	// "train-logger".
	ClientID string `json:"client_id,omitempty" yaml:"client_id,omitempty"`

	// TopicPrefix overrides the topic prefix. Empty uses
	// "trackside/train-logger".
	TopicPrefix string `json:"topic_prefix,omitempty" yaml:"topic_prefix,omitempty"`
}

// Backend names accepted by StorageConfig.Backend.
const (
	BackendFile   = "file"
	BackendI2C    = "i2c"
	BackendMemory = "memory"
)

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load reads the configuration file (JSON or YAML by extension),
// applies TRAINLOG_ environment overrides and defaults, and validates
// the result. An empty path yields the defaults plus environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".json":
			cfg, err = LoadJSON(data)
		case ".yaml", ".yml":
			cfg, err = LoadYAML(data)
		default:
			return nil, fmt.Errorf("unsupported config file extension: %s", ext)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadJSON parses configuration from JSON bytes.
func LoadJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadYAML parses configuration from YAML bytes.
func LoadYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides settings from TRAINLOG_ environment variables.
func (c *Config) applyEnv() {
	if v, ok := getEnvInt64("TRAINLOG_POLL_INTERVAL_MS"); ok {
		c.PollIntervalMs = v
	}
	if v, ok := getEnvInt("TRAINLOG_COOLDOWN_TICKS"); ok {
		c.Debounce.CooldownTicks = &v
	}
	if v, ok := getEnvInt("TRAINLOG_BLINK_INTERVAL_SECONDS"); ok {
		c.Indicator.BlinkIntervalSeconds = v
	}

	if v, ok := getEnvString("TRAINLOG_SENSOR_CHIP"); ok {
		c.Sensor.Chip = v
	}
	if v, ok := getEnvInt("TRAINLOG_SENSOR_PIN"); ok {
		c.Sensor.Pin = v
	}
	if v, ok := getEnvBool("TRAINLOG_SENSOR_ACTIVE_LOW"); ok {
		c.Sensor.ActiveLow = v
	}
	if v, ok := getEnvBool("TRAINLOG_SENSOR_SIMULATE"); ok {
		c.Sensor.Simulate.Enabled = v
	}

	if v, ok := getEnvInt("TRAINLOG_SWITCH_PIN"); ok {
		c.ReadOnlySwitch.Pin = v
	}
	if v, ok := getEnvBool("TRAINLOG_FORCE_READ_ONLY"); ok {
		c.ReadOnlySwitch.Force = v
	}

	if v, ok := getEnvString("TRAINLOG_STORAGE_BACKEND"); ok {
		c.Storage.Backend = v
	}
	if v, ok := getEnvString("TRAINLOG_STORAGE_PATH"); ok {
		c.Storage.Path = v
	}
	if v, ok := getEnvInt("TRAINLOG_STORAGE_CAPACITY"); ok {
		c.Storage.CapacityBytes = v
	}
	if v, ok := getEnvString("TRAINLOG_STORAGE_DURABILITY"); ok {
		c.Storage.Durability = v
	}
	if v, ok := getEnvString("TRAINLOG_I2C_BUS"); ok {
		c.Storage.I2C.Bus = v
	}
	if v, ok := getEnvUint16("TRAINLOG_I2C_ADDRESS"); ok {
		c.Storage.I2C.Address = v
	}

	if v, ok := getEnvString("TRAINLOG_HTTP_ADDR"); ok {
		c.Diagnostics.HTTPAddr = v
	}
	if v, ok := getEnvBool("TRAINLOG_MDNS"); ok {
		c.Diagnostics.MDNS = v
	}
	if v, ok := getEnvString("TRAINLOG_JOURNAL_PATH"); ok {
		c.Diagnostics.JournalPath = v
	}
	if v, ok := getEnvString("TRAINLOG_MQTT_BROKER"); ok {
		c.Diagnostics.MQTT.Broker = v
	}
	if v, ok := getEnvString("TRAINLOG_MQTT_CLIENT_ID"); ok {
		c.Diagnostics.MQTT.ClientID = v
	}
	if v, ok := getEnvString("TRAINLOG_MQTT_TOPIC_PREFIX"); ok {
		c.Diagnostics.MQTT.TopicPrefix = v
	}
}

// SetDefaults fills unspecified fields with defaults.
func (c *Config) SetDefaults() {
	if c.PollIntervalMs == 0 {
		c.PollIntervalMs = 250
	}
	if c.Debounce.CooldownTicks == nil {
		ticks := 120
		c.Debounce.CooldownTicks = &ticks
	}

	if c.Indicator.BlinkIntervalSeconds == 0 {
		c.Indicator.BlinkIntervalSeconds = 2
	}
	if c.Indicator.Chip == "" {
		c.Indicator.Chip = gpio.DefaultChip
	}
	if c.Indicator.Pin == 0 {
		c.Indicator.Pin = gpio.PinLED
	}

	if c.Sensor.Chip == "" {
		c.Sensor.Chip = gpio.DefaultChip
	}
	if c.Sensor.Pin == 0 {
		c.Sensor.Pin = gpio.PinTrigger
	}
	if c.Sensor.Simulate.PeriodTicks == 0 {
		c.Sensor.Simulate.PeriodTicks = 200
	}
	if c.Sensor.Simulate.BurstTicks == 0 {
		c.Sensor.Simulate.BurstTicks = 8
	}

	if c.ReadOnlySwitch.Chip == "" {
		c.ReadOnlySwitch.Chip = gpio.DefaultChip
	}
	if c.ReadOnlySwitch.Pin == 0 {
		c.ReadOnlySwitch.Pin = gpio.PinReadOnly
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/train-logger/events.dat"
	}
	if c.Storage.CapacityBytes == 0 {
		c.Storage.CapacityBytes = 1024
	}
	if c.Storage.Durability == "" {
		c.Storage.Durability = "always"
	}
	if c.Storage.Offsets.EventIndex == 0 {
		c.Storage.Offsets.EventIndex = c.Storage.Offsets.SecondsCounter + eventlog.RecordSize
	}
	if c.Storage.I2C.Address == 0 {
		c.Storage.I2C.Address = 0x50
	}
}

// TickerInterval returns the poll cadence as a time.Duration.
func (c *Config) TickerInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// TicksPerSecond returns how many poll ticks add up to one engine
// second. Validate guarantees the division is exact.
func (c *Config) TicksPerSecond() int {
	return int(1000 / c.PollIntervalMs)
}

// Cooldown returns the debounce window length in ticks.
func (c *Config) Cooldown() int {
	if c.Debounce.CooldownTicks == nil {
		return 120
	}
	return *c.Debounce.CooldownTicks
}

// Layout returns the storage header layout.
func (c *Config) Layout() eventlog.Layout {
	return eventlog.Layout{
		CounterAddress: c.Storage.Offsets.SecondsCounter,
		IndexAddress:   c.Storage.Offsets.EventIndex,
	}
}

func getEnvString(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(val), true
}

func getEnvInt(key string) (int, bool) {
	val, ok := getEnvString(key)
	if !ok || val == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func getEnvInt64(key string) (int64, bool) {
	val, ok := getEnvString(key)
	if !ok || val == "" {
		return 0, false
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func getEnvUint16(key string) (uint16, bool) {
	val, ok := getEnvString(key)
	if !ok || val == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(val, 0, 16)
	if err != nil {
		return 0, false
	}
	return uint16(parsed), true
}

func getEnvBool(key string) (bool, bool) {
	val, ok := getEnvString(key)
	if !ok || val == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return parsed, true
}
