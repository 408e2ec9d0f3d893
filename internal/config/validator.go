package config

import (
	"fmt"

	"github.com/trackside/train-logger/internal/eventlog"
)

// Validate checks the configuration for consistency. It assumes
// SetDefaults has run.
func (c *Config) Validate() error {
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive (got %d)", c.PollIntervalMs)
	}
	if c.PollIntervalMs > 1000 {
		return fmt.Errorf("poll_interval_ms must be at most 1000 (got %d)", c.PollIntervalMs)
	}
	if 1000%c.PollIntervalMs != 0 {
		return fmt.Errorf("poll_interval_ms must divide 1000 evenly (got %d)", c.PollIntervalMs)
	}

	if c.Cooldown() < 0 {
		return fmt.Errorf("debounce.cooldown_ticks must not be negative (got %d)", c.Cooldown())
	}

	if c.Indicator.BlinkIntervalSeconds < 1 {
		return fmt.Errorf("indicator.blink_interval_seconds must be at least 1 (got %d)", c.Indicator.BlinkIntervalSeconds)
	}
	if c.Indicator.Pin < 0 {
		return fmt.Errorf("indicator.pin must not be negative (got %d)", c.Indicator.Pin)
	}

	if c.Sensor.Pin < 0 {
		return fmt.Errorf("sensor.pin must not be negative (got %d)", c.Sensor.Pin)
	}
	if c.Sensor.Simulate.PeriodTicks < 1 {
		return fmt.Errorf("sensor.simulate.period_ticks must be at least 1 (got %d)", c.Sensor.Simulate.PeriodTicks)
	}
	if c.Sensor.Simulate.BurstTicks < 1 {
		return fmt.Errorf("sensor.simulate.burst_ticks must be at least 1 (got %d)", c.Sensor.Simulate.BurstTicks)
	}
	if c.Sensor.Simulate.BurstTicks > c.Sensor.Simulate.PeriodTicks {
		return fmt.Errorf("sensor.simulate.burst_ticks must not exceed period_ticks (%d > %d)",
			c.Sensor.Simulate.BurstTicks, c.Sensor.Simulate.PeriodTicks)
	}

	if c.ReadOnlySwitch.Pin < 0 {
		return fmt.Errorf("read_only_switch.pin must not be negative (got %d)", c.ReadOnlySwitch.Pin)
	}

	switch c.Storage.Backend {
	case BackendFile, BackendI2C, BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be file, i2c, or memory (got %q)", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendFile && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the file backend")
	}
	switch c.Storage.Durability {
	case "always", "os":
	default:
		return fmt.Errorf("storage.durability must be always or os (got %q)", c.Storage.Durability)
	}

	counter := c.Storage.Offsets.SecondsCounter
	index := c.Storage.Offsets.EventIndex
	if counter < 0 {
		return fmt.Errorf("storage.offsets.seconds_counter must not be negative (got %d)", counter)
	}
	if index < counter+eventlog.RecordSize {
		return fmt.Errorf("storage.offsets.event_index must leave room for the seconds counter (got %d, need at least %d)",
			index, counter+eventlog.RecordSize)
	}
	// Room for the header plus at least one record.
	minCapacity := index + 2*eventlog.RecordSize
	if c.Storage.CapacityBytes < minCapacity {
		return fmt.Errorf("storage.capacity_bytes must be at least %d for these offsets (got %d)",
			minCapacity, c.Storage.CapacityBytes)
	}

	if c.Storage.Backend == BackendI2C {
		if c.Storage.I2C.Address < 0x08 || c.Storage.I2C.Address > 0x77 {
			return fmt.Errorf("storage.i2c.address must be a 7-bit device address between 0x08 and 0x77 (got %#x)",
				c.Storage.I2C.Address)
		}
	}

	if c.Diagnostics.MDNS && c.Diagnostics.HTTPAddr == "" {
		return fmt.Errorf("diagnostics.mdns requires diagnostics.http_addr to be set")
	}

	return nil
}
