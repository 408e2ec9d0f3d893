//go:build linux

package storage

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// eepromWriteCycle is the AT24 self-timed write cycle (t_WR). The chip
// does not ack bus traffic while a write is in progress, so each write
// waits it out before returning.
const eepromWriteCycle = 5 * time.Millisecond

// EEPROM is a Device backed by an AT24-series I2C EEPROM, the storage
// substrate of the original logger hardware. Addressing uses the
// two-byte form common to AT24C32 and larger parts.
type EEPROM struct {
	dev      *i2c.Dev
	bus      i2c.BusCloser
	capacity int

	mu      sync.Mutex
	faulted bool
}

var _ Device = (*EEPROM)(nil)

// OpenEEPROM opens the EEPROM at addr on the named I2C bus (an empty
// name selects the first available bus). The chip cannot report its
// own size, so capacity comes from configuration.
func OpenEEPROM(busName string, addr uint16, capacity int) (*EEPROM, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("storage: eeprom capacity must be positive, got %d", capacity)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("storage: initialize periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("storage: open i2c bus %q: %w", busName, err)
	}
	return &EEPROM{
		dev:      &i2c.Dev{Addr: addr, Bus: bus},
		bus:      bus,
		capacity: capacity,
	}, nil
}

// ReadByte performs a random read: write the two address bytes, then
// read one data byte. Returns 0 on failure or out-of-range access.
func (e *EEPROM) ReadByte(address int) byte {
	if address < 0 || address >= e.capacity {
		return 0
	}
	var out [1]byte
	if err := e.dev.Tx([]byte{byte(address >> 8), byte(address)}, out[:]); err != nil {
		e.fault("read", address, err)
		return 0
	}
	return out[0]
}

// WriteByte performs a single-byte write and waits out the write
// cycle. Failures are logged once; the storage contract gives callers
// no failure signal.
func (e *EEPROM) WriteByte(address int, b byte) {
	if address < 0 || address >= e.capacity {
		return
	}
	if err := e.dev.Tx([]byte{byte(address >> 8), byte(address), b}, nil); err != nil {
		e.fault("write", address, err)
		return
	}
	time.Sleep(eepromWriteCycle)
}

// Capacity returns the configured chip size in bytes.
func (e *EEPROM) Capacity() int {
	return e.capacity
}

// Faulted reports whether any bus transaction has failed since open.
func (e *EEPROM) Faulted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.faulted
}

// Close releases the I2C bus.
func (e *EEPROM) Close() error {
	return e.bus.Close()
}

func (e *EEPROM) fault(op string, address int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.faulted {
		return
	}
	e.faulted = true
	log.Printf("storage: eeprom %s at %d: %v (suppressing further fault logs)", op, address, err)
}
