//go:build !linux

package storage

import "errors"

// EEPROM access requires the Linux I2C character device. This stub
// lets the rest of the module build on development machines.
type EEPROM struct{}

// OpenEEPROM always fails on non-Linux platforms.
func OpenEEPROM(busName string, addr uint16, capacity int) (*EEPROM, error) {
	return nil, errors.New("storage: eeprom backend requires linux")
}

// ReadByte always returns 0.
func (e *EEPROM) ReadByte(address int) byte { return 0 }

// WriteByte does nothing.
func (e *EEPROM) WriteByte(address int, b byte) {}

// Capacity always returns 0.
func (e *EEPROM) Capacity() int { return 0 }

// Faulted always returns false.
func (e *EEPROM) Faulted() bool { return false }

// Close does nothing.
func (e *EEPROM) Close() error { return nil }
