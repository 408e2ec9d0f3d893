// Package storage provides byte-addressed access to the non-volatile
// region that holds the event log.
//
// Three backends implement the same contract: an in-memory region for
// tests and bench runs, a regular file for Pi-class targets, and an
// AT24-series I2C EEPROM on Linux.
package storage

// Device is a fixed-capacity, byte-addressable non-volatile region.
//
// The contract deliberately has no error channel: a write must be
// durable before the next read of the same address, and the substrate
// offers callers no failure signal. Backends that can observe a fault
// log it once and keep serving. Out-of-range access is a caller bug;
// the event-log engine bounds-checks every access against Capacity
// before making it.
type Device interface {
	// ReadByte returns the byte stored at address.
	ReadByte(address int) byte

	// WriteByte stores b at address.
	WriteByte(address int, b byte)

	// Capacity returns the region size in bytes, discovered when the
	// device is opened.
	Capacity() int
}
