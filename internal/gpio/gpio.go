// Package gpio provides access to the logger's three hardware lines
// with hardware abstraction: the trigger input from the vibration
// sensor, the read-only switch, and the indicator LED. The real
// implementation uses the Linux GPIO character device; fakes and a
// simulated trigger source allow running without hardware.
package gpio

// Reader samples the sensor trigger line.
type Reader interface {
	// Read returns whether the line is triggered in logical terms
	// (inversion for active-low sensor boards already applied).
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Indicator drives the binary status LED.
type Indicator interface {
	// Set switches the LED on or off.
	Set(on bool) error

	// Close releases GPIO resources, leaving the LED off.
	Close() error
}

// Default chip and pin assignments (BCM numbering).
const (
	DefaultChip = "gpiochip0"

	PinTrigger  = 17 // vibration sensor digital out
	PinReadOnly = 27 // read-only mode switch
	PinLED      = 22 // status LED
)
