//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader samples the sensor trigger line through the Linux GPIO
// character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	activeLow bool
}

// NewRealReader requests the trigger pin as an input with pull-down,
// matching Pi boot defaults so an unconnected sensor reads idle.
// Sensor boards with an active-low digital out set activeLow.
func NewRealReader(chipName string, pin int, activeLow bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", pin, err)
	}

	return &RealReader{chip: chip, line: line, activeLow: activeLow}, nil
}

// Read returns the logical trigger state.
func (r *RealReader) Read() (bool, error) {
	raw, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read trigger pin: %w", err)
	}
	triggered := raw != 0
	if r.activeLow {
		triggered = !triggered
	}
	return triggered, nil
}

// Close releases the line and chip. The pin is reconfigured to input
// with pull-down first so it matches Pi boot defaults on the way out.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// ReadSwitch samples the read-only switch exactly once. The line is
// requested, read and released in one shot; the switch is never
// re-evaluated after startup.
func ReadSwitch(chipName string, pin int) (bool, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return false, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	defer chip.Close()

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		return false, fmt.Errorf("request switch pin %d: %w", pin, err)
	}
	defer line.Close()

	raw, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read switch pin %d: %w", pin, err)
	}
	return raw != 0, nil
}

// RealIndicator drives the status LED through the Linux GPIO
// character device.
type RealIndicator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealIndicator requests the LED pin as an output, initially off.
func NewRealIndicator(chipName string, pin int) (*RealIndicator, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request led pin %d: %w", pin, err)
	}

	return &RealIndicator{chip: chip, line: line}, nil
}

// Set switches the LED.
func (i *RealIndicator) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := i.line.SetValue(v); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}

// Close turns the LED off and releases the line and chip.
func (i *RealIndicator) Close() error {
	var errs []error

	if i.line != nil {
		if err := i.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear led: %w", err))
		}
		if err := i.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close led pin: %w", err))
		}
	}
	if i.chip != nil {
		if err := i.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
