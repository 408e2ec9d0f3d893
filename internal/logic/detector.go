package logic

// Detector converts a raw, possibly bouncing trigger line into at
// most one event pulse per cooldown window. A train holds the sensor
// triggered (or re-triggers it) for many consecutive ticks; without
// the window every one of those ticks would become its own event.
type Detector struct {
	cooldownTicks int
	active        bool
	elapsedTicks  int

	pulses     int
	suppressed int
}

// NewDetector creates a detector. cooldownTicks is the number of
// polling ticks after a pulse during which no new pulse can fire; it
// is fixed configuration, not adaptive.
func NewDetector(cooldownTicks int) *Detector {
	return &Detector{cooldownTicks: cooldownTicks}
}

// Process consumes one polling tick's raw sample and reports whether
// a qualifying event pulse fires on this tick.
//
// Idle and triggered: fire one pulse and open the cooldown window.
// Active: swallow the sample, advance the window, and return to idle
// once more than cooldownTicks ticks have elapsed since the pulse.
func (d *Detector) Process(triggered bool) bool {
	if !d.active {
		if !triggered {
			return false
		}
		d.active = true
		d.elapsedTicks = 0
		d.pulses++
		return true
	}

	d.elapsedTicks++
	if triggered {
		d.suppressed++
	}
	if d.elapsedTicks > d.cooldownTicks {
		d.active = false
		d.elapsedTicks = 0
	}
	return false
}

// State returns the current debounce state.
func (d *Detector) State() State {
	if d.active {
		return StateActive
	}
	return StateIdle
}

// PulseCount returns the number of pulses emitted since construction
// or the last Reset.
func (d *Detector) PulseCount() int {
	return d.pulses
}

// SuppressedCount returns the number of raw triggers swallowed inside
// cooldown windows.
func (d *Detector) SuppressedCount() int {
	return d.suppressed
}

// Reset returns the detector to idle and clears its counters.
func (d *Detector) Reset() {
	d.active = false
	d.elapsedTicks = 0
	d.pulses = 0
	d.suppressed = 0
}
