// Package logic contains the pure debounce logic that turns raw
// sensor samples into qualifying train events. This package has NO
// external dependencies (no GPIO, storage, OS, or time.Sleep). Time
// exists only as polling ticks: the caller invokes Process exactly
// once per tick.
package logic

// State is the debounce machine's externally visible state.
type State string

const (
	// StateIdle means the detector is armed and the next trigger
	// emits a pulse.
	StateIdle State = "IDLE"

	// StateActive means a pulse fired recently and further triggers
	// are swallowed until the cooldown window ends.
	StateActive State = "ACTIVE"
)
