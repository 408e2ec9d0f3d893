// Package mode arbitrates the logger's operating mode. It is a
// two-bit latch, not a general state machine: ReadOnly latches once
// at startup from the hardware switch, MemoryFull latches once when
// the log runs out of storage, and neither ever returns to Normal
// within a run.
package mode

// Mode is the logger's operating mode.
type Mode uint8

const (
	// Normal is the only mode in which counter ticking, debounce
	// evaluation and log appends run.
	Normal Mode = iota

	// ReadOnly is latched permanently at startup when the read-only
	// switch reads active. No polling, no ticking, no appends.
	ReadOnly

	// MemoryFull is latched permanently once the log is full. Polling
	// and ticking stop; the process stays alive for diagnostics.
	MemoryFull
)

// String returns the mode name used in logs, journals and status
// output.
func (m Mode) String() string {
	switch m {
	case Normal:
		return "NORMAL"
	case ReadOnly:
		return "READ_ONLY"
	case MemoryFull:
		return "MEMORY_FULL"
	default:
		return "UNKNOWN"
	}
}

// ChangeFunc is notified synchronously when a latch fires.
type ChangeFunc func(from, to Mode)

// Controller holds the latched mode. It is owned by the polling loop
// goroutine; other goroutines see the mode only through status
// snapshots.
type Controller struct {
	mode     Mode
	onChange ChangeFunc
}

// NewController creates the controller. readOnlySwitch is the switch
// state sampled exactly once at startup; true latches ReadOnly for
// the process lifetime.
func NewController(readOnlySwitch bool) *Controller {
	c := &Controller{}
	if readOnlySwitch {
		c.mode = ReadOnly
	}
	return c
}

// OnChange registers fn to be called from Observe whenever a latch
// fires. Only one function can be registered.
func (c *Controller) OnChange(fn ChangeFunc) {
	c.onChange = fn
}

// Observe feeds the controller the engine's full flag for this tick
// and returns the mode the loop must run under. The Normal to
// MemoryFull latch fires here and never releases.
func (c *Controller) Observe(full bool) Mode {
	if c.mode == Normal && full {
		from := c.mode
		c.mode = MemoryFull
		if c.onChange != nil {
			c.onChange(from, MemoryFull)
		}
	}
	return c.mode
}

// Mode returns the current mode without observing anything.
func (c *Controller) Mode() Mode {
	return c.mode
}
