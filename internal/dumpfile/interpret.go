package dumpfile

import (
	"fmt"
	"time"
)

// Report is the interpretation of a dump against a session start
// date. Entries are read positionally the way the firmware laid them
// out: the first slot is the seconds counter, the second the event
// index pointer, and the rest are event records until the first zero
// slot.
type Report struct {
	Start          time.Time
	CounterSeconds int32
	Uptime         string
	IndexPointer   int32
	Events         []EventInfo
}

// EventInfo is one interpreted event record.
type EventInfo struct {
	Number  int
	Address int
	Seconds int32
	Date    time.Time
	Delta   string
}

// Interpret maps dump entries to wall-clock times. start is the
// moment the counter was last at zero, so each event happened at
// start plus its recorded seconds. A zero counter or pointer is
// reported as-is; only a zero event slot ends the log.
func Interpret(entries []Entry, start time.Time) (*Report, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("dump too short: %d entries, need the counter and index slots", len(entries))
	}

	rep := &Report{
		Start:          start,
		CounterSeconds: entries[0].Value,
		IndexPointer:   entries[1].Value,
	}
	rep.Uptime = FormatDelta(int64(rep.CounterSeconds))

	for i, e := range entries[2:] {
		if e.Value == 0 {
			break
		}
		rep.Events = append(rep.Events, EventInfo{
			Number:  i + 1,
			Address: e.Address,
			Seconds: e.Value,
			Date:    start.Add(time.Duration(e.Value) * time.Second),
			Delta:   FormatDelta(int64(e.Value)),
		})
	}
	return rep, nil
}

// FormatDelta renders a second count as "Nd Nh Nm Ns".
func FormatDelta(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	minutes, secs := seconds/60, seconds%60
	hours, mins := minutes/60, minutes%60
	days, hrs := hours/24, hours%24
	return fmt.Sprintf("%dd %dh %dm %ds", days, hrs, mins, secs)
}
