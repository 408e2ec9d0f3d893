// Package status provides a thread-safe status tracker for the
// train-logger daemon. The polling loop writes into it once per tick;
// HTTP handlers, the MQTT mirror and shutdown reporting read
// snapshots from it. Nothing ever reads engine state directly from
// another goroutine.
package status

import (
	"sync"
	"time"

	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/logic"
	"github.com/trackside/train-logger/internal/mode"
)

// maxTrackedRecords caps the record list kept for display. The log
// itself is unaffected; the status page just stops growing.
const maxTrackedRecords = 4096

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	CooldownTicks int
	BlinkSeconds  int
	Backend       string
	StoragePath   string
	Broker        string
	HTTPAddr      string
	JournalPath   string
}

// LastEvent describes the most recently appended record.
type LastEvent struct {
	Address int
	Seconds int32
	At      time.Time
}

// EngineState is the engine view copied into the snapshot each tick.
type EngineState struct {
	Seconds      int32
	IndexPointer int32
	EventCount   int
	Capacity     int
	Full         bool
}

// DetectorState is the debounce view copied into the snapshot.
type DetectorState struct {
	State      logic.State
	Pulses     int
	Suppressed int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Mode     mode.Mode
	Engine   EngineState
	Detector DetectorState

	// CounterReseeded and IndexReseeded report the self-healing done
	// at startup.
	CounterReseeded bool
	IndexReseeded   bool

	StorageFault bool

	// Records holds the appended records known to the tracker, oldest
	// first, capped at maxTrackedRecords.
	Records          []eventlog.Record
	RecordsTruncated bool

	Last *LastEvent

	StartTime     time.Time
	Now           time.Time
	SessionID     string
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, session id
// and display config.
func NewTracker(startTime time.Time, sessionID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			SessionID: sessionID,
			Config:    cfg,
		},
	}
}

// Update sets the mode, engine and detector views.
// Called from the polling loop on every tick.
func (t *Tracker) Update(m mode.Mode, eng EngineState, det DetectorState) {
	t.mu.Lock()
	t.snap.Mode = m
	t.snap.Engine = eng
	t.snap.Detector = det
	t.mu.Unlock()
}

// SetInitResult records the startup self-healing flags.
func (t *Tracker) SetInitResult(counterReseeded, indexReseeded bool) {
	t.mu.Lock()
	t.snap.CounterReseeded = counterReseeded
	t.snap.IndexReseeded = indexReseeded
	t.mu.Unlock()
}

// SetRecords seeds the record list, typically with the records found
// in storage at startup.
func (t *Tracker) SetRecords(records []eventlog.Record) {
	t.mu.Lock()
	if len(records) > maxTrackedRecords {
		records = records[len(records)-maxTrackedRecords:]
		t.snap.RecordsTruncated = true
	}
	t.snap.Records = append([]eventlog.Record(nil), records...)
	t.mu.Unlock()
}

// AddRecord appends a freshly written record and updates the
// last-event view.
func (t *Tracker) AddRecord(rec eventlog.Record, at time.Time) {
	t.mu.Lock()
	t.snap.Records = append(t.snap.Records, rec)
	if len(t.snap.Records) > maxTrackedRecords {
		t.snap.Records = t.snap.Records[1:]
		t.snap.RecordsTruncated = true
	}
	t.snap.Last = &LastEvent{Address: rec.Address, Seconds: rec.Value, At: at}
	t.mu.Unlock()
}

// SetStorageFault marks that the storage backend has reported a
// fault. It never clears within a run.
func (t *Tracker) SetStorageFault(faulted bool) {
	t.mu.Lock()
	if faulted {
		t.snap.StorageFault = true
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Records = append([]eventlog.Record(nil), t.snap.Records...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
