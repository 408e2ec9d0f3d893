package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string         `json:"event,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	Mode            string         `json:"mode"`
	SecondsCounter  int32          `json:"seconds_counter"`
	IndexPointer    int32          `json:"index_pointer"`
	EventCount      int            `json:"event_count"`
	CapacityBytes   int            `json:"capacity_bytes"`
	UsedPercent     float64        `json:"used_percent"`
	Full            bool           `json:"full"`
	Debounce        string         `json:"debounce"`
	Pulses          int            `json:"pulses"`
	Suppressed      int            `json:"suppressed_triggers"`
	CounterReseeded bool           `json:"counter_reseeded,omitempty"`
	IndexReseeded   bool           `json:"index_reseeded,omitempty"`
	StorageFault    bool           `json:"storage_fault,omitempty"`
	UptimeSeconds   int64          `json:"uptime_seconds"`
	StartTime       string         `json:"start_time"`
	Timestamp       string         `json:"timestamp"`
	Session         string         `json:"session"`
	LastEvent       *LastEventJSON `json:"last_event,omitempty"`
	MQTT            MQTTStatus     `json:"mqtt"`
	Config          ConfigJSON     `json:"config"`
}

// LastEventJSON is the JSON representation of the latest record.
type LastEventJSON struct {
	Address int    `json:"address"`
	Seconds int32  `json:"seconds"`
	At      string `json:"at"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	CooldownTicks int    `json:"cooldown_ticks"`
	BlinkSeconds  int    `json:"blink_seconds"`
	Backend       string `json:"storage_backend"`
	StoragePath   string `json:"storage_path,omitempty"`
	Broker        string `json:"broker,omitempty"`
	HTTPAddr      string `json:"http_addr,omitempty"`
	JournalPath   string `json:"journal_path,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	debounce := string(snap.Detector.State)
	if debounce == "" {
		debounce = "IDLE"
	}

	used := 0.0
	if snap.Engine.Capacity > 0 {
		p := int(snap.Engine.IndexPointer)
		if p > snap.Engine.Capacity {
			p = snap.Engine.Capacity
		}
		if p < 0 {
			p = 0
		}
		used = float64(p) / float64(snap.Engine.Capacity) * 100
	}

	inner := StatusInner{
		Mode:            snap.Mode.String(),
		SecondsCounter:  snap.Engine.Seconds,
		IndexPointer:    snap.Engine.IndexPointer,
		EventCount:      snap.Engine.EventCount,
		CapacityBytes:   snap.Engine.Capacity,
		UsedPercent:     used,
		Full:            snap.Engine.Full,
		Debounce:        debounce,
		Pulses:          snap.Detector.Pulses,
		Suppressed:      snap.Detector.Suppressed,
		CounterReseeded: snap.CounterReseeded,
		IndexReseeded:   snap.IndexReseeded,
		StorageFault:    snap.StorageFault,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		Session:         snap.SessionID,
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			CooldownTicks: snap.Config.CooldownTicks,
			BlinkSeconds:  snap.Config.BlinkSeconds,
			Backend:       snap.Config.Backend,
			StoragePath:   snap.Config.StoragePath,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			JournalPath:   snap.Config.JournalPath,
		},
	}

	if snap.Last != nil {
		inner.LastEvent = &LastEventJSON{
			Address: snap.Last.Address,
			Seconds: snap.Last.Seconds,
			At:      snap.Last.At.UTC().Format(time.RFC3339),
		}
	}

	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
