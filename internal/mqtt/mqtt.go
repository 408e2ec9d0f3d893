// Package mqtt mirrors train detections and lifecycle events to an
// MQTT broker. The mirror is purely observational: the event log in
// storage is always written first, and a dead broker never blocks or
// fails a detection.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "trackside/train-logger"

// EventsTopic returns the topic train detections are published to.
// An empty prefix selects DefaultTopicPrefix.
func EventsTopic(prefix string) string {
	return topicBase(prefix) + "/events"
}

// SystemTopic returns the topic lifecycle events are published to.
// An empty prefix selects DefaultTopicPrefix.
func SystemTopic(prefix string) string {
	return topicBase(prefix) + "/system"
}

func topicBase(prefix string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return strings.TrimSuffix(prefix, "/")
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a train detection to the broker.
	// Returns error if publishing fails (must not crash the process).
	Publish(event TrainEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TrainEvent is one logged detection, as published to the events topic.
type TrainEvent struct {
	// RecordedAt is the wall-clock time the record was written.
	RecordedAt time.Time

	// Seconds is the engine seconds value stored in the record.
	Seconds int32

	// Address is the storage address of the record.
	Address int
}

// SystemEvent represents a system lifecycle event
// (e.g., STARTUP, SHUTDOWN, MEMORY_FULL, RECONNECTED).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "MEMORY_FULL"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure for detections.
type Payload struct {
	Train TrainPayload `json:"train"`
}

// TrainPayload contains the detection details.
type TrainPayload struct {
	TimestampSeconds int32  `json:"timestamp_seconds"`
	Address          int    `json:"address"`
	RecordedAt       string `json:"recorded_at"`
}

// FormatPayload creates the JSON payload for a train detection.
func FormatPayload(event TrainEvent) ([]byte, error) {
	payload := Payload{
		Train: TrainPayload{
			TimestampSeconds: event.Seconds,
			Address:          event.Address,
			RecordedAt:       event.RecordedAt.UTC().Format(time.RFC3339),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full
// status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
