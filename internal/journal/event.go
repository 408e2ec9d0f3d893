package journal

import "time"

// Event is one diagnostic record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the boot session that wrote the event
	// (UUID minted at daemon start).
	SessionID string `cbor:"2,keyasint"`

	// Type classifies the event.
	Type EventType `cbor:"3,keyasint"`

	// Mode is the operating mode at the time of the event.
	Mode string `cbor:"4,keyasint,omitempty"`

	// Seconds is the engine's seconds counter at the time of the
	// event.
	Seconds int32 `cbor:"5,keyasint,omitempty"`

	// Address is the storage address of the record a detection wrote.
	Address int `cbor:"6,keyasint,omitempty"`

	// Detail carries free-form context: a shutdown reason, which
	// header fields were reseeded, an erase note.
	Detail string `cbor:"7,keyasint,omitempty"`
}

// EventType classifies a diagnostic event.
type EventType uint8

const (
	// TypeStartup marks daemon start, with the mode it latched.
	TypeStartup EventType = 0
	// TypeTrainDetected marks a qualifying sensor pulse and the
	// record it produced.
	TypeTrainDetected EventType = 1
	// TypeModeChange marks a mode latch firing.
	TypeModeChange EventType = 2
	// TypeStorageReseed marks startup self-healing of the header.
	TypeStorageReseed EventType = 3
	// TypeMemoryFull marks the log running out of storage.
	TypeMemoryFull EventType = 4
	// TypeErase marks an explicit bulk erase.
	TypeErase EventType = 5
	// TypeShutdown marks daemon stop, with the signal that caused it.
	TypeShutdown EventType = 6
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case TypeStartup:
		return "STARTUP"
	case TypeTrainDetected:
		return "TRAIN_DETECTED"
	case TypeModeChange:
		return "MODE_CHANGE"
	case TypeStorageReseed:
		return "STORAGE_RESEED"
	case TypeMemoryFull:
		return "MEMORY_FULL"
	case TypeErase:
		return "ERASE"
	case TypeShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}
