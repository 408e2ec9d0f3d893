package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("journal file was not created")
	}
}

func TestFileLoggerWritesDecodableEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	event := Event{
		Timestamp: time.Now(),
		SessionID: "session-123",
		Type:      TypeTrainDetected,
		Mode:      "NORMAL",
		Seconds:   412,
		Address:   16,
	}

	logger.Log(event)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read journal file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("journal file is empty")
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}

	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID: got %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.Type != TypeTrainDetected {
		t.Errorf("Type: got %v, want %v", decoded.Type, TypeTrainDetected)
	}
	if decoded.Seconds != 412 {
		t.Errorf("Seconds: got %d, want %d", decoded.Seconds, 412)
	}
	if decoded.Address != 16 {
		t.Errorf("Address: got %d, want %d", decoded.Address, 16)
	}
}

func TestFileLoggerAppendsAcrossReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.cbor")

	logger1, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger1.Log(Event{Timestamp: time.Now(), SessionID: "boot-1", Type: TypeStartup})
	logger1.Close()

	logger2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger second open failed: %v", err)
	}
	logger2.Log(Event{Timestamp: time.Now(), SessionID: "boot-2", Type: TypeStartup})
	logger2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read journal file: %v", err)
	}

	decoder := NewDecoder(bytes.NewReader(data))
	var events []Event
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			break
		}
		events = append(events, event)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SessionID != "boot-1" {
		t.Errorf("first event SessionID: got %q, want %q", events[0].SessionID, "boot-1")
	}
	if events[1].SessionID != "boot-2" {
		t.Errorf("second event SessionID: got %q, want %q", events[1].SessionID, "boot-2")
	}
}

func TestFileLoggerThreadSafe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const numGoroutines = 8
	const eventsPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				logger.Log(Event{
					Timestamp: time.Now(),
					SessionID: "session-" + string(rune('A'+id)),
					Type:      TypeTrainDetected,
					Seconds:   int32(j + 1),
				})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read journal file: %v", err)
	}

	decoder := NewDecoder(bytes.NewReader(data))
	count := 0
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			break
		}
		count++
	}

	if want := numGoroutines * eventsPerGoroutine; count != want {
		t.Errorf("event count: got %d, want %d", count, want)
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(Event{Timestamp: time.Now(), SessionID: "s", Type: TypeStartup})

	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Logging after close must not panic.
	logger.Log(Event{Timestamp: time.Now(), SessionID: "s", Type: TypeShutdown})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC),
		SessionID: "round-trip",
		Type:      TypeModeChange,
		Mode:      "MEMORY_FULL",
		Seconds:   2147483647,
		Detail:    "NORMAL -> MEMORY_FULL",
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, event.Timestamp)
	}
	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID: got %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.Type != event.Type {
		t.Errorf("Type: got %v, want %v", decoded.Type, event.Type)
	}
	if decoded.Mode != event.Mode {
		t.Errorf("Mode: got %q, want %q", decoded.Mode, event.Mode)
	}
	if decoded.Seconds != event.Seconds {
		t.Errorf("Seconds: got %d, want %d", decoded.Seconds, event.Seconds)
	}
	if decoded.Detail != event.Detail {
		t.Errorf("Detail: got %q, want %q", decoded.Detail, event.Detail)
	}
}

func TestEventTypeString(t *testing.T) {
	cases := []struct {
		typ  EventType
		want string
	}{
		{TypeStartup, "STARTUP"},
		{TypeTrainDetected, "TRAIN_DETECTED"},
		{TypeModeChange, "MODE_CHANGE"},
		{TypeStorageReseed, "STORAGE_RESEED"},
		{TypeMemoryFull, "MEMORY_FULL"},
		{TypeErase, "ERASE"},
		{TypeShutdown, "SHUTDOWN"},
		{EventType(99), "UNKNOWN"},
	}

	for _, tc := range cases {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tc.typ, got, tc.want)
		}
	}
}

func TestNoopLoggerDiscards(t *testing.T) {
	var logger Logger = NoopLogger{}
	logger.Log(Event{Timestamp: time.Now(), SessionID: "s", Type: TypeStartup})
}
