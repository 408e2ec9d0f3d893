package eventlog

import (
	"errors"
	"testing"

	"github.com/trackside/train-logger/internal/codec"
	"github.com/trackside/train-logger/internal/storage"
)

// seedHeader builds a region image with the given counter and index
// values already persisted.
func seedHeader(capacity int, seconds, index int32) *storage.Memory {
	m := storage.NewMemory(capacity)
	writeLong(m, DefaultLayout().CounterAddress, seconds)
	writeLong(m, DefaultLayout().IndexAddress, index)
	m.ResetCounters()
	return m
}

// recordingDevice wraps a device and logs the address of every write,
// so tests can assert write ordering.
type recordingDevice struct {
	storage.Device
	writes []int
}

func (r *recordingDevice) WriteByte(address int, b byte) {
	r.writes = append(r.writes, address)
	r.Device.WriteByte(address, b)
}

func TestInitFactoryFresh(t *testing.T) {
	m := storage.NewMemory(32)
	eng := New(m, DefaultLayout())

	res := eng.Init()

	if !res.IndexReseeded {
		t.Error("expected index reseed on all-zero storage")
	}
	if !res.CounterReseeded {
		t.Error("expected counter reseed on all-zero storage")
	}
	if got := eng.IndexPointer(); got != 4 {
		t.Errorf("pointer = %d, want 4 (index address, empty log)", got)
	}
	if got := eng.Seconds(); got != 0 {
		t.Errorf("seconds = %d, want 0", got)
	}
	if got := eng.EventCount(); got != 0 {
		t.Errorf("event count = %d, want 0", got)
	}

	// The reseeded pointer must be persisted before any append.
	want := codec.EncodeLong(4)
	for i := range want {
		if b := m.ReadByte(4 + i); b != want[i] {
			t.Fatalf("persisted pointer byte %d = %#x, want %#x", i, b, want[i])
		}
	}
}

func TestInitNegativeValuesReseed(t *testing.T) {
	m := seedHeader(32, -5, -100)
	eng := New(m, DefaultLayout())

	res := eng.Init()

	if !res.IndexReseeded || !res.CounterReseeded {
		t.Fatalf("negative header values must reseed, got %+v", res)
	}
	if eng.IndexPointer() != 4 || eng.Seconds() != 0 {
		t.Errorf("after reseed pointer=%d seconds=%d, want 4 and 0",
			eng.IndexPointer(), eng.Seconds())
	}

	h := ReadHeader(m, DefaultLayout())
	if h.Index != 4 || h.Seconds != 0 {
		t.Errorf("persisted header = %+v, want index 4 seconds 0", h)
	}
}

func TestInitExistingStateUntouched(t *testing.T) {
	m := seedHeader(64, 1000, 16)
	eng := New(m, DefaultLayout())

	res := eng.Init()

	if res.IndexReseeded || res.CounterReseeded {
		t.Fatalf("valid header must not reseed, got %+v", res)
	}
	if got := eng.Seconds(); got != 1000 {
		t.Errorf("seconds = %d, want 1000", got)
	}
	if got := eng.IndexPointer(); got != 16 {
		t.Errorf("pointer = %d, want 16", got)
	}
	if got := eng.EventCount(); got != 3 {
		t.Errorf("event count = %d, want 3", got)
	}
	if m.WriteCount != 0 {
		t.Errorf("loading a valid header wrote %d bytes to storage", m.WriteCount)
	}
}

func TestTickSecondPersistsEveryIncrement(t *testing.T) {
	m := storage.NewMemory(32)
	eng := New(m, DefaultLayout())
	eng.Init()

	for i := 1; i <= 25; i++ {
		eng.TickSecond()
		if got := eng.Seconds(); got != int32(i) {
			t.Fatalf("after %d ticks seconds = %d", i, got)
		}
		if persisted := readLong(m, 0); persisted != int32(i) {
			t.Fatalf("after %d ticks persisted counter = %d", i, persisted)
		}
	}
}

func TestTickSecondContinuesFromStoredValue(t *testing.T) {
	m := seedHeader(32, 500, 8)
	eng := New(m, DefaultLayout())
	eng.Init()

	eng.TickSecond()

	if got := eng.Seconds(); got != 501 {
		t.Errorf("seconds = %d, want 501", got)
	}
	if persisted := readLong(m, 0); persisted != 501 {
		t.Errorf("persisted counter = %d, want 501", persisted)
	}
}

func TestAppendFromEmptyLog(t *testing.T) {
	m := storage.NewMemory(64)
	eng := New(m, DefaultLayout())
	eng.Init()

	for i := 0; i < 3; i++ {
		eng.TickSecond()
	}

	addr, err := eng.Append()
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if addr != 8 {
		t.Errorf("first record address = %d, want 8", addr)
	}
	if got := readLong(m, 8); got != 3 {
		t.Errorf("first record value = %d, want 3", got)
	}
	if got := eng.EventCount(); got != 1 {
		t.Errorf("event count = %d, want 1", got)
	}
}

// TestAppendScenario walks the reference scenario: a 32-byte region
// with the pointer starting at 8, appends at seconds 5, 12 and 40.
func TestAppendScenario(t *testing.T) {
	m := seedHeader(32, 0, 8)
	eng := New(m, DefaultLayout())
	eng.Init()

	tickTo := func(target int32) {
		for eng.Seconds() < target {
			eng.TickSecond()
		}
	}

	wantPointers := []int{12, 16, 20}
	for i, sec := range []int32{5, 12, 40} {
		tickTo(sec)
		addr, err := eng.Append()
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if addr != wantPointers[i] {
			t.Fatalf("append %d: address = %d, want %d", i, addr, wantPointers[i])
		}
	}

	wantRecords := []struct {
		addr  int
		value int32
	}{{12, 5}, {16, 12}, {20, 40}}
	for _, w := range wantRecords {
		if got := readLong(m, w.addr); got != w.value {
			t.Errorf("record at %d = %d, want %d", w.addr, got, w.value)
		}
	}

	// A fourth append still fits: the pointer moves to 24, inside the
	// 32-byte region.
	addr, err := eng.Append()
	if err != nil {
		t.Fatalf("fourth append: %v", err)
	}
	if addr != 24 {
		t.Errorf("fourth append address = %d, want 24", addr)
	}
	if eng.Full() {
		t.Error("log must not be full at pointer 24")
	}

	// Keep appending until the pointer passes the region end; the
	// device must never see an out-of-range address.
	for !eng.Full() {
		if _, err := eng.Append(); err != nil {
			t.Fatalf("append before full: %v", err)
		}
	}
	if m.OutOfRange != 0 {
		t.Errorf("engine made %d out-of-range accesses", m.OutOfRange)
	}
	if got := eng.IndexPointer(); got != 36 {
		t.Errorf("pointer at full = %d, want 36", got)
	}
}

func TestFullRefusesAppendsAndStopsWriting(t *testing.T) {
	m := seedHeader(32, 99, 8)
	eng := New(m, DefaultLayout())
	eng.Init()

	for !eng.Full() {
		if _, err := eng.Append(); err != nil {
			t.Fatalf("append before full: %v", err)
		}
	}

	m.ResetCounters()
	for i := 0; i < 5; i++ {
		if _, err := eng.Append(); !errors.Is(err, ErrStorageFull) {
			t.Fatalf("append %d on full log: err = %v, want ErrStorageFull", i, err)
		}
	}
	if m.WriteCount != 0 {
		t.Errorf("full log still wrote %d bytes to storage", m.WriteCount)
	}
	if !eng.Full() {
		t.Error("full condition must be permanent")
	}
}

func TestAppendWritesPointerBeforePayload(t *testing.T) {
	rec := &recordingDevice{Device: storage.NewMemory(64)}
	eng := New(rec, DefaultLayout())
	eng.Init()
	rec.writes = nil

	if _, err := eng.Append(); err != nil {
		t.Fatalf("append: %v", err)
	}

	want := []int{4, 5, 6, 7, 8, 9, 10, 11}
	if len(rec.writes) != len(want) {
		t.Fatalf("write addresses = %v, want %v", rec.writes, want)
	}
	for i, addr := range want {
		if rec.writes[i] != addr {
			t.Fatalf("write %d hit address %d, want %d (pointer slot before payload slot)",
				i, rec.writes[i], addr)
		}
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	m := storage.NewMemory(64)

	eng := New(m, DefaultLayout())
	eng.Init()
	for i := 0; i < 42; i++ {
		eng.TickSecond()
	}
	if _, err := eng.Append(); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Power cycle: a new engine over the same region.
	eng2 := New(m, DefaultLayout())
	res := eng2.Init()

	if res.IndexReseeded || res.CounterReseeded {
		t.Fatalf("restart over a valid region reseeded: %+v", res)
	}
	if got := eng2.Seconds(); got != 42 {
		t.Errorf("seconds after restart = %d, want 42", got)
	}
	if got := eng2.IndexPointer(); got != 8 {
		t.Errorf("pointer after restart = %d, want 8", got)
	}

	eng2.TickSecond()
	addr, err := eng2.Append()
	if err != nil {
		t.Fatalf("append after restart: %v", err)
	}
	if addr != 12 {
		t.Errorf("append after restart landed at %d, want 12", addr)
	}
	if got := readLong(m, 12); got != 43 {
		t.Errorf("record after restart = %d, want 43", got)
	}
}

func TestErase(t *testing.T) {
	m := storage.NewMemory(32)
	eng := New(m, DefaultLayout())
	eng.Init()

	for i := 0; i < 10; i++ {
		eng.TickSecond()
	}
	eng.Append()
	eng.Append()

	eng.Erase()

	if eng.Seconds() != 0 || eng.IndexPointer() != 4 || eng.EventCount() != 0 {
		t.Errorf("after erase seconds=%d pointer=%d count=%d, want 0/4/0",
			eng.Seconds(), eng.IndexPointer(), eng.EventCount())
	}

	h := ReadHeader(m, DefaultLayout())
	if h.Seconds != 0 || h.Index != 4 {
		t.Errorf("persisted header after erase = %+v", h)
	}
	for addr := 8; addr < 32; addr++ {
		if b := m.ReadByte(addr); b != 0 {
			t.Fatalf("record region byte %d = %#x after erase, want 0", addr, b)
		}
	}

	// The erased log accepts appends again.
	eng.TickSecond()
	addr, err := eng.Append()
	if err != nil {
		t.Fatalf("append after erase: %v", err)
	}
	if addr != 8 {
		t.Errorf("append after erase landed at %d, want 8", addr)
	}
}

func TestCustomLayout(t *testing.T) {
	layout := Layout{CounterAddress: 8, IndexAddress: 12}
	m := storage.NewMemory(64)
	eng := New(m, layout)

	res := eng.Init()
	if !res.IndexReseeded {
		t.Fatal("expected index reseed")
	}
	if got := eng.IndexPointer(); got != 12 {
		t.Errorf("pointer = %d, want 12 (shifted index address)", got)
	}

	eng.TickSecond()
	addr, err := eng.Append()
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if addr != 16 {
		t.Errorf("record address = %d, want 16", addr)
	}
	if got := readLong(m, 8); got != 1 {
		t.Errorf("counter at shifted offset = %d, want 1", got)
	}
}
