// Package eventlog implements the persistent event-log engine: a
// monotonic seconds counter and an append-only record log written
// directly into byte-addressable non-volatile storage.
//
// The persisted layout is fixed and big-endian throughout. The
// seconds counter lives at one fixed offset and the index pointer at
// another; the pointer holds the address of the most recently written
// record, or the index offset itself while the log is empty. Records
// are 4-byte seconds-counter snapshots appended at increasing
// addresses. A value of zero or less read back from either header
// field means the region was never initialized (or was erased) and is
// reseeded in place.
package eventlog

import (
	"errors"

	"github.com/trackside/train-logger/internal/codec"
	"github.com/trackside/train-logger/internal/storage"
)

// RecordSize is the storage footprint of one event record and of each
// header field.
const RecordSize = codec.Width

// ErrStorageFull is returned by Append once the index pointer has
// moved past the end of the region. The condition is permanent until
// the region is erased.
var ErrStorageFull = errors.New("eventlog: storage full")

// Layout fixes where the header fields live in storage. Every
// deployed logger uses DefaultLayout; the offsets are configurable
// only so that bench images with a shifted header remain readable.
type Layout struct {
	CounterAddress int
	IndexAddress   int
}

// DefaultLayout places the seconds counter at offset 0 and the index
// pointer at offset 4, which is the layout of every storage image in
// the field.
func DefaultLayout() Layout {
	return Layout{CounterAddress: 0, IndexAddress: 4}
}

// FirstRecordAddress returns the address of the first event record
// slot, directly after the index pointer.
func (l Layout) FirstRecordAddress() int {
	return l.IndexAddress + RecordSize
}

// Engine owns the event log. It is the only writer to the header
// offsets and the record region, and it expects a single goroutine to
// drive it: the polling loop calls TickSecond and Append, nothing
// else mutates storage.
type Engine struct {
	dev      storage.Device
	layout   Layout
	seconds  int32
	pointer  int32
	capacity int32
}

// InitResult reports the self-healing performed while loading the
// persisted header, so diagnostics can record what happened.
type InitResult struct {
	// CounterReseeded is true when the stored seconds counter read
	// back as uninitialized and was reset to 0.
	CounterReseeded bool

	// IndexReseeded is true when the stored index pointer read back as
	// uninitialized and was reset to the index address (empty log).
	IndexReseeded bool
}

// New constructs an engine over dev. Call Init before anything else.
func New(dev storage.Device, layout Layout) *Engine {
	return &Engine{dev: dev, layout: layout}
}

// Init loads the persisted header. A pointer value of zero or less
// (factory-fresh all-zero storage included) marks the log empty: the
// pointer is reset to the index address and persisted immediately.
// A counter value of zero or less is reset to 0 and persisted the
// same way.
func (e *Engine) Init() InitResult {
	e.capacity = int32(e.dev.Capacity())

	var res InitResult

	ptr := readLong(e.dev, e.layout.IndexAddress)
	if ptr <= 0 {
		ptr = int32(e.layout.IndexAddress)
		writeLong(e.dev, e.layout.IndexAddress, ptr)
		res.IndexReseeded = true
	}
	e.pointer = ptr

	sec := readLong(e.dev, e.layout.CounterAddress)
	if sec <= 0 {
		sec = 0
		writeLong(e.dev, e.layout.CounterAddress, 0)
		res.CounterReseeded = true
	}
	e.seconds = sec

	return res
}

// TickSecond advances the seconds counter by one and persists it
// immediately. Every increment is flushed: the timestamp survives any
// crash, at the cost of one header write per second on storage with
// limited write endurance.
func (e *Engine) TickSecond() {
	e.seconds++
	writeLong(e.dev, e.layout.CounterAddress, e.seconds)
}

// Full reports whether the index pointer has moved past the end of
// the region. Once true it stays true until Erase.
func (e *Engine) Full() bool {
	return e.pointer > e.capacity
}

// Append records the current seconds counter as a new event and
// returns the new record address. The pointer is advanced and
// persisted before the payload is written, so a power cut between the
// two writes leaves the pointer counting a slot with stale bytes;
// readers must tolerate a garbage final record. The payload write is
// skipped when the slot does not fit entirely inside the region, so
// the device never sees an out-of-range address.
func (e *Engine) Append() (int, error) {
	if e.Full() {
		return 0, ErrStorageFull
	}

	e.pointer += RecordSize
	writeLong(e.dev, e.layout.IndexAddress, e.pointer)

	if e.pointer+RecordSize <= e.capacity {
		writeLong(e.dev, int(e.pointer), e.seconds)
	}

	return int(e.pointer), nil
}

// Erase zeroes the whole region and re-persists an empty header. The
// seconds counter restarts at 0 and the log is empty afterwards.
func (e *Engine) Erase() {
	for addr := 0; addr < int(e.capacity); addr++ {
		e.dev.WriteByte(addr, 0)
	}

	e.seconds = 0
	e.pointer = int32(e.layout.IndexAddress)
	writeLong(e.dev, e.layout.IndexAddress, e.pointer)
	writeLong(e.dev, e.layout.CounterAddress, 0)
}

// Seconds returns the in-memory seconds counter.
func (e *Engine) Seconds() int32 {
	return e.seconds
}

// IndexPointer returns the in-memory index pointer.
func (e *Engine) IndexPointer() int32 {
	return e.pointer
}

// Capacity returns the storage capacity in bytes.
func (e *Engine) Capacity() int {
	return int(e.capacity)
}

// EventCount returns the number of records the pointer accounts for.
func (e *Engine) EventCount() int {
	if e.pointer <= int32(e.layout.IndexAddress) {
		return 0
	}
	return int(e.pointer-int32(e.layout.IndexAddress)) / RecordSize
}

// Dump returns a read-only cursor over every aligned slot in the
// region, for diagnostics.
func (e *Engine) Dump() *Cursor {
	return Dump(e.dev)
}

func readLong(dev storage.Device, address int) int32 {
	var b [codec.Width]byte
	for i := range b {
		b[i] = dev.ReadByte(address + i)
	}
	return codec.DecodeLong(b)
}

func writeLong(dev storage.Device, address int, v int32) {
	b := codec.EncodeLong(v)
	for i := range b {
		dev.WriteByte(address+i, b[i])
	}
}
